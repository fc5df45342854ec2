package admin

import (
	"go-backoffice/internal/logging"
	"go-backoffice/internal/service"
)

// Dependencies admin 子包依赖集合
type Dependencies struct {
	Fields    *service.FieldService
	Forms     *service.FormService
	Records   *service.RecordService
	Analytics *service.AnalyticsService
	Logs      *service.LogService
	Logger    *logging.Logger
}
