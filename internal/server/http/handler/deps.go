package handler

import (
	"go-backoffice/internal/domain/model"
	adminh "go-backoffice/internal/server/http/handler/admin"
	publich "go-backoffice/internal/server/http/handler/public"
)

// HandlerSet 聚合 admin 与 public 子包的 handler，供 router 使用
type HandlerSet struct {
	Fields     map[model.EntityKind]*adminh.FieldHandler
	Records    map[model.EntityKind]*adminh.RecordHandler
	Forms      *adminh.FormHandler
	Analytics  *adminh.AnalyticsHandler
	Log        *adminh.LogHandler
	PublicForm *publich.FormHandler
}

func NewHandlerSet(ad adminh.Dependencies, pd publich.Dependencies) *HandlerSet {
	hs := &HandlerSet{
		Fields:     make(map[model.EntityKind]*adminh.FieldHandler),
		Records:    make(map[model.EntityKind]*adminh.RecordHandler),
		Forms:      adminh.NewFormHandler(ad),
		Analytics:  adminh.NewAnalyticsHandler(ad),
		Log:        adminh.NewLogHandler(ad),
		PublicForm: publich.NewFormHandler(pd),
	}
	for _, k := range model.AllKinds() {
		hs.Fields[k] = adminh.NewFieldHandler(ad, k)
		hs.Records[k] = adminh.NewRecordHandler(ad, k)
	}
	return hs
}
