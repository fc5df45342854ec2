package admin

import (
	"go-backoffice/internal/domain/model"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct{ d Dependencies }

func NewAnalyticsHandler(d Dependencies) *AnalyticsHandler { return &AnalyticsHandler{d: d} }

func (h *AnalyticsHandler) TasksAndWorkorders(c *gin.Context) {
	res, err := h.d.Analytics.TasksAndWorkorders(c.Request.Context())
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, res)
}

// ByStatus 返回某类记录按 status 分组计数的 handler
func (h *AnalyticsHandler) ByStatus(kind model.EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h.d.Analytics.ByStatus(c.Request.Context(), kind)
		if err != nil {
			response.Fail(c, err, "")
			return
		}
		response.Success(c, res)
	}
}
