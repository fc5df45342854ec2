package admin

import (
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type LogHandler struct{ d Dependencies }

func NewLogHandler(d Dependencies) *LogHandler { return &LogHandler{d: d} }

// Index ?keyword=&page=&limit=
func (h *LogHandler) Index(c *gin.Context) {
	page, limit := pageLimit(c)
	res, err := h.d.Logs.List(c.Request.Context(), c.Query("keyword"), page, limit)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, res)
}

func (h *LogHandler) Destroy(c *gin.Context) {
	id, ok := pathID(c, "id", "Operation log not found.")
	if !ok {
		return
	}
	if err := h.d.Logs.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, "Operation log deleted successfully")
}
