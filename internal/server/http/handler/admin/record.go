package admin

import (
	"fmt"

	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/server/http/handler/bind"
	"go-backoffice/internal/server/http/middleware/security"
	"go-backoffice/internal/service"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// RecordHandler vendors / prospects / tasks / workorders 的通用 CRUD
type RecordHandler struct {
	d    Dependencies
	kind model.EntityKind
}

func NewRecordHandler(d Dependencies, kind model.EntityKind) *RecordHandler {
	return &RecordHandler{d: d, kind: kind}
}

func (h *RecordHandler) title() string { return service.Humanize(string(h.kind)) }

func (h *RecordHandler) Index(c *gin.Context) {
	rows, err := h.d.Records.List(c.Request.Context(), h.kind)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, rows)
}

func (h *RecordHandler) Store(c *gin.Context) {
	var payload map[string]interface{}
	if _, err := bind.JSON(c, &payload); err != nil {
		response.Fail(c, err, "")
		return
	}
	row, err := h.d.Records.Create(c.Request.Context(), h.kind, payload, c.GetInt64(security.UserIDKey))
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Created(c, row)
}

func (h *RecordHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "id", h.title()+" not found.")
	if !ok {
		return
	}
	row, err := h.d.Records.Show(c.Request.Context(), h.kind, id)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, row)
}

func (h *RecordHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", h.title()+" not found.")
	if !ok {
		return
	}
	var payload map[string]interface{}
	if _, err := bind.JSON(c, &payload); err != nil {
		response.Fail(c, err, "")
		return
	}
	row, err := h.d.Records.Update(c.Request.Context(), h.kind, id, payload)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, row)
}

func (h *RecordHandler) Destroy(c *gin.Context) {
	id, ok := pathID(c, "id", h.title()+" not found.")
	if !ok {
		return
	}
	if err := h.d.Records.Delete(c.Request.Context(), h.kind, id); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, fmt.Sprintf("%s deleted successfully", h.title()))
}
