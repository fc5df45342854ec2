package admin

import (
	"fmt"

	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/server/http/handler/bind"
	"go-backoffice/internal/service"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// FieldHandler 某一实体类别的字段元数据接口（/vendor-fields 等）
type FieldHandler struct {
	d    Dependencies
	kind model.EntityKind
}

func NewFieldHandler(d Dependencies, kind model.EntityKind) *FieldHandler {
	return &FieldHandler{d: d, kind: kind}
}

func (h *FieldHandler) notFound() string { return service.Humanize(string(h.kind)) + " field not found." }

// Index 实时列与元数据合并后的列表
func (h *FieldHandler) Index(c *gin.Context) {
	list, err := h.d.Fields.Reconcile(c.Request.Context(), h.kind)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, list)
}

type upsertFieldReq struct {
	FieldName    string  `json:"field_name" binding:"required,max=255"`
	FieldLabel   string  `json:"field_label" binding:"required,max=255"`
	FieldType    *string `json:"field_type"`
	IsRequired   *bool   `json:"is_required"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

// Store 按 field_name upsert
func (h *FieldHandler) Store(c *gin.Context) {
	var req upsertFieldReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	m, err := h.d.Fields.Upsert(c.Request.Context(), h.kind, service.UpsertFieldInput{
		FieldName:    req.FieldName,
		FieldLabel:   req.FieldLabel,
		FieldType:    req.FieldType,
		IsRequired:   req.IsRequired,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Created(c, m)
}

func (h *FieldHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "id", h.notFound())
	if !ok {
		return
	}
	m, err := h.d.Fields.Show(c.Request.Context(), h.kind, id)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, m)
}

type updateFieldReq struct {
	FieldName    *string `json:"field_name" binding:"omitempty,max=255"`
	FieldLabel   *string `json:"field_label" binding:"omitempty,max=255"`
	FieldType    *string `json:"field_type"`
	IsRequired   *bool   `json:"is_required"`
	IsActive     *bool   `json:"is_active"`
	DisplayOrder *int    `json:"display_order"`
}

func (h *FieldHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", h.notFound())
	if !ok {
		return
	}
	var req updateFieldReq
	present, err := bind.JSON(c, &req)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	m, err := h.d.Fields.Update(c.Request.Context(), h.kind, id, service.UpdateFieldInput{
		FieldName:    req.FieldName,
		FieldLabel:   req.FieldLabel,
		SetFieldType: present.Has("field_type"),
		FieldType:    req.FieldType,
		IsRequired:   req.IsRequired,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, m)
}

func (h *FieldHandler) Destroy(c *gin.Context) {
	id, ok := pathID(c, "id", h.notFound())
	if !ok {
		return
	}
	if err := h.d.Fields.Delete(c.Request.Context(), h.kind, id); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, fmt.Sprintf("%s field deleted successfully", service.Humanize(string(h.kind))))
}

type fieldOrderItem struct {
	FieldName    string `json:"field_name" binding:"required,max=255"`
	DisplayOrder *int   `json:"display_order" binding:"required"`
}

type fieldOrderReq struct {
	Fields []fieldOrderItem `json:"fields" binding:"required,dive"`
}

// UpdateOrder 按 field_name 批量设置 display_order，缺失元数据的列会补建
func (h *FieldHandler) UpdateOrder(c *gin.Context) {
	var req fieldOrderReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	items := make([]service.FieldOrder, 0, len(req.Fields))
	for _, f := range req.Fields {
		items = append(items, service.FieldOrder{FieldName: f.FieldName, DisplayOrder: *f.DisplayOrder})
	}
	if err := h.d.Fields.Reorder(c.Request.Context(), h.kind, items); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, "Field order updated successfully")
}
