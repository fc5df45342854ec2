package admin

import (
	"go-backoffice/internal/server/http/handler/bind"
	"go-backoffice/internal/service"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	msgFormNotFound      = "Form not found."
	msgFormFieldNotFound = "Form field not found."
)

type FormHandler struct{ d Dependencies }

func NewFormHandler(d Dependencies) *FormHandler { return &FormHandler{d: d} }

func (h *FormHandler) Index(c *gin.Context) {
	list, err := h.d.Forms.List(c.Request.Context())
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, list)
}

type createFormReq struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
	Type        string  `json:"type" binding:"required,oneof=vendor prospect"`
	IsActive    *bool   `json:"is_active"`
}

func (h *FormHandler) Store(c *gin.Context) {
	var req createFormReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	f, err := h.d.Forms.Create(c.Request.Context(), service.CreateFormInput{
		Name: req.Name, Description: req.Description, Type: req.Type, IsActive: req.IsActive,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Created(c, f)
}

func (h *FormHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	f, err := h.d.Forms.Show(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, f)
}

type updateFormReq struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Type        *string `json:"type" binding:"omitempty,oneof=vendor prospect"`
	IsActive    *bool   `json:"is_active"`
}

func (h *FormHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	var req updateFormReq
	present, err := bind.JSON(c, &req)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	f, err := h.d.Forms.Update(c.Request.Context(), id, service.UpdateFormInput{
		Name:           req.Name,
		SetDescription: present.Has("description"),
		Description:    req.Description,
		Type:           req.Type,
		IsActive:       req.IsActive,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, f)
}

func (h *FormHandler) Destroy(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	if err := h.d.Forms.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, "Form deleted successfully")
}

type addFieldReq struct {
	FieldName   string `json:"field_name" binding:"required,max=255"`
	FieldSource string `json:"field_source" binding:"required,oneof=vendor prospect"`
	IsRequired  *bool  `json:"is_required"`
	IsVisible   *bool  `json:"is_visible"`
}

// AddField 追加到末尾
func (h *FormHandler) AddField(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	var req addFieldReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	ff, err := h.d.Forms.AddField(c.Request.Context(), id, service.AddFieldInput{
		FieldName: req.FieldName, FieldSource: req.FieldSource, IsRequired: req.IsRequired, IsVisible: req.IsVisible,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Created(c, ff)
}

type updateFormFieldReq struct {
	IsRequired   *bool `json:"is_required"`
	IsVisible    *bool `json:"is_visible"`
	DisplayOrder *int  `json:"display_order"`
}

func (h *FormHandler) UpdateField(c *gin.Context) {
	formID, ok := pathID(c, "id", msgFormFieldNotFound)
	if !ok {
		return
	}
	fieldID, ok := pathID(c, "fieldId", msgFormFieldNotFound)
	if !ok {
		return
	}
	var req updateFormFieldReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	ff, err := h.d.Forms.UpdateField(c.Request.Context(), formID, fieldID, service.UpdateFormFieldInput{
		IsRequired: req.IsRequired, IsVisible: req.IsVisible, DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, ff)
}

func (h *FormHandler) DeleteField(c *gin.Context) {
	formID, ok := pathID(c, "id", msgFormFieldNotFound)
	if !ok {
		return
	}
	fieldID, ok := pathID(c, "fieldId", msgFormFieldNotFound)
	if !ok {
		return
	}
	if err := h.d.Forms.DeleteField(c.Request.Context(), formID, fieldID); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, "Form field deleted successfully")
}

type fieldIDsReq struct {
	FieldIDs []int64 `json:"field_ids" binding:"required,dive,gt=0"`
}

// UpdateFieldOrder 位置 i 的字段 display_order = i+1
func (h *FormHandler) UpdateFieldOrder(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	var req fieldIDsReq
	if _, err := bind.JSON(c, &req); err != nil {
		response.Fail(c, err, "")
		return
	}
	if err := h.d.Forms.ReorderFields(c.Request.Context(), id, req.FieldIDs); err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Message(c, "Field order updated successfully")
}

func (h *FormHandler) GeneratePublicKey(c *gin.Context) {
	id, ok := pathID(c, "id", msgFormNotFound)
	if !ok {
		return
	}
	res, err := h.d.Forms.GeneratePublicKey(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err, "")
		return
	}
	response.Success(c, res)
}
