package public

import (
	"net/http"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/server/http/handler/bind"
	"go-backoffice/internal/service"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

// Dependencies 公开接口只依赖公开表单服务
type Dependencies struct {
	PublicForms *service.PublicFormService
	Logger      *logging.Logger
}

type FormHandler struct{ d Dependencies }

func NewFormHandler(d Dependencies) *FormHandler { return &FormHandler{d: d} }

type submitResp struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Show 未知 key、未公开、已停用三种情况响应完全相同
func (h *FormHandler) Show(c *gin.Context) {
	view, err := h.d.PublicForms.Get(c.Request.Context(), c.Param("publicKey"))
	if err != nil {
		response.Fail(c, err, "Failed to fetch form.")
		return
	}
	response.Success(c, view)
}

func (h *FormHandler) Submit(c *gin.Context) {
	var payload map[string]interface{}
	if _, err := bind.JSON(c, &payload); err != nil {
		response.Fail(c, err, "")
		return
	}
	if err := h.d.PublicForms.Submit(c.Request.Context(), c.Param("publicKey"), payload); err != nil {
		response.Fail(c, err, "Failed to submit form. Please try again.")
		return
	}
	c.JSON(http.StatusCreated, submitResp{Message: service.MsgSubmitted, Success: true})
}
