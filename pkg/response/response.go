package response

import (
	"errors"
	"net/http"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/util/retcode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody 单条错误
type ErrorBody struct {
	Error string `json:"error"`
}

// FieldErrorsBody 字段级错误
type FieldErrorsBody struct {
	Errors map[string]string `json:"errors"`
}

type MessageBody struct {
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) { c.JSON(http.StatusOK, data) }

func Created(c *gin.Context, data interface{}) { c.JSON(http.StatusCreated, data) }

func Message(c *gin.Context, msg string) { c.JSON(http.StatusOK, MessageBody{Message: msg}) }

// Fail 统一错误出口：
// NotFound -> 404 {error}; Validation -> 422 {errors}; 其他 -> 500 {error: fallback}
// Internal 的底层细节只写日志，不回显给调用方
func Fail(c *gin.Context, err error, fallback string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(fallback, err)
	}
	switch ae.Kind {
	case retcode.NotFound:
		c.JSON(ae.Kind.HTTPStatus(), ErrorBody{Error: ae.Message})
	case retcode.Validation:
		c.JSON(ae.Kind.HTTPStatus(), FieldErrorsBody{Errors: ae.Fields})
	default:
		logging.FromContext(c.Request.Context(), nil).Error("request_failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		msg := fallback
		if msg == "" {
			msg = ae.Message
		}
		c.JSON(retcode.Internal.HTTPStatus(), ErrorBody{Error: msg})
	}
	_ = c.Error(err)
}
