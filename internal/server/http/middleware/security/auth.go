package security

import (
	"context"
	"net/http"
	"strings"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/security/jwt"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	UserIDKey       = "user_id"
	MsgUnauthorized = "Unauthenticated."
)

// Auth 校验 Bearer token，把 user_id 写入 gin 与请求 context；j 为 nil 时不校验
func Auth(j *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if j == nil {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody{Error: MsgUnauthorized})
			return
		}
		claims, err := j.Parse(strings.TrimSpace(auth[7:]))
		if err != nil {
			logging.FromContext(c.Request.Context(), nil).Debug("auth_rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody{Error: MsgUnauthorized})
			return
		}
		c.Set(UserIDKey, claims.UserID)
		ctx := context.WithValue(c.Request.Context(), logging.UserIDKey, claims.UserID)
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx, nil).With(zap.Int64("user_id", claims.UserID)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
