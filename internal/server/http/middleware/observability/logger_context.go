package observability

import (
	"go-backoffice/internal/logging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerContextMiddleware 请求级 logger 带上 trace_id 与路由模板，放进 request context；
// service 层用 logging.FromContext 取出。依赖 TraceMiddleware 先写入 trace_id
func LoggerContextMiddleware(base *logging.Logger) gin.HandlerFunc {
	if base == nil {
		base = logging.NewNop()
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lg := base.WithContext(ctx).With(
			zap.String("route", routeLabel(c)),
			zap.String("method", c.Request.Method),
		)
		c.Request = c.Request.WithContext(logging.IntoContext(ctx, lg))
		c.Next()
	}
}
