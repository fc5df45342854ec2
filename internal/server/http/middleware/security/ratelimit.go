package security

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const MsgTooManyRequests = "Too many requests."

// WindowCounter 由 redisrepo.Client 实现
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit 按客户端 IP 固定窗口限流；counter 为 nil 或 limit<=0 时放行。
// Redis 出错时放行，只记日志。
func RateLimit(counter WindowCounter, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		if window < time.Second {
			window = time.Minute
		}
		bucket := time.Now().Unix() / int64(window/time.Second)
		key := prefix + c.ClientIP() + ":" + strconv.FormatInt(bucket, 10)
		n, err := counter.IncrWindow(c.Request.Context(), key, window)
		if err != nil {
			logging.FromContext(c.Request.Context(), nil).Warn("rate_limit_unavailable", zap.Error(err))
			c.Next()
			return
		}
		if n > int64(limit) {
			metrics.RateLimited.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorBody{Error: MsgTooManyRequests})
			return
		}
		c.Next()
	}
}
