package observability

import (
	"strconv"
	"time"

	"go-backoffice/internal/metrics"

	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// scrapePaths 探针与抓取请求不计入业务指标
var scrapePaths = map[string]struct{}{
	"/metrics": {},
	"/healthz": {},
	"/readyz":  {},
}

// Metrics path 标签取路由模板（/api/forms/:id），未命中路由统一记为 unmatched，
// 防止扫描类请求撑爆标签基数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := scrapePaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		metrics.Inflight.Inc()
		defer metrics.Inflight.Dec()
		start := time.Now()
		c.Next()
		route := routeLabel(c)
		metrics.RequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
		metrics.RequestTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}
