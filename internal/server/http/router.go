package http

import (
	"context"
	"net/http"
	"time"

	"go-backoffice/internal/config"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/security/jwt"
	handlerset "go-backoffice/internal/server/http/handler"
	"go-backoffice/internal/server/http/handler/bind"
	"go-backoffice/internal/server/http/middleware"
	obs "go-backoffice/internal/server/http/middleware/observability"
	sec "go-backoffice/internal/server/http/middleware/security"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const publicSubmitPrefix = "rl:public_submit:"

// NewRouter 仅负责分组与中间件装配，具体业务放在 handler 层。
// limiter / opLog 可为 nil（未配置 Redis / Kafka）。
func NewRouter(cfg *config.Config, logger *logging.Logger, jwtm *jwt.Manager, h *handlerset.HandlerSet, hc *HealthChecker, limiter sec.WindowCounter, opLog obs.OpLogSink) *gin.Engine {
	bind.RegisterJSONTagNames()
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(cfg.HTTP.CORSOrigins), obs.TraceMiddleware(), obs.LoggerContextMiddleware(logger), obs.AccessLog(logger), obs.Metrics())

	// 健康检查
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, hc.Liveness()) })
	r.GET("/readyz", func(c *gin.Context) {
		if c.Query("refresh") == "1" {
			hc.ResetCache()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		res, code := hc.Readiness(ctx)
		c.JSON(code, res)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// 公开表单：无需认证，提交按 IP 限流
	pub := api.Group("/public")
	{
		pub.GET("/form/:publicKey", h.PublicForm.Show)
		pub.POST("/form/:publicKey/submit",
			sec.RateLimit(limiter, publicSubmitPrefix, cfg.PublicForm.SubmitPerMinute, time.Minute),
			h.PublicForm.Submit)
	}

	// 后台：认证 + 操作日志
	adminGrp := api.Group("", sec.Auth(jwtm), obs.OperationLog(opLog))
	for _, k := range model.AllKinds() {
		fh := h.Fields[k]
		fg := adminGrp.Group("/" + string(k) + "-fields")
		{
			fg.GET("", fh.Index)
			fg.POST("", fh.Store)
			fg.PUT("/update-order", fh.UpdateOrder)
			fg.GET("/:id", fh.Show)
			fg.PUT("/:id", fh.Update)
			fg.DELETE("/:id", fh.Destroy)
		}
		rh := h.Records[k]
		rg := adminGrp.Group("/" + k.BaseTable())
		{
			rg.GET("", rh.Index)
			rg.POST("", rh.Store)
			rg.GET("/:id", rh.Show)
			rg.PUT("/:id", rh.Update)
			rg.DELETE("/:id", rh.Destroy)
		}
	}
	formGrp := adminGrp.Group("/forms")
	{
		formGrp.GET("", h.Forms.Index)
		formGrp.POST("", h.Forms.Store)
		formGrp.GET("/:id", h.Forms.Show)
		formGrp.PUT("/:id", h.Forms.Update)
		formGrp.DELETE("/:id", h.Forms.Destroy)
		formGrp.POST("/:id/fields", h.Forms.AddField)
		formGrp.PUT("/:id/fields/update-order", h.Forms.UpdateFieldOrder)
		formGrp.PUT("/:id/fields/:fieldId", h.Forms.UpdateField)
		formGrp.DELETE("/:id/fields/:fieldId", h.Forms.DeleteField)
		formGrp.POST("/:id/generate-public-key", h.Forms.GeneratePublicKey)
	}
	anaGrp := adminGrp.Group("/analytics")
	{
		anaGrp.GET("/tasks-and-workorders", h.Analytics.TasksAndWorkorders)
		for _, k := range model.AllKinds() {
			anaGrp.GET("/"+k.BaseTable()+"-by-status", h.Analytics.ByStatus(k))
		}
	}
	logGrp := adminGrp.Group("/operation-logs")
	{
		logGrp.GET("", h.Log.Index)
		logGrp.DELETE("/:id", h.Log.Destroy)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.ErrorBody{Error: "Not found."})
	})
	return r
}
