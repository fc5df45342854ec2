package boot

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go-backoffice/internal/config"
	"go-backoffice/internal/discovery/etcd"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"
	"go-backoffice/internal/mq/kafka"
	"go-backoffice/internal/pkg/cache"
	redisrepo "go-backoffice/internal/repository/redis"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	go_otel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

type App struct {
	Config *config.Config
	Logger *logging.Logger
	DB     *gorm.DB
	Redis  *redisrepo.Client
	Kafka  *kafka.Producer
	Etcd   *etcd.Client
	HTTP   *gin.Engine

	OpLogSender *kafka.AsyncSender
	Views       *cache.LayeredCache

	tracerProv *trace.TracerProvider
	stopCh     chan struct{}
}

func NewApp(c *config.Config, l *logging.Logger, db *gorm.DB, r *redisrepo.Client, k *kafka.Producer, e *etcd.Client, engine *gin.Engine, sender *kafka.AsyncSender, views *cache.LayeredCache) *App {
	app := &App{Config: c, Logger: l, DB: db, Redis: r, Kafka: k, Etcd: e, HTTP: engine, OpLogSender: sender, Views: views, stopCh: make(chan struct{})}
	metrics.DBUp.Set(1)
	if sender != nil {
		sender.Start()
	}
	if r != nil {
		app.startRedisHeartbeat()
	}
	if e != nil {
		go app.registerService()
	}
	if c.OTel.Enable {
		app.initTracing()
	}
	return app
}

// startRedisHeartbeat 启动时 ping 一次，之后按 heartbeat_sec 更新 RedisUp，仅在状态切换时打日志
func (a *App) startRedisHeartbeat() {
	c, l, r := a.Config, a.Logger, a.Redis
	pingTimeout := time.Duration(c.Redis.PingTimeoutMS) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	err := r.Ping(ctx)
	cancel()
	lastUp := err == nil
	if err != nil {
		metrics.RedisUp.Set(0)
		l.Error("redis_ping_failed", zap.Error(err), zap.String("addr", c.Redis.Addr))
	} else {
		metrics.RedisUp.Set(1)
		l.Info("redis_ping_ok", zap.String("addr", c.Redis.Addr))
	}
	interval := time.Duration(c.Redis.HeartbeatSec) * time.Second
	if interval < 2*time.Second {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				ctx2, cancel2 := context.WithTimeout(context.Background(), pingTimeout)
				err := r.Ping(ctx2)
				cancel2()
				if err != nil {
					metrics.RedisUp.Set(0)
					if lastUp {
						l.Warn("redis_down", zap.Error(err))
					}
					lastUp = false
					continue
				}
				metrics.RedisUp.Set(1)
				if !lastUp {
					l.Info("redis_recovered")
				}
				lastUp = true
			}
		}
	}()
}

// registerService 失败指数退避，最多 5 次；注册成功后由 etcd.Client 负责续约与掉线重注册
func (a *App) registerService() {
	c, l := a.Config, a.Logger
	ip := firstNonLoopbackIPv4()
	if ip == "" {
		ip = "127.0.0.1"
	}
	inst := etcd.Instance{
		ID:          uuid.NewString(),
		Env:         c.AppMeta.Env,
		Version:     c.AppMeta.Version,
		IP:          ip,
		Port:        listenPort(c.HTTP.Addr),
		Addr:        c.HTTP.Addr,
		StartupUnix: time.Now().Unix(),
	}
	const maxAttempts = 5
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		key, err := a.Etcd.Register(ctx, inst)
		cancel()
		if err == nil {
			metrics.EtcdUp.Set(1)
			l.Info("etcd_registered", zap.String("key", key), zap.String("instance_id", inst.ID))
			return
		}
		if attempt >= maxAttempts {
			l.Error("etcd_register_failed", zap.Error(err), zap.Int("attempt", attempt))
			return
		}
		backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
		l.Warn("etcd_register_retry", zap.Error(err), zap.Int("attempt", attempt), zap.Duration("backoff", backoff))
		select {
		case <-a.stopCh:
			return
		case <-time.After(backoff):
		}
	}
}

func (a *App) initTracing() {
	c, l := a.Config, a.Logger
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.OTel.Endpoint)}
	if c.OTel.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		l.Error("otel_exporter_init_failed", zap.Error(err))
		return
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(c.AppMeta.Name),
		semconv.ServiceVersionKey.String(c.AppMeta.Version),
	))
	sampler := trace.ParentBased(trace.TraceIDRatioBased(c.OTel.SamplerRatio))
	a.tracerProv = trace.NewTracerProvider(trace.WithBatcher(exp), trace.WithResource(res), trace.WithSampler(sampler))
	go_otel.SetTracerProvider(a.tracerProv)
	l.Info("otel_tracer_provider_initialized")
	if a.DB != nil {
		if err := a.DB.Use(tracing.NewPlugin()); err != nil {
			l.Error("gorm_tracing_plugin_failed", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := redisotel.InstrumentTracing(a.Redis.Client); err != nil {
			l.Error("redis_tracing_hook_failed", zap.Error(err))
		}
	}
}

// Server 按配置的超时构造 http.Server
func (a *App) Server() *http.Server {
	h := a.Config.HTTP
	return &http.Server{
		Addr:              h.Addr,
		Handler:           a.HTTP,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(h.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(h.WriteTimeoutSec) * time.Second,
	}
}

// Run 监听直到 ctx 取消或服务异常退出，然后优雅停机并释放资源
func (a *App) Run(ctx context.Context) error {
	srv := a.Server()
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http_server_start", zap.String("addr", srv.Addr), zap.String("env", a.Config.AppMeta.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.Logger.Error("http_server_error", zap.Error(runErr))
	}
	a.Logger.Info("shutting_down")
	timeout := time.Duration(a.Config.HTTP.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http_shutdown_timeout", zap.Error(err))
	}
	a.Close()
	return runErr
}

// Close 逆序释放：先下线 etcd，再清空异步队列，最后关闭连接
func (a *App) Close() {
	close(a.stopCh)
	if a.Etcd != nil && a.Etcd.Registered() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.Etcd.Deregister(ctx); err != nil {
			a.Logger.Error("etcd_deregister_failed", zap.Error(err))
		}
		cancel()
		metrics.EtcdUp.Set(0)
	}
	if a.OpLogSender != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.OpLogSender.Close(ctx); err != nil {
			a.Logger.Warn("oplog_sender_close_timeout", zap.Error(err))
		}
		cancel()
	}
	if a.Views != nil {
		s := a.Views.Snapshot()
		a.Logger.Info("public_form_cache_stats", zap.Uint64("hits_l1", s.HitsL1), zap.Uint64("hits_l2", s.HitsL2), zap.Uint64("miss", s.Miss), zap.Uint64("l2_errors", s.L2Errors), zap.Float64("hit_rate", s.HitRate))
	}
	if a.Kafka != nil {
		if err := a.Kafka.Close(); err != nil {
			a.Logger.Error("kafka_close_error", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis_close_error", zap.Error(err))
		}
	}
	if a.Etcd != nil {
		if err := a.Etcd.Close(); err != nil {
			a.Logger.Error("etcd_close_error", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("db_close_error", zap.Error(err))
			}
		}
	}
	if a.tracerProv != nil {
		if err := a.tracerProv.Shutdown(context.Background()); err != nil {
			a.Logger.Error("otel_tracer_shutdown_error", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// listenPort ":8080" / "0.0.0.0:8080" -> "8080"
func listenPort(addr string) string {
	if addr == "" {
		return "8080"
	}
	if _, p, err := net.SplitHostPort(addr); err == nil && p != "" {
		return p
	}
	return "0"
}

func firstNonLoopbackIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if ip4 := ip.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}
