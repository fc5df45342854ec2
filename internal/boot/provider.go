package boot

import (
	"time"

	"go-backoffice/internal/config"
	"go-backoffice/internal/discovery/etcd"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/mq/kafka"
	"go-backoffice/internal/pkg/cache"
	"go-backoffice/internal/repository/dao"
	"go-backoffice/internal/repository/database"
	redisrepo "go-backoffice/internal/repository/redis"
	jwtsec "go-backoffice/internal/security/jwt"
	httpSrv "go-backoffice/internal/server/http"
	handlerset "go-backoffice/internal/server/http/handler"
	adminh "go-backoffice/internal/server/http/handler/admin"
	publich "go-backoffice/internal/server/http/handler/public"
	obs "go-backoffice/internal/server/http/middleware/observability"
	sec "go-backoffice/internal/server/http/middleware/security"
	"go-backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
	"gorm.io/gorm"
)

const defaultTokenTTL = 2 * time.Hour

// ProvideConfig wraps config.Load for wire with external path param
func ProvideConfig(path string) (*config.Config, error) { return config.Load(path) }

func ProvideLogger(c *config.Config) (*logging.Logger, error) {
	return logging.New(c.Log.Level, c.Log.Format)
}

// ProvideDB 按 database.driver 选择方言；auto_migrate 开启时建表
func ProvideDB(c *config.Config) (*gorm.DB, error) {
	db, err := database.New(database.Config{
		Driver:   c.Database.Driver,
		DSN:      c.Database.DSN,
		MaxOpen:  c.Database.MaxOpen,
		MaxIdle:  c.Database.MaxIdle,
		LogLevel: c.Database.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	if c.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func ProvideRedis(c *config.Config) *redisrepo.Client {
	return redisrepo.New(redisrepo.Config{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB,
		DialTimeout:  time.Duration(c.Redis.DialTimeoutMS) * time.Millisecond,
		ReadTimeout:  time.Duration(c.Redis.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout: time.Duration(c.Redis.WriteTimeoutMS) * time.Millisecond,
	})
}

func ProvideKafkaProducer(c *config.Config) *kafka.Producer {
	return kafka.NewProducer(kafka.Config{Brokers: c.Kafka.Brokers})
}

func ProvideEtcd(c *config.Config, l *logging.Logger) (*etcd.Client, error) {
	return etcd.New(etcd.Config{Endpoints: c.Etcd.Endpoints, TTL: c.Etcd.TTL, Prefix: c.Etcd.Prefix}, l)
}

// ProvideJWTManager jwt.enable=false 时返回 nil，后台接口不做认证
func ProvideJWTManager(c *config.Config) *jwtsec.Manager {
	if !c.JWT.Enable {
		return nil
	}
	return jwtsec.NewManager(c.JWT.Secret, defaultTokenTTL, c.JWT.Issuer)
}

func ProvideValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ProvidePublicFormCache 本地 L1 + Redis L2（未配置 Redis 时只有 L1）
func ProvidePublicFormCache(c *config.Config, r *redisrepo.Client) *cache.LayeredCache {
	ttl := time.Duration(c.PublicForm.CacheTTLSeconds) * time.Second
	lc := cache.NewLayered(cache.New(ttl).WithMaxEntries(c.PublicForm.CacheMaxEntries), cache.NewRedisAdapter(r))
	if ttl > 0 {
		lc.BackfillTTL = ttl
	}
	return lc
}

// ProvideEventPublisher 未配置 Kafka 时返回 nil 接口，提交事件不发送
func ProvideEventPublisher(c *config.Config, p *kafka.Producer) service.EventPublisher {
	tp := kafka.NewTopicPublisher(p, c.Kafka.SubmissionTopic)
	if tp == nil {
		return nil
	}
	return tp
}

func ProvideOpLogSender(c *config.Config, p *kafka.Producer, l *logging.Logger) *kafka.AsyncSender {
	return kafka.NewAsyncSender(p, c.Kafka.OpLogTopic, l, 10000, 2, 100, 200*time.Millisecond)
}

// ProvideFieldService 元数据变更要失效公开表单视图缓存
func ProvideFieldService(schema service.SchemaReader, meta service.FieldMetaStore, forms *dao.FormDAO, views *cache.LayeredCache, l *logging.Logger) *service.FieldService {
	return service.NewFieldService(schema, meta, l).WithViewInvalidation(forms, views)
}

func ProvideFormService(c *config.Config, forms *dao.FormDAO, fields *dao.FormFieldDAO, meta service.FieldMetaStore, views *cache.LayeredCache, l *logging.Logger) *service.FormService {
	return service.NewFormService(forms, fields, meta, views, c.PublicForm.FrontendURL, l)
}

func ProvidePublicFormService(c *config.Config, forms *dao.FormDAO, records *dao.RecordDAO, meta service.FieldMetaStore, views *cache.LayeredCache, events service.EventPublisher, l *logging.Logger) *service.PublicFormService {
	ttl := time.Duration(c.PublicForm.CacheTTLSeconds) * time.Second
	return service.NewPublicFormService(forms, records, meta, views, ttl, events, l)
}

func ProvideHandlerSet(fields *service.FieldService, forms *service.FormService, records *service.RecordService, analytics *service.AnalyticsService, logs *service.LogService, public *service.PublicFormService, l *logging.Logger) *handlerset.HandlerSet {
	ad := adminh.Dependencies{Fields: fields, Forms: forms, Records: records, Analytics: analytics, Logs: logs, Logger: l}
	pd := publich.Dependencies{PublicForms: public, Logger: l}
	return handlerset.NewHandlerSet(ad, pd)
}

func ProvideHealthChecker(db *gorm.DB, r *redisrepo.Client, p *kafka.Producer, e *etcd.Client) *httpSrv.HealthChecker {
	return httpSrv.NewHealthChecker(db, r, p, e)
}

// ProvideRouter 可选组件为 nil 指针时转换成 nil 接口，避免中间件拿到非 nil 的空实现
func ProvideRouter(c *config.Config, l *logging.Logger, j *jwtsec.Manager, h *handlerset.HandlerSet, hc *httpSrv.HealthChecker, r *redisrepo.Client, sender *kafka.AsyncSender) *gin.Engine {
	var limiter sec.WindowCounter
	if r != nil {
		limiter = r
	}
	var sink obs.OpLogSink
	if sender != nil {
		sink = sender
	}
	return httpSrv.NewRouter(c, l, j, h, hc, limiter, sink)
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideDB,
	ProvideRedis,
	ProvideKafkaProducer,
	ProvideEtcd,
	ProvideJWTManager,
	ProvideValidator,
	ProvidePublicFormCache,
	ProvideEventPublisher,
	ProvideOpLogSender,
	// DAO
	dao.NewSchemaDAO,
	dao.NewFieldMetaDAO,
	dao.NewFormDAO,
	dao.NewFormFieldDAO,
	dao.NewRecordDAO,
	dao.NewOperationLogDAO,
	wire.Bind(new(service.SchemaReader), new(*dao.SchemaDAO)),
	wire.Bind(new(service.FieldMetaStore), new(*dao.FieldMetaDAO)),
	// Service
	ProvideFieldService,
	ProvideFormService,
	ProvidePublicFormService,
	service.NewRecordService,
	service.NewAnalyticsService,
	service.NewLogService,
	// HTTP
	ProvideHandlerSet,
	ProvideHealthChecker,
	ProvideRouter,
	NewApp,
)
