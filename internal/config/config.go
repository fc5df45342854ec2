package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr               string   `mapstructure:"addr"`
		CORSOrigins        []string `mapstructure:"cors_origins"` // 为空表示放行任意来源
		ReadTimeoutSec     int      `mapstructure:"read_timeout_sec"`
		WriteTimeoutSec    int      `mapstructure:"write_timeout_sec"`
		ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec"`
	} `mapstructure:"http"`
	Database struct {
		Driver      string `mapstructure:"driver"` // postgres | mysql
		DSN         string `mapstructure:"dsn"`
		MaxOpen     int    `mapstructure:"max_open"`
		MaxIdle     int    `mapstructure:"max_idle"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
		LogLevel    string `mapstructure:"log_level"` // silent | error | warn | info
	} `mapstructure:"database"`
	Redis struct {
		Addr           string `mapstructure:"addr"`
		Password       string `mapstructure:"password"`
		DB             int    `mapstructure:"db"`
		DialTimeoutMS  int    `mapstructure:"dial_timeout_ms"`
		ReadTimeoutMS  int    `mapstructure:"read_timeout_ms"`
		WriteTimeoutMS int    `mapstructure:"write_timeout_ms"`
		PingTimeoutMS  int    `mapstructure:"ping_timeout_ms"`
		HeartbeatSec   int    `mapstructure:"heartbeat_sec"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers         []string `mapstructure:"brokers"`
		OpLogTopic      string   `mapstructure:"op_log_topic"`
		SubmissionTopic string   `mapstructure:"submission_topic"`
		ConsumerGroup   string   `mapstructure:"consumer_group"`
		ConsumerRetries int      `mapstructure:"consumer_retries"`
	} `mapstructure:"kafka"`
	Etcd struct {
		Endpoints []string `mapstructure:"endpoints"`
		TTL       int      `mapstructure:"ttl"`
		Prefix    string   `mapstructure:"prefix"`
	} `mapstructure:"etcd"`
	JWT struct {
		Enable bool   `mapstructure:"enable"`
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	AppMeta struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
		Env     string `mapstructure:"env"`
	} `mapstructure:"app_meta"`
	PublicForm struct {
		FrontendURL     string `mapstructure:"frontend_url"`
		CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
		CacheMaxEntries int    `mapstructure:"cache_max_entries"` // 本地 L1 上限，0 表示不限
		SubmitPerMinute int    `mapstructure:"submit_per_minute"` // 每 IP 每分钟提交上限，0 表示不限
	} `mapstructure:"public_form"`
	OTel struct {
		Endpoint     string  `mapstructure:"endpoint"`
		Insecure     bool    `mapstructure:"insecure"`
		SamplerRatio float64 `mapstructure:"sampler_ratio"`
		Enable       bool    `mapstructure:"enable"`
	} `mapstructure:"otel"`
}

// Load 读取 YAML 配置；BACKOFFICE_ 前缀环境变量可覆盖同名键（点号换成下划线）
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	// 默认值
	v.SetDefault("http.read_timeout_sec", 15)
	v.SetDefault("http.write_timeout_sec", 15)
	v.SetDefault("http.shutdown_timeout_sec", 10)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("app_meta.name", "go-backoffice")
	v.SetDefault("app_meta.version", "v1")
	v.SetDefault("app_meta.env", "dev")
	v.SetDefault("redis.dial_timeout_ms", 500)
	v.SetDefault("redis.read_timeout_ms", 300)
	v.SetDefault("redis.write_timeout_ms", 300)
	v.SetDefault("redis.ping_timeout_ms", 300)
	v.SetDefault("redis.heartbeat_sec", 10)
	v.SetDefault("kafka.op_log_topic", "backoffice.oplog")
	v.SetDefault("kafka.submission_topic", "backoffice.form_submitted")
	v.SetDefault("kafka.consumer_group", "backoffice-oplog")
	v.SetDefault("kafka.consumer_retries", 3)
	v.SetDefault("etcd.ttl", 10)
	v.SetDefault("etcd.prefix", "/services/backoffice")
	v.SetDefault("public_form.frontend_url", "http://localhost:3000")
	v.SetDefault("public_form.cache_ttl_seconds", 30)
	v.SetDefault("public_form.cache_max_entries", 1000)
	v.SetDefault("public_form.submit_per_minute", 20)
	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.sampler_ratio", 1.0)
	v.SetDefault("otel.insecure", true)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver %q not supported (postgres|mysql)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn required")
	}
	if c.JWT.Enable && len(c.JWT.Secret) < 16 {
		return fmt.Errorf("jwt.secret too short (>=16)")
	}
	if c.PublicForm.CacheTTLSeconds < 0 || c.PublicForm.SubmitPerMinute < 0 || c.PublicForm.CacheMaxEntries < 0 {
		return errors.New("public_form limits must be >=0")
	}
	if c.OTel.Enable {
		if c.OTel.Endpoint == "" {
			return errors.New("otel.endpoint required when otel.enable=true")
		}
		if c.OTel.SamplerRatio < 0 || c.OTel.SamplerRatio > 1 {
			return errors.New("otel.sampler_ratio must be in [0,1]")
		}
	}
	return nil
}
