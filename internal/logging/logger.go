package logging

import (
	"context"

	"go.uber.org/zap"
)

type Logger struct {
	*zap.Logger
}

type ctxKey string

const (
	TraceIDKey ctxKey = "trace_id"
	UserIDKey  ctxKey = "user_id"
)

type loggerKey struct{}

func New(level, format string) (*Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}
	lg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{lg}, nil
}

// NewNop 测试及未配置场景使用
func NewNop() *Logger { return &Logger{zap.NewNop()} }

// WithContext 取出 trace_id / user_id 附加到日志字段
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.Logger
	}
	fields := make([]zap.Field, 0, 2)
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		fields = append(fields, zap.String("trace_id", v))
	}
	if id, ok := ctx.Value(UserIDKey).(int64); ok && id > 0 {
		fields = append(fields, zap.Int64("user_id", id))
	}
	if len(fields) == 0 {
		return l.Logger
	}
	return l.Logger.With(fields...)
}

// IntoContext 存放请求级 logger
func IntoContext(ctx context.Context, lg *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, lg)
}

// FromContext 取请求级 logger，不存在时返回 fallback（可为 nil）
func FromContext(ctx context.Context, fallback *Logger) *zap.Logger {
	if ctx != nil {
		if lg, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && lg != nil {
			return lg
		}
	}
	if fallback != nil {
		return fallback.Logger
	}
	return zap.NewNop()
}
