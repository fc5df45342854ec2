package kafka

import (
	"context"
	"errors"
	"time"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int
	// MaxRetries handler 失败后的重试次数，耗尽后提交 offset 并丢弃
	MaxRetries   int
	RetryBackoff time.Duration
}

type MessageHandler func(ctx context.Context, msg kafkaGo.Message) error

// messageReader kafkaGo.Reader 中消费者用到的部分
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkaGo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// Consumer 手动提交：handler 成功或重试耗尽后才提交 offset，
// 进程在处理中途退出时消息会被重新投递
type Consumer struct {
	reader     messageReader
	logger     *logging.Logger
	maxRetries int
	backoff    time.Duration
}

func NewConsumer(cfg ConsumerConfig, l *logging.Logger) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1 << 10
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return newConsumer(reader, cfg, l)
}

func newConsumer(r messageReader, cfg ConsumerConfig, l *logging.Logger) *Consumer {
	if l == nil {
		l = logging.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &Consumer{reader: r, logger: l, maxRetries: cfg.MaxRetries, backoff: cfg.RetryBackoff}
}

// Start 阻塞消费，ctx 取消时返回 nil
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	if c.reader == nil {
		return errors.New("nil reader")
	}
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !c.process(ctx, m, handler) {
			// ctx 取消导致未处理完，不提交
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// process 返回 false 表示 ctx 在重试等待中被取消
func (c *Consumer) process(ctx context.Context, m kafkaGo.Message, handler MessageHandler) bool {
	msgCtx, span := startConsumeSpan(ctx, m)
	defer span.End()
	lg := c.logger.WithContext(msgCtx)

	var err error
	for attempt := 0; ; attempt++ {
		if err = handler(msgCtx, m); err == nil {
			metrics.KafkaConsumed.WithLabelValues(m.Topic, "ok").Inc()
			return true
		}
		span.RecordError(err)
		if attempt >= c.maxRetries {
			break
		}
		lg.Warn("kafka_handler_retry", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff * time.Duration(attempt+1)):
		}
	}
	span.SetStatus(codes.Error, err.Error())
	metrics.KafkaConsumed.WithLabelValues(m.Topic, "dropped").Inc()
	lg.Error("kafka_message_dropped",
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.Error(err),
	)
	return true
}

// startConsumeSpan 从 header 提取 W3C 上下文；trace_id header 放进 ctx 供日志使用
func startConsumeSpan(ctx context.Context, m kafkaGo.Message) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, h := range m.Headers {
		carrier[h.Key] = string(h.Value)
	}
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
	if v := carrier["trace_id"]; v != "" {
		msgCtx = context.WithValue(msgCtx, logging.TraceIDKey, v)
	}
	return otel.Tracer("kafka-consumer").Start(msgCtx, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("kafka"),
			semconv.MessagingDestinationName(m.Topic),
			attribute.Int("messaging.kafka.partition", m.Partition),
			attribute.Int64("messaging.kafka.offset", m.Offset),
			attribute.Int("messaging.message.size", len(m.Value)),
		))
}

func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
