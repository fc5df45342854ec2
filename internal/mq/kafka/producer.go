package kafka

import (
	"context"
	"errors"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoTopic = errors.New("kafka: empty topic")

type Config struct {
	Brokers []string
}

// Producer 不绑定 topic 的 Writer，每条消息自带 topic；附带 OpenTelemetry 发送埋点
type Producer struct{ *kafkaGo.Writer }

// NewProducer brokers 为空时返回 nil，调用方按未启用处理
func NewProducer(cfg Config) *Producer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(cfg.Brokers...),
		RequiredAcks:           kafkaGo.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{w}
}

func (p *Producer) startSpan(ctx context.Context, topic string) (context.Context, trace.Span) {
	tr := otel.GetTracerProvider().Tracer("kafka-producer")
	attrs := []attribute.KeyValue{
		semconv.MessagingSystem("kafka"),
		semconv.MessagingDestinationName(topic),
		attribute.String("messaging.destination_kind", "topic"),
	}
	return tr.Start(ctx, "kafka.produce", trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(attrs...))
}

// injectHeaders W3C traceparent / baggage；已有同名 header 不覆盖
func injectHeaders(ctx context.Context, headers []kafkaGo.Header) []kafkaGo.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	existing := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		existing[h.Key] = struct{}{}
	}
	for k, v := range carrier {
		if _, ok := existing[k]; ok {
			continue
		}
		headers = append(headers, kafkaGo.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func buildMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) kafkaGo.Message {
	hs := make([]kafkaGo.Header, 0, len(headers))
	for k, v := range headers {
		hs = append(hs, kafkaGo.Header{Key: k, Value: []byte(v)})
	}
	return kafkaGo.Message{Topic: topic, Key: key, Value: value, Time: time.Now(), Headers: injectHeaders(ctx, hs)}
}

// SendTo 同步发送一条消息
func (p *Producer) SendTo(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	if topic == "" {
		return ErrNoTopic
	}
	ctx, span := p.startSpan(ctx, topic)
	defer span.End()
	if err := p.Writer.WriteMessages(ctx, buildMessage(ctx, topic, key, value, headers)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}
	return nil
}

// Ping 写空批次探测连通性
func (p *Producer) Ping(ctx context.Context) error { return p.Writer.WriteMessages(ctx) }

func (p *Producer) Close() error { return p.Writer.Close() }

// TopicPublisher 绑定单个 topic 的发送端（领域事件）
type TopicPublisher struct {
	P     *Producer
	Topic string
}

func NewTopicPublisher(p *Producer, topic string) *TopicPublisher {
	if p == nil {
		return nil
	}
	return &TopicPublisher{P: p, Topic: topic}
}

func (t *TopicPublisher) Send(ctx context.Context, key, value []byte) error {
	return t.P.SendTo(ctx, t.Topic, key, value, nil)
}
