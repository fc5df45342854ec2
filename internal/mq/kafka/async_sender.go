package kafka

import (
	"context"
	"sync"
	"time"

	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AsyncMessage 入队时刻记录 trace 上下文，flush 时注入 header
type AsyncMessage struct {
	Ctx       context.Context
	Key       []byte
	Value     []byte
	Headers   map[string]string
	EnqueueAt time.Time
}

// AsyncSender 有界队列 + 多 worker 批量写同一个 topic。
// 达到 maxBatch 或等待超过 maxWait 即 flush；队列满直接丢弃。
// 批量写失败时逐条回退重试一次。
type AsyncSender struct {
	producer *Producer
	topic    string
	logger   *logging.Logger
	queue    chan AsyncMessage
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	maxBatch int
	maxWait  time.Duration
}

func NewAsyncSender(p *Producer, topic string, l *logging.Logger, queueSize, workers, maxBatch int, maxWait time.Duration) *AsyncSender {
	if p == nil {
		return nil
	}
	if queueSize <= 0 {
		queueSize = 10000
	}
	if workers <= 0 {
		workers = 1
	}
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if maxWait <= 0 {
		maxWait = 20 * time.Millisecond
	}
	return &AsyncSender{
		producer: p,
		topic:    topic,
		logger:   l,
		queue:    make(chan AsyncMessage, queueSize),
		workers:  workers,
		stopCh:   make(chan struct{}),
		maxBatch: maxBatch,
		maxWait:  maxWait,
	}
}

func (s *AsyncSender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.run()
	}
}

func (s *AsyncSender) run() {
	defer s.wg.Done()
	batch := make([]AsyncMessage, 0, s.maxBatch)
	timer := time.NewTimer(s.maxWait)
	timer.Stop()
	var timerCh <-chan time.Time

	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		s.flush(batch, reason)
		batch = batch[:0]
		timer.Stop()
		timerCh = nil
	}
	for {
		select {
		case <-s.stopCh:
			// 排空队列中剩余消息
			for {
				select {
				case m := <-s.queue:
					metrics.KafkaQueueDepth.Dec()
					batch = append(batch, m)
					if len(batch) >= s.maxBatch {
						flush("shutdown")
					}
				default:
					flush("shutdown")
					return
				}
			}
		case m := <-s.queue:
			metrics.KafkaQueueDepth.Dec()
			batch = append(batch, m)
			if len(batch) == 1 {
				timer.Reset(s.maxWait)
				timerCh = timer.C
			}
			if len(batch) >= s.maxBatch {
				flush("size")
			}
		case <-timerCh:
			flush("timeout")
		}
	}
}

func (s *AsyncSender) flush(batch []AsyncMessage, reason string) {
	start := time.Now()
	msgs := make([]kafkaGo.Message, 0, len(batch))
	for _, m := range batch {
		msgs = append(msgs, buildMessage(m.Ctx, s.topic, m.Key, m.Value, m.Headers))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	err := s.producer.Writer.WriteMessages(ctx, msgs...)
	cancel()
	if err != nil {
		metrics.KafkaSendErrors.WithLabelValues(s.topic).Add(float64(len(batch)))
		if s.logger != nil {
			s.logger.Warn("kafka_batch_write_failed", zap.String("topic", s.topic), zap.Int("size", len(batch)), zap.Error(err))
		}
		for _, m := range batch {
			_ = s.producer.SendTo(m.Ctx, s.topic, m.Key, m.Value, m.Headers)
		}
	}
	metrics.KafkaBatchFlushTotal.WithLabelValues(reason).Inc()
	metrics.KafkaBatchSize.Observe(float64(len(batch)))
	metrics.KafkaFlushDuration.Observe(time.Since(start).Seconds())
}

// Enqueue 非阻塞，队列满或已关闭时丢弃
func (s *AsyncSender) Enqueue(m AsyncMessage) {
	select {
	case <-s.stopCh:
		metrics.KafkaEnqueue.WithLabelValues("dropped").Inc()
		return
	default:
	}
	if m.EnqueueAt.IsZero() {
		m.EnqueueAt = time.Now()
	}
	select {
	case s.queue <- m:
		metrics.KafkaEnqueue.WithLabelValues("ok").Inc()
		metrics.KafkaQueueDepth.Inc()
	default:
		metrics.KafkaEnqueue.WithLabelValues("dropped").Inc()
	}
}

// Close 停止 worker 并尽量写完队列
func (s *AsyncSender) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
