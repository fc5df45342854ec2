package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-backoffice/internal/logging"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader 队列取空后阻塞到 ctx 取消
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkaGo.Message
	committed []int64
	onDrain   func()
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkaGo.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	if r.onDrain != nil {
		r.onDrain()
	}
	<-ctx.Done()
	return kafkaGo.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func msgAt(offset int64) kafkaGo.Message {
	return kafkaGo.Message{Topic: "backoffice.oplog", Offset: offset, Value: []byte(`{}`)}
}

func runConsumer(t *testing.T, r *fakeReader, cfg ConsumerConfig, h MessageHandler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.onDrain = cancel
	c := newConsumer(r, cfg, nil)
	require.NoError(t, c.Start(ctx, h))
}

func TestConsumer_CommitsAfterSuccess(t *testing.T) {
	r := &fakeReader{queue: []kafkaGo.Message{msgAt(1), msgAt(2)}}
	var seen []int64
	runConsumer(t, r, ConsumerConfig{}, func(_ context.Context, m kafkaGo.Message) error {
		seen = append(seen, m.Offset)
		return nil
	})
	assert.Equal(t, []int64{1, 2}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	r := &fakeReader{queue: []kafkaGo.Message{msgAt(7)}}
	calls := 0
	runConsumer(t, r, ConsumerConfig{MaxRetries: 3, RetryBackoff: time.Millisecond}, func(context.Context, kafkaGo.Message) error {
		calls++
		if calls < 3 {
			return errors.New("db busy")
		}
		return nil
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumer_DropsAfterRetriesExhausted(t *testing.T) {
	r := &fakeReader{queue: []kafkaGo.Message{msgAt(3), msgAt(4)}}
	calls := map[int64]int{}
	runConsumer(t, r, ConsumerConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, func(_ context.Context, m kafkaGo.Message) error {
		calls[m.Offset]++
		if m.Offset == 3 {
			return errors.New("always fails")
		}
		return nil
	})
	assert.Equal(t, 3, calls[3], "首次 + 2 次重试")
	assert.Equal(t, 1, calls[4])
	assert.Equal(t, []int64{3, 4}, r.committed, "耗尽重试后仍提交，避免卡住分区")
}

func TestConsumer_CancelDuringBackoffSkipsCommit(t *testing.T) {
	r := &fakeReader{queue: []kafkaGo.Message{msgAt(9)}}
	ctx, cancel := context.WithCancel(context.Background())
	c := newConsumer(r, ConsumerConfig{MaxRetries: 5, RetryBackoff: time.Hour}, nil)
	err := c.Start(ctx, func(context.Context, kafkaGo.Message) error {
		cancel()
		return errors.New("fail")
	})
	require.NoError(t, err)
	assert.Empty(t, r.committed)
}

func TestConsumer_TraceIDHeaderReachesHandler(t *testing.T) {
	m := msgAt(1)
	m.Headers = []kafkaGo.Header{{Key: "trace_id", Value: []byte("trace-abc")}}
	r := &fakeReader{queue: []kafkaGo.Message{m}}
	var got string
	runConsumer(t, r, ConsumerConfig{}, func(ctx context.Context, _ kafkaGo.Message) error {
		got, _ = ctx.Value(logging.TraceIDKey).(string)
		return nil
	})
	assert.Equal(t, "trace-abc", got)
}
