package oplog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Create(ctx context.Context, l *model.OperationLog) error {
	return m.Called(ctx, l).Error(0)
}

func TestHandle_PersistsEntry(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.MatchedBy(func(l *model.OperationLog) bool {
		return l.ActionName == "post_api_forms" && l.UID == 42 && l.Status == 201 && l.TraceID == "t-1"
	})).Return(nil).Once()

	h := NewHandler(store, logging.NewNop())
	msg := kafkaGo.Message{Value: []byte(`{"action_name":"post_api_forms","path":"/api/forms","method":"POST","status":201,"user_id":42,"time":"2026-10-18T08:00:00Z","trace_id":"t-1"}`)}
	require.NoError(t, h.Handle(context.Background(), msg))
	store.AssertExpectations(t)
}

func TestHandle_SkipsPoisonMessage(t *testing.T) {
	store := new(mockStore)
	h := NewHandler(store, logging.NewNop())
	require.NoError(t, h.Handle(context.Background(), kafkaGo.Message{Value: []byte("not json")}))
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandle_StoreErrorIsReturned(t *testing.T) {
	store := new(mockStore)
	store.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	h := NewHandler(store, logging.NewNop())
	err := h.Handle(context.Background(), kafkaGo.Message{Value: []byte(`{"method":"GET"}`)})
	assert.ErrorContains(t, err, "db down")
}

func TestToOperationLog(t *testing.T) {
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	rec := ToOperationLog(Entry{Method: "DELETE", Path: "/api/forms/:id", Time: "bogus", Body: strings.Repeat("x", 2500)}, now)
	assert.Equal(t, "DELETE /api/forms/:id", rec.ActionName)
	assert.Equal(t, now.Unix(), rec.AddTime)
	assert.Len(t, rec.Data, maxDataLen)

	rec = ToOperationLog(Entry{ActionName: "put_api_vendors_id", Time: "2026-01-02T03:04:05Z"}, now)
	assert.Equal(t, "put_api_vendors_id", rec.ActionName)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix(), rec.AddTime)
}
