package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxDataLen = 2000

// Entry 管理端操作日志消息体（observability.OperationLog 中间件产出）
type Entry struct {
	ActionName string   `json:"action_name"`
	Path       string   `json:"path"`
	Method     string   `json:"method"`
	Status     int      `json:"status"`
	LatencyMs  int64    `json:"latency_ms"`
	IP         string   `json:"ip"`
	UserID     int64    `json:"user_id"`
	Time       string   `json:"time"`
	Body       string   `json:"body"`
	TraceID    string   `json:"trace_id"`
	Errors     []string `json:"errors,omitempty"`
}

// Store operation_logs 落库（dao.OperationLogDAO）
type Store interface {
	Create(ctx context.Context, l *model.OperationLog) error
}

type Handler struct {
	Store  Store
	Logger *logging.Logger
}

func NewHandler(s Store, l *logging.Logger) *Handler { return &Handler{Store: s, Logger: l} }

// Handle 解析失败的消息直接跳过（记日志），避免毒消息卡住消费
func (h *Handler) Handle(ctx context.Context, m kafkaGo.Message) error {
	var e Entry
	if err := json.Unmarshal(m.Value, &e); err != nil {
		logging.FromContext(ctx, h.Logger).Warn("oplog_unmarshal_failed", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	rec := ToOperationLog(e, time.Now())
	if err := h.Store.Create(ctx, &rec); err != nil {
		return fmt.Errorf("save operation log: %w", err)
	}
	return nil
}

// ToOperationLog 时间解析失败时使用 now
func ToOperationLog(e Entry, now time.Time) model.OperationLog {
	ts := now.Unix()
	if t, err := time.Parse(time.RFC3339, e.Time); err == nil {
		ts = t.Unix()
	}
	action := e.ActionName
	if action == "" {
		action = e.Method + " " + e.Path
	}
	return model.OperationLog{
		ActionName: truncate(action, 100),
		UID:        e.UserID,
		AddTime:    ts,
		Data:       truncate(e.Body, maxDataLen),
		URL:        truncate(e.Path, 200),
		Method:     e.Method,
		Status:     e.Status,
		LatencyMs:  e.LatencyMs,
		IP:         e.IP,
		TraceID:    e.TraceID,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
