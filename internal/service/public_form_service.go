package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"
	"go-backoffice/internal/pkg/cache"
	"go-backoffice/internal/repository/dao"
	"go-backoffice/internal/util/retcode"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// 三种不可用情况（key 不存在 / 未公开 / 已停用）对外一律同一条消息
	MsgFormNotAvailable = "Form not found or not available."
	MsgFieldRequired    = "This field is required"
	MsgSubmitted        = "Form submitted successfully!"

	EventFormSubmitted = "form.submitted"
)

type PublicFormSummary struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Type        string  `json:"type"`
}

// PublicFormView 匿名访问的表单：只含可见字段，按 display_order 排序
type PublicFormView struct {
	Form   PublicFormSummary   `json:"form"`
	Fields []EnrichedFormField `json:"fields"`
}

// FormSubmittedEvent 提交成功后发往 Kafka
type FormSubmittedEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	FormID      int64     `json:"form_id"`
	RecordType  string    `json:"record_type"`
	RecordID    int64     `json:"record_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type PublicFormService struct {
	Forms   *dao.FormDAO
	Records *dao.RecordDAO
	Meta    FieldMetaStore
	Views   cache.Cache
	ViewTTL time.Duration
	Events  EventPublisher
	Logger  *logging.Logger

	Now func() time.Time
}

func NewPublicFormService(forms *dao.FormDAO, records *dao.RecordDAO, meta FieldMetaStore, views cache.Cache, viewTTL time.Duration, events EventPublisher, l *logging.Logger) *PublicFormService {
	return &PublicFormService{Forms: forms, Records: records, Meta: meta, Views: views, ViewTTL: viewTTL, Events: events, Logger: l, Now: time.Now}
}

// Get 先查视图缓存；不可用的表单不缓存，避免下线后仍可见
func (s *PublicFormService) Get(ctx context.Context, key string) (*PublicFormView, error) {
	const failMsg = "Failed to fetch form."
	lg := logging.FromContext(ctx, s.Logger)
	ck := publicViewKey(key)
	if s.Views != nil && s.ViewTTL > 0 {
		if str, _ := s.Views.Get(ctx, ck); str != "" {
			var v PublicFormView
			if err := json.Unmarshal([]byte(str), &v); err == nil {
				metrics.PublicFormCache.WithLabelValues("hit").Inc()
				return &v, nil
			}
			lg.Warn("public_form_cache_corrupt", zap.String("key", ck))
		}
		metrics.PublicFormCache.WithLabelValues("miss").Inc()
	}

	f, err := s.Forms.FindPublished(ctx, key, true)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if f == nil {
		return nil, apperr.NotFound(MsgFormNotAvailable)
	}
	fallback := PublicFallbackType
	fields, err := enrichFields(ctx, s.Meta, f.Fields, &fallback)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	for i := range fields {
		fields[i].FormID = 0
	}
	v := &PublicFormView{
		Form:   PublicFormSummary{ID: f.ID, Name: f.Name, Description: f.Description, Type: f.Type},
		Fields: fields,
	}
	if s.Views != nil && s.ViewTTL > 0 {
		if b, err := json.Marshal(v); err == nil {
			_ = s.Views.SetEX(ctx, ck, string(b), s.ViewTTL)
		}
	}
	return v, nil
}

// isBlank 缺失、null、空串、空数组/对象都算没填
func isBlank(v interface{}, present bool) bool {
	if !present || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// columnValue 数组/对象按 JSON 文本落库，标量原样写入
func columnValue(v interface{}) interface{} {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}

// Submit 查找 -> 校验必填 -> 映射 -> 写入 vendors/prospects。
// 只复制表单字段对应的 key，其余提交内容直接丢弃。
func (s *PublicFormService) Submit(ctx context.Context, key string, payload map[string]interface{}) (err error) {
	const failMsg = "Failed to submit form. Please try again."
	outcome := "internal_error"
	defer func() {
		if err == nil {
			outcome = "created"
		} else if k := apperr.KindOf(err); k != retcode.Internal {
			outcome = k.String()
		}
		metrics.PublicSubmissionTotal.WithLabelValues(outcome).Inc()
	}()

	f, err := s.Forms.FindPublished(ctx, key, false)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	if f == nil {
		return apperr.NotFound(MsgFormNotAvailable)
	}
	kind, ok := model.ParseEntityKind(f.Type)
	if !ok || !kind.Formable() {
		return apperr.Internal(failMsg, fmt.Errorf("%w: %q", model.ErrUnknownKind, f.Type))
	}

	errs := map[string]string{}
	data := make(map[string]interface{}, len(f.Fields)+2)
	for _, ff := range f.Fields {
		v, present := payload[ff.FieldName]
		if ff.IsRequired && isBlank(v, present) {
			errs[ff.FieldName] = MsgFieldRequired
			continue
		}
		if present && v != nil {
			data[ff.FieldName] = columnValue(v)
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}
	now := s.Now()
	data["created_at"] = now
	data["updated_at"] = now

	id, err := s.Records.Insert(ctx, kind.BaseTable(), data)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	s.publish(ctx, FormSubmittedEvent{
		EventID:     uuid.NewString(),
		Type:        EventFormSubmitted,
		FormID:      f.ID,
		RecordType:  string(kind),
		RecordID:    id,
		SubmittedAt: now,
	})
	return nil
}

// publish 事件发送失败只记日志，不影响提交结果
func (s *PublicFormService) publish(ctx context.Context, e FormSubmittedEvent) {
	if s.Events == nil {
		return
	}
	lg := logging.FromContext(ctx, s.Logger)
	b, err := json.Marshal(e)
	if err != nil {
		lg.Error("event_marshal_failed", zap.Error(err))
		return
	}
	if err := s.Events.Send(ctx, []byte(e.EventID), b); err != nil {
		metrics.EventPublish.WithLabelValues(e.Type, "error").Inc()
		lg.Warn("event_publish_failed", zap.String("event", e.Type), zap.Int64("form_id", e.FormID), zap.Error(err))
		return
	}
	metrics.EventPublish.WithLabelValues(e.Type, "ok").Inc()
}
