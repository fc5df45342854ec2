package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/repository/dao"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	taskStatuses = []string{"pending", "in_progress", "completed", "cancelled"}
	priorities   = []string{"low", "medium", "high", "urgent"}
)

// recordRule 各实体的内置校验；自定义列只做白名单过滤，不校验内容
type recordRule struct {
	required string
	maxLen   map[string]int
	enums    map[string][]string
	emails   []string
	defaults map[string]interface{}
	// system 由服务端赋值，提交内容里的同名 key 会被忽略
	system []string
}

var recordRules = map[model.EntityKind]recordRule{
	model.KindVendor: {
		required: "name",
		maxLen:   map[string]int{"name": 255, "email": 255, "phone": 50, "contact_person": 255, "tax_id": 100},
		enums:    map[string][]string{"status": {"active", "inactive", "pending"}},
		emails:   []string{"email"},
		defaults: map[string]interface{}{"status": "active"},
	},
	model.KindProspect: {
		required: "name",
		maxLen:   map[string]int{"name": 255, "email": 255, "phone": 50, "contact_person": 255, "company_name": 255},
		enums:    map[string][]string{"status": {"new", "contacted", "qualified", "converted", "lost"}},
		emails:   []string{"email"},
		defaults: map[string]interface{}{"status": "new"},
	},
	model.KindTask: {
		required: "title",
		maxLen:   map[string]int{"title": 255},
		enums:    map[string][]string{"status": taskStatuses, "priority": priorities},
		defaults: map[string]interface{}{"status": "pending", "priority": "medium", "is_active": true},
		system:   []string{"created_by"},
	},
	model.KindWorkorder: {
		required: "title",
		maxLen:   map[string]int{"title": 255},
		enums:    map[string][]string{"status": taskStatuses, "priority": priorities},
		defaults: map[string]interface{}{"status": "pending", "priority": "medium", "is_active": true},
		system:   []string{"created_by", "workorder_number"},
	},
}

const workorderNumberAttempts = 3

// RecordService vendors/prospects/tasks/workorders 的通用 CRUD，列集合以实时表结构为准
type RecordService struct {
	Schema   SchemaReader
	Records  *dao.RecordDAO
	Validate *validator.Validate
	Logger   *logging.Logger

	Now func() time.Time
}

func NewRecordService(schema SchemaReader, records *dao.RecordDAO, v *validator.Validate, l *logging.Logger) *RecordService {
	if v == nil {
		v = validator.New()
	}
	return &RecordService{Schema: schema, Records: records, Validate: v, Logger: l, Now: time.Now}
}

func (s *RecordService) List(ctx context.Context, kind model.EntityKind) ([]map[string]interface{}, error) {
	rows, err := s.Records.List(ctx, kind.BaseTable())
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("Failed to fetch %s.", kind.BaseTable()), err)
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return rows, nil
}

func (s *RecordService) Show(ctx context.Context, kind model.EntityKind, id int64) (map[string]interface{}, error) {
	row, err := s.Records.Find(ctx, kind.BaseTable(), id)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("Failed to fetch %s.", kind), err)
	}
	if row == nil {
		return nil, apperr.NotFound(kindTitle(kind) + " not found.")
	}
	return row, nil
}

// columns 可写列：实时列去掉系统赋值列
func (s *RecordService) columns(ctx context.Context, kind model.EntityKind) (map[string]struct{}, error) {
	cols, err := s.Schema.ListColumns(ctx, kind.BaseTable())
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		out[c.Name] = struct{}{}
	}
	for _, name := range recordRules[kind].system {
		delete(out, name)
	}
	return out, nil
}

// validate partial=true 时只校验提交了的 key（更新语义）
func (s *RecordService) validate(kind model.EntityKind, payload map[string]interface{}, partial bool) map[string]string {
	rule := recordRules[kind]
	errs := map[string]string{}
	if v, present := payload[rule.required]; !partial || present {
		if isBlank(v, present) {
			errs[rule.required] = fmt.Sprintf("The %s field is required.", rule.required)
		}
	}
	for field, limit := range rule.maxLen {
		if str, ok := payload[field].(string); ok && len([]rune(str)) > limit {
			errs[field] = fmt.Sprintf("The %s may not be greater than %d characters.", field, limit)
		}
	}
	for field, allowed := range rule.enums {
		v, present := payload[field]
		if !present || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok || !contains(allowed, str) {
			errs[field] = fmt.Sprintf("The selected %s is invalid.", field)
		}
	}
	for _, field := range rule.emails {
		v, present := payload[field]
		if !present || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok || s.Validate.Var(str, "email") != nil {
			errs[field] = fmt.Sprintf("The %s must be a valid email address.", field)
		}
	}
	return errs
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func filterColumns(payload map[string]interface{}, cols map[string]struct{}) map[string]interface{} {
	data := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if _, ok := cols[k]; ok {
			data[k] = columnValue(v)
		}
	}
	return data
}

// Create actorID>0 时写入 created_by（task / workorder）
func (s *RecordService) Create(ctx context.Context, kind model.EntityKind, payload map[string]interface{}, actorID int64) (map[string]interface{}, error) {
	failMsg := fmt.Sprintf("Failed to create %s.", kind)
	if errs := s.validate(kind, payload, false); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	cols, err := s.columns(ctx, kind)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	data := filterColumns(payload, cols)
	for k, v := range recordRules[kind].defaults {
		if _, ok := cols[k]; !ok {
			continue
		}
		if cur, present := data[k]; !present || cur == nil {
			data[k] = v
		}
	}
	if actorID > 0 && contains(recordRules[kind].system, "created_by") {
		data["created_by"] = actorID
	}
	now := s.Now()
	data["created_at"] = now
	data["updated_at"] = now

	var id int64
	if kind == model.KindWorkorder {
		id, err = s.insertWorkorder(ctx, data, now)
	} else {
		id, err = s.Records.Insert(ctx, kind.BaseTable(), data)
	}
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	row, err := s.Records.Find(ctx, kind.BaseTable(), id)
	if err != nil || row == nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return row, nil
}

// insertWorkorder 工单号按月递增；并发撞号时重新取号重试
func (s *RecordService) insertWorkorder(ctx context.Context, data map[string]interface{}, now time.Time) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < workorderNumberAttempts; attempt++ {
		num, err := s.NextWorkorderNumber(ctx, now)
		if err != nil {
			return 0, err
		}
		data["workorder_number"] = num
		id, err := s.Records.Insert(ctx, model.KindWorkorder.BaseTable(), data)
		if err == nil {
			return id, nil
		}
		if !dao.IsDuplicate(err) {
			return 0, err
		}
		lastErr = err
		logging.FromContext(ctx, s.Logger).Warn("workorder_number_conflict", zap.String("number", num), zap.Int("attempt", attempt+1))
	}
	return 0, lastErr
}

// NextWorkorderNumber WO-YYYYMM-NNNN，序号取当月最大值 + 1
func (s *RecordService) NextWorkorderNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := "WO-" + now.Format("200601") + "-"
	last, err := s.Records.LastWorkorderNumber(ctx, prefix)
	if err != nil {
		return "", err
	}
	next := 1
	if last != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

func (s *RecordService) Update(ctx context.Context, kind model.EntityKind, id int64, payload map[string]interface{}) (map[string]interface{}, error) {
	failMsg := fmt.Sprintf("Failed to update %s.", kind)
	if _, err := s.Show(ctx, kind, id); err != nil {
		return nil, err
	}
	if errs := s.validate(kind, payload, true); len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	cols, err := s.columns(ctx, kind)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	data := filterColumns(payload, cols)
	data["updated_at"] = s.Now()
	if _, err := s.Records.Update(ctx, kind.BaseTable(), id, data); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	return s.Show(ctx, kind, id)
}

func (s *RecordService) Delete(ctx context.Context, kind model.EntityKind, id int64) error {
	n, err := s.Records.Delete(ctx, kind.BaseTable(), id)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("Failed to delete %s.", kind), err)
	}
	if n == 0 {
		return apperr.NotFound(kindTitle(kind) + " not found.")
	}
	return nil
}
