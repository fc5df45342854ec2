package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"
	"go-backoffice/internal/pkg/cache"

	"go.uber.org/zap"
)

// ReconciledField 一列实时字段与其元数据合并后的展示描述
type ReconciledField struct {
	ID           *int64 `json:"id"`
	FieldName    string `json:"field_name"`
	FieldLabel   string `json:"field_label"`
	FieldType    string `json:"field_type"`
	DBType       string `json:"db_type"`
	IsRequired   bool   `json:"is_required"`
	IsActive     bool   `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

// FieldService 自定义字段引擎：表结构 + 元数据合并，以及元数据的增删改与排序
type FieldService struct {
	Schema SchemaReader
	Meta   FieldMetaStore
	Logger *logging.Logger

	// Forms / Views 元数据变更后失效引用该字段的公开表单视图；任一为 nil 时跳过
	Forms PublishedFormIndex
	Views cache.Cache
}

func NewFieldService(s SchemaReader, m FieldMetaStore, l *logging.Logger) *FieldService {
	return &FieldService{Schema: s, Meta: m, Logger: l}
}

// WithViewInvalidation 公开表单视图缓存取的是读取时的标签和类型，元数据一变就要删
func (s *FieldService) WithViewInvalidation(forms PublishedFormIndex, views cache.Cache) *FieldService {
	s.Forms, s.Views = forms, views
	return s
}

// invalidatePublicViews 失败只记日志，不影响元数据写入结果
func (s *FieldService) invalidatePublicViews(ctx context.Context, kind model.EntityKind, names ...string) {
	if s.Forms == nil || s.Views == nil || !kind.Formable() || len(names) == 0 {
		return
	}
	lg := logging.FromContext(ctx, s.Logger)
	keys, err := s.Forms.PublicKeysUsingFields(ctx, string(kind), names)
	if err != nil {
		lg.Warn("public_form_cache_lookup_failed", zap.String("kind", string(kind)), zap.Strings("fields", names), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	cks := make([]string, len(keys))
	for i, k := range keys {
		cks[i] = publicViewKey(k)
	}
	if err := s.Views.Del(ctx, cks...); err != nil {
		lg.Warn("public_form_cache_del_failed", zap.Strings("keys", cks), zap.Error(err))
	}
}

func kindTitle(k model.EntityKind) string { return Humanize(string(k)) }

// Reconcile 只读、幂等：每个实时列输出一条，按 display_order 稳定排序
func (s *FieldService) Reconcile(ctx context.Context, kind model.EntityKind) ([]ReconciledField, error) {
	start := time.Now()
	defer func() { metrics.ReconcileDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds()) }()

	failMsg := fmt.Sprintf("Failed to fetch %s fields.", kind)
	cols, err := s.Schema.ListColumns(ctx, kind.BaseTable())
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	metas, err := s.Meta.List(ctx, kind)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	byName := make(map[string]*model.FieldMeta, len(metas))
	for i := range metas {
		if _, dup := byName[metas[i].FieldName]; !dup {
			byName[metas[i].FieldName] = &metas[i]
		}
	}

	out := make([]ReconciledField, 0, len(cols))
	for _, col := range cols {
		normalized := NormalizeColumnType(col.NativeType)
		f := ReconciledField{
			FieldName:  col.Name,
			FieldLabel: Humanize(col.Name),
			FieldType:  normalized,
			DBType:     col.NativeType,
		}
		if m, ok := byName[col.Name]; ok {
			id := m.ID
			f.ID = &id
			f.FieldLabel = m.FieldLabel
			if m.FieldType != nil {
				f.FieldType = *m.FieldType
			}
			f.IsRequired = m.IsRequired
			f.IsActive = m.IsActive
			f.DisplayOrder = m.DisplayOrder
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

type UpsertFieldInput struct {
	FieldName    string
	FieldLabel   string
	FieldType    *string
	IsRequired   *bool
	IsActive     *bool
	DisplayOrder *int
}

// Upsert 按 field_name 更新已有行，否则新建；同名永远只有一行
func (s *FieldService) Upsert(ctx context.Context, kind model.EntityKind, in UpsertFieldInput) (*model.FieldMeta, error) {
	failMsg := fmt.Sprintf("Failed to create %s field.", kind)
	name := strings.TrimSpace(in.FieldName)
	label := strings.TrimSpace(in.FieldLabel)
	errs := map[string]string{}
	if name == "" {
		errs["field_name"] = "The field name field is required."
	}
	if label == "" {
		errs["field_label"] = "The field label field is required."
	}
	if len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	m, err := s.Meta.FindByName(ctx, kind, name)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if m == nil {
		m = &model.FieldMeta{FieldName: name}
	}
	m.FieldLabel = label
	if in.FieldType != nil {
		m.FieldType = in.FieldType
	}
	if in.IsRequired != nil {
		m.IsRequired = *in.IsRequired
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.DisplayOrder != nil {
		m.DisplayOrder = *in.DisplayOrder
	}
	if m.ID == 0 {
		err = s.Meta.Create(ctx, kind, m)
	} else {
		err = s.Meta.Save(ctx, kind, m)
	}
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	s.invalidatePublicViews(ctx, kind, m.FieldName)
	return m, nil
}

func (s *FieldService) Show(ctx context.Context, kind model.EntityKind, id int64) (*model.FieldMeta, error) {
	m, err := s.Meta.FindByID(ctx, kind, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("Failed to fetch %s field.", kind), err)
	}
	if m == nil {
		return nil, apperr.NotFound(kindTitle(kind) + " field not found.")
	}
	return m, nil
}

// UpdateFieldInput nil 表示未提交，保持原值；FieldType 只在 SetFieldType 时覆盖（可置空）
type UpdateFieldInput struct {
	FieldName    *string
	FieldLabel   *string
	SetFieldType bool
	FieldType    *string
	IsRequired   *bool
	IsActive     *bool
	DisplayOrder *int
}

func (s *FieldService) Update(ctx context.Context, kind model.EntityKind, id int64, in UpdateFieldInput) (*model.FieldMeta, error) {
	failMsg := fmt.Sprintf("Failed to update %s field.", kind)
	m, err := s.Show(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	oldName := m.FieldName
	errs := map[string]string{}
	if in.FieldName != nil {
		name := strings.TrimSpace(*in.FieldName)
		if name == "" {
			errs["field_name"] = "The field name field is required."
		} else if name != m.FieldName {
			other, err := s.Meta.FindByName(ctx, kind, name)
			if err != nil {
				return nil, apperr.Internal(failMsg, err)
			}
			if other != nil {
				errs["field_name"] = "The field name has already been taken."
			}
			m.FieldName = name
		}
	}
	if in.FieldLabel != nil {
		if label := strings.TrimSpace(*in.FieldLabel); label == "" {
			errs["field_label"] = "The field label field is required."
		} else {
			m.FieldLabel = label
		}
	}
	if len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	if in.SetFieldType {
		m.FieldType = in.FieldType
	}
	if in.IsRequired != nil {
		m.IsRequired = *in.IsRequired
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	if in.DisplayOrder != nil {
		m.DisplayOrder = *in.DisplayOrder
	}
	if err := s.Meta.Save(ctx, kind, m); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if oldName != m.FieldName {
		s.invalidatePublicViews(ctx, kind, oldName, m.FieldName)
	} else {
		s.invalidatePublicViews(ctx, kind, m.FieldName)
	}
	return m, nil
}

// Delete 只删元数据，实时列不受影响
func (s *FieldService) Delete(ctx context.Context, kind model.EntityKind, id int64) error {
	failMsg := fmt.Sprintf("Failed to delete %s field.", kind)
	m, err := s.Meta.FindByID(ctx, kind, id)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	if m == nil {
		return apperr.NotFound(kindTitle(kind) + " field not found.")
	}
	n, err := s.Meta.Delete(ctx, kind, id)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	if n == 0 {
		return apperr.NotFound(kindTitle(kind) + " field not found.")
	}
	s.invalidatePublicViews(ctx, kind, m.FieldName)
	return nil
}

type FieldOrder struct {
	FieldName    string
	DisplayOrder int
}

// Reorder 已有行只改 display_order；没有元数据的列补建一行（人性化标签，is_active=false）。
// 逐条独立执行，中途失败时已写入的保留。
func (s *FieldService) Reorder(ctx context.Context, kind model.EntityKind, items []FieldOrder) error {
	errs := map[string]string{}
	for i, it := range items {
		if strings.TrimSpace(it.FieldName) == "" {
			errs[fmt.Sprintf("fields.%d.field_name", i)] = "The field name field is required."
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}
	lg := logging.FromContext(ctx, s.Logger)
	touched := make([]string, 0, len(items))
	// 中途失败也要失效已写入的部分
	defer func() { s.invalidatePublicViews(ctx, kind, touched...) }()
	for _, it := range items {
		touched = append(touched, it.FieldName)
		m, err := s.Meta.FindByName(ctx, kind, it.FieldName)
		if err == nil {
			if m != nil {
				err = s.Meta.UpdateOrder(ctx, kind, m.ID, it.DisplayOrder)
			} else {
				err = s.Meta.Create(ctx, kind, &model.FieldMeta{
					FieldName:    it.FieldName,
					FieldLabel:   Humanize(it.FieldName),
					DisplayOrder: it.DisplayOrder,
					IsActive:     false,
				})
			}
		}
		if err != nil {
			lg.Error("field_reorder_failed", zap.String("kind", string(kind)), zap.String("field_name", it.FieldName), zap.Error(err))
			return apperr.Internal("Failed to update field order.", err)
		}
	}
	return nil
}
