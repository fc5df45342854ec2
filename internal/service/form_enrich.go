package service

import (
	"context"

	"go-backoffice/internal/domain/model"
)

// EnrichedFormField FormField 加上来源实体的展示元数据
type EnrichedFormField struct {
	ID           int64   `json:"id"`
	FormID       int64   `json:"form_id,omitempty"`
	FieldName    string  `json:"field_name"`
	FieldSource  string  `json:"field_source"`
	DisplayOrder int     `json:"display_order"`
	IsRequired   bool    `json:"is_required"`
	IsVisible    bool    `json:"is_visible"`
	FieldLabel   string  `json:"field_label"`
	FieldType    *string `json:"field_type"`
}

// enrichFields 按来源分组批量查元数据；没有元数据行时标签用人性化字段名，类型用 fallback。
// 有元数据行但类型为空时保持为空
func enrichFields(ctx context.Context, meta FieldMetaStore, fields []model.FormField, fallback *string) ([]EnrichedFormField, error) {
	names := map[model.EntityKind][]string{}
	for _, f := range fields {
		if k, ok := model.ParseEntityKind(f.FieldSource); ok && k.Formable() {
			names[k] = append(names[k], f.FieldName)
		}
	}
	found := map[model.EntityKind]map[string]model.FieldMeta{}
	for k, ns := range names {
		list, err := meta.ListByNames(ctx, k, ns)
		if err != nil {
			return nil, err
		}
		m := make(map[string]model.FieldMeta, len(list))
		for _, fm := range list {
			if _, dup := m[fm.FieldName]; !dup {
				m[fm.FieldName] = fm
			}
		}
		found[k] = m
	}

	out := make([]EnrichedFormField, 0, len(fields))
	for _, f := range fields {
		e := EnrichedFormField{
			ID:           f.ID,
			FormID:       f.FormID,
			FieldName:    f.FieldName,
			FieldSource:  f.FieldSource,
			DisplayOrder: f.DisplayOrder,
			IsRequired:   f.IsRequired,
			IsVisible:    f.IsVisible,
			FieldLabel:   Humanize(f.FieldName),
			FieldType:    fallback,
		}
		if fm, ok := found[model.EntityKind(f.FieldSource)][f.FieldName]; ok {
			e.FieldLabel = fm.FieldLabel
			e.FieldType = fm.FieldType
		}
		out = append(out, e)
	}
	return out, nil
}
