package model

import "time"

// FieldMeta 对应 vendor_fields / prospect_fields / task_fields / workorder_fields，
// 四张表结构一致，DAO 通过 Table(kind.MetaTable()) 选表。
// field_name 在同一实体类别内唯一，由应用层保证。
type FieldMeta struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	FieldName       string    `gorm:"column:field_name;size:255;not null" json:"field_name"`
	FieldLabel      string    `gorm:"column:field_label;size:255;not null" json:"field_label"`
	FieldType       *string   `gorm:"column:field_type;type:text" json:"field_type"` // 自由文本，仅作展示提示
	FieldOptions    *string   `gorm:"column:field_options;type:text" json:"field_options,omitempty"`
	ValidationRules *string   `gorm:"column:validation_rules;type:text" json:"validation_rules,omitempty"`
	IsRequired      bool      `gorm:"column:is_required;not null" json:"is_required"`
	IsActive        bool      `gorm:"column:is_active;not null" json:"is_active"`
	DisplayOrder    int       `gorm:"column:display_order;not null" json:"display_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
