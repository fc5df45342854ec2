package model

import "time"

const (
	FormTypeVendor   = "vendor"
	FormTypeProspect = "prospect"
)

// Form 可公开的动态表单，拥有一组有序的 FormField（级联删除）
type Form struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	Name        string      `gorm:"column:name;size:255;not null" json:"name"`
	Description *string     `gorm:"column:description;type:text" json:"description"`
	Type        string      `gorm:"column:type;size:20;not null" json:"type"`
	IsActive    bool        `gorm:"column:is_active;not null" json:"is_active"`
	IsPublic    bool        `gorm:"column:is_public;not null" json:"is_public"`
	PublicKey   *string     `gorm:"column:public_key;size:64;uniqueIndex" json:"public_key"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Fields      []FormField `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"form_fields"`
}

func (Form) TableName() string { return "forms" }

// FormField 以字段名引用 vendor/prospect 的列，不建外键；展示元数据在读取时按名查找
type FormField struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	FormID       int64     `gorm:"column:form_id;index;not null" json:"form_id"`
	FieldName    string    `gorm:"column:field_name;size:255;not null" json:"field_name"`
	FieldSource  string    `gorm:"column:field_source;size:20;not null" json:"field_source"`
	DisplayOrder int       `gorm:"column:display_order;not null" json:"display_order"`
	IsRequired   bool      `gorm:"column:is_required;not null" json:"is_required"`
	IsVisible    bool      `gorm:"column:is_visible;not null" json:"is_visible"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (FormField) TableName() string { return "form_fields" }
