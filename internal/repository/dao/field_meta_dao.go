package dao

import (
	"context"
	"errors"

	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

// FieldMetaDAO 四张字段元数据表共用，按 kind 选表
type FieldMetaDAO struct{ DB *gorm.DB }

func NewFieldMetaDAO(db *gorm.DB) *FieldMetaDAO { return &FieldMetaDAO{DB: db} }

func (d *FieldMetaDAO) table(ctx context.Context, kind model.EntityKind) *gorm.DB {
	return d.DB.WithContext(ctx).Table(kind.MetaTable())
}

func (d *FieldMetaDAO) List(ctx context.Context, kind model.EntityKind) ([]model.FieldMeta, error) {
	var list []model.FieldMeta
	if err := d.table(ctx, kind).Order("display_order ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *FieldMetaDAO) ListByNames(ctx context.Context, kind model.EntityKind, names []string) ([]model.FieldMeta, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var list []model.FieldMeta
	if err := d.table(ctx, kind).Where("field_name IN ?", names).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (d *FieldMetaDAO) FindByID(ctx context.Context, kind model.EntityKind, id int64) (*model.FieldMeta, error) {
	var m model.FieldMeta
	if err := d.table(ctx, kind).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindByName 同名多行时取最早的一行
func (d *FieldMetaDAO) FindByName(ctx context.Context, kind model.EntityKind, name string) (*model.FieldMeta, error) {
	var m model.FieldMeta
	if err := d.table(ctx, kind).Where("field_name = ?", name).Order("id ASC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (d *FieldMetaDAO) Create(ctx context.Context, kind model.EntityKind, m *model.FieldMeta) error {
	return d.table(ctx, kind).Create(m).Error
}

// Save 全字段更新（含 false / 0）
func (d *FieldMetaDAO) Save(ctx context.Context, kind model.EntityKind, m *model.FieldMeta) error {
	return d.table(ctx, kind).Save(m).Error
}

// UpdateOrder 只改 display_order，其余属性不动
func (d *FieldMetaDAO) UpdateOrder(ctx context.Context, kind model.EntityKind, id int64, order int) error {
	return d.table(ctx, kind).Where("id = ?", id).Update("display_order", order).Error
}

func (d *FieldMetaDAO) Delete(ctx context.Context, kind model.EntityKind, id int64) (int64, error) {
	res := d.table(ctx, kind).Where("id = ?", id).Delete(&model.FieldMeta{})
	return res.RowsAffected, res.Error
}

// CountByName 供唯一性检查与测试使用
func (d *FieldMetaDAO) CountByName(ctx context.Context, kind model.EntityKind, name string) (int64, error) {
	var n int64
	err := d.table(ctx, kind).Where("field_name = ?", name).Count(&n).Error
	return n, err
}
