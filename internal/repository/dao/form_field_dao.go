package dao

import (
	"context"
	"errors"

	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

type FormFieldDAO struct{ DB *gorm.DB }

func NewFormFieldDAO(db *gorm.DB) *FormFieldDAO { return &FormFieldDAO{DB: db} }

// MaxOrder 表单当前最大 display_order，无字段时为 0
func (d *FormFieldDAO) MaxOrder(ctx context.Context, formID int64) (int, error) {
	var n int
	err := d.DB.WithContext(ctx).Model(&model.FormField{}).
		Where("form_id = ?", formID).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&n).Error
	return n, err
}

func (d *FormFieldDAO) Create(ctx context.Context, f *model.FormField) error {
	return d.DB.WithContext(ctx).Create(f).Error
}

// FindInForm 字段必须属于该表单，否则视为不存在
func (d *FormFieldDAO) FindInForm(ctx context.Context, formID, id int64) (*model.FormField, error) {
	var f model.FormField
	if err := d.DB.WithContext(ctx).Where("id = ? AND form_id = ?", id, formID).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (d *FormFieldDAO) Save(ctx context.Context, f *model.FormField) error {
	return d.DB.WithContext(ctx).Save(f).Error
}

func (d *FormFieldDAO) Delete(ctx context.Context, formID, id int64) (int64, error) {
	res := d.DB.WithContext(ctx).Where("id = ? AND form_id = ?", id, formID).Delete(&model.FormField{})
	return res.RowsAffected, res.Error
}

// ExistingIDs 返回 ids 中在 form_fields 表里存在的部分（不限表单）
func (d *FormFieldDAO) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []int64
	err := d.DB.WithContext(ctx).Model(&model.FormField{}).Where("id IN ?", ids).Pluck("id", &out).Error
	return out, err
}

// Reorder 按位置写 display_order（从 1 开始），逐条独立执行，不开事务：
// 中途失败时前面已写入的保留。不属于该表单的 id 被 form_id 条件过滤
func (d *FormFieldDAO) Reorder(ctx context.Context, formID int64, ids []int64) error {
	db := d.DB.WithContext(ctx)
	for i, id := range ids {
		if err := db.Model(&model.FormField{}).
			Where("id = ? AND form_id = ?", id, formID).
			Update("display_order", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}
