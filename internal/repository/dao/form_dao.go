package dao

import (
	"context"
	"errors"

	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

type FormDAO struct{ DB *gorm.DB }

func NewFormDAO(db *gorm.DB) *FormDAO { return &FormDAO{DB: db} }

func orderedFields(db *gorm.DB) *gorm.DB { return db.Order("display_order ASC, id ASC") }

// List 新建的排前面，字段按 display_order 预加载
func (d *FormDAO) List(ctx context.Context) ([]model.Form, error) {
	var list []model.Form
	err := d.DB.WithContext(ctx).
		Preload("Fields", orderedFields).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (d *FormDAO) FindByID(ctx context.Context, id int64) (*model.Form, error) {
	var f model.Form
	if err := d.DB.WithContext(ctx).Preload("Fields", orderedFields).First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// FindPublished 只返回 is_public 且 is_active 的表单；visibleOnly 时只预加载可见字段
func (d *FormDAO) FindPublished(ctx context.Context, key string, visibleOnly bool) (*model.Form, error) {
	var f model.Form
	err := d.DB.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			if visibleOnly {
				db = db.Where("is_visible = ?", true)
			}
			return orderedFields(db)
		}).
		Where("public_key = ? AND is_public = ? AND is_active = ?", key, true, true).
		First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (d *FormDAO) Create(ctx context.Context, f *model.Form) error {
	return d.DB.WithContext(ctx).Omit("Fields").Create(f).Error
}

// Save 全字段更新，不触碰关联字段
func (d *FormDAO) Save(ctx context.Context, f *model.Form) error {
	return d.DB.WithContext(ctx).Omit("Fields").Save(f).Error
}

// Delete 显式先删字段再删表单，不依赖数据库外键级联
func (d *FormDAO) Delete(ctx context.Context, id int64) (int64, error) {
	var rows int64
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&model.FormField{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Form{}, id)
		rows = res.RowsAffected
		return res.Error
	})
	return rows, err
}

func (d *FormDAO) PublicKeyExists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := d.DB.WithContext(ctx).Model(&model.Form{}).Where("public_key = ?", key).Count(&n).Error
	return n > 0, err
}

// Publish 写入公开 key 并置 is_public；key 冲突时返回 gorm.ErrDuplicatedKey
func (d *FormDAO) Publish(ctx context.Context, id int64, key string) error {
	return d.DB.WithContext(ctx).Model(&model.Form{}).Where("id = ?", id).
		Updates(map[string]interface{}{"public_key": key, "is_public": true}).Error
}

// PublicKeysUsingFields 引用了 source 下任一字段名、且已生成 public_key 的表单 key（去重）
func (d *FormDAO) PublicKeysUsingFields(ctx context.Context, source string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var keys []string
	err := d.DB.WithContext(ctx).Model(&model.Form{}).
		Joins("JOIN form_fields ON form_fields.form_id = forms.id").
		Where("forms.public_key IS NOT NULL AND forms.public_key <> ''").
		Where("form_fields.field_source = ? AND form_fields.field_name IN ?", source, names).
		Distinct().
		Pluck("forms.public_key", &keys).Error
	return keys, err
}
