package database

import (
	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

// AutoMigrate 建立基础表结构；四张字段元数据表共用 FieldMeta 结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Vendor{},
		&model.Prospect{},
		&model.Task{},
		&model.Workorder{},
		&model.Form{},
		&model.FormField{},
		&model.OperationLog{},
	); err != nil {
		return err
	}
	for _, k := range model.AllKinds() {
		if err := db.Table(k.MetaTable()).AutoMigrate(&model.FieldMeta{}); err != nil {
			return err
		}
	}
	return nil
}
