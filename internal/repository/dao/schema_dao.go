package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

var ErrTableNotFound = errors.New("table not found")

// 主键与时间戳由系统维护，不参与字段配置
var managedColumns = map[string]struct{}{"id": {}, "created_at": {}, "updated_at": {}}

func IsManagedColumn(name string) bool {
	_, ok := managedColumns[name]
	return ok
}

// SchemaDAO 读取实时表结构（gorm Migrator，postgres/mysql/sqlite 通用）
type SchemaDAO struct{ DB *gorm.DB }

func NewSchemaDAO(db *gorm.DB) *SchemaDAO { return &SchemaDAO{DB: db} }

// ListColumns 按表定义顺序返回列，剔除 id/created_at/updated_at
func (d *SchemaDAO) ListColumns(ctx context.Context, table string) ([]model.Column, error) {
	m := d.DB.WithContext(ctx).Migrator()
	if !m.HasTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	types, err := m.ColumnTypes(table)
	if err != nil {
		return nil, err
	}
	out := make([]model.Column, 0, len(types))
	for _, ct := range types {
		if IsManagedColumn(ct.Name()) {
			continue
		}
		out = append(out, model.Column{Name: ct.Name(), NativeType: nativeType(ct)})
	}
	return out, nil
}

// nativeType 优先取完整类型（varchar(255)、tinyint(1)），拿不到再退回驱动类型名
func nativeType(ct gorm.ColumnType) string {
	if full, ok := ct.ColumnType(); ok && full != "" {
		return strings.ToLower(full)
	}
	return strings.ToLower(ct.DatabaseTypeName())
}
