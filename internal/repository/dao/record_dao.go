package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// RecordDAO 记录表读写统一走 map，表名只来自 EntityKind 白名单
type RecordDAO struct{ DB *gorm.DB }

func NewRecordDAO(db *gorm.DB) *RecordDAO { return &RecordDAO{DB: db} }

// 各方言取同一连接上最近插入的主键
var lastInsertIDSQL = map[string]string{
	"mysql":    "SELECT LAST_INSERT_ID()",
	"postgres": "SELECT lastval()",
	"sqlite":   "SELECT last_insert_rowid()",
}

// normalizeRow mysql 驱动把文本列扫成 []byte，统一转成 string
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}

func (d *RecordDAO) List(ctx context.Context, table string) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := d.DB.WithContext(ctx).Table(table).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		normalizeRow(r)
	}
	return rows, nil
}

func (d *RecordDAO) Find(ctx context.Context, table string, id int64) (map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := d.DB.WithContext(ctx).Table(table).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return normalizeRow(rows[0]), nil
}

// Insert map 插入不会回填主键，在同一事务连接上补查
func (d *RecordDAO) Insert(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
	q, ok := lastInsertIDSQL[d.DB.Dialector.Name()]
	if !ok {
		return 0, fmt.Errorf("insert %s: unsupported dialect %s", table, d.DB.Dialector.Name())
	}
	var id int64
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Create(data).Error; err != nil {
			return err
		}
		return tx.Raw(q).Scan(&id).Error
	})
	return id, err
}

func (d *RecordDAO) Update(ctx context.Context, table string, id int64, data map[string]interface{}) (int64, error) {
	res := d.DB.WithContext(ctx).Table(table).Where("id = ?", id).Updates(data)
	return res.RowsAffected, res.Error
}

func (d *RecordDAO) Delete(ctx context.Context, table string, id int64) (int64, error) {
	res := d.DB.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", d.DB.Statement.Quote(table)), id)
	return res.RowsAffected, res.Error
}

func (d *RecordDAO) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := d.DB.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}

// CountByStatus status 为空的行归到 "unknown"
func (d *RecordDAO) CountByStatus(ctx context.Context, table string) (map[string]int64, error) {
	var rows []struct {
		Status *string
		Total  int64
	}
	err := d.DB.WithContext(ctx).Table(table).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := "unknown"
		if r.Status != nil && *r.Status != "" {
			key = *r.Status
		}
		out[key] += r.Total
	}
	return out, nil
}

// LastWorkorderNumber 指定前缀下字典序最大的工单号，没有时返回空串
func (d *RecordDAO) LastWorkorderNumber(ctx context.Context, prefix string) (string, error) {
	var nums []string
	err := d.DB.WithContext(ctx).Table("workorders").
		Where("workorder_number LIKE ?", prefix+"%").
		Order("workorder_number DESC").
		Limit(1).
		Pluck("workorder_number", &nums).Error
	if err != nil {
		return "", err
	}
	if len(nums) == 0 {
		return "", nil
	}
	return nums[0], nil
}

// IsDuplicate 唯一键冲突（依赖 TranslateError）
func IsDuplicate(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }
