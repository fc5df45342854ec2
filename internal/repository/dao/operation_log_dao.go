package dao

import (
	"context"

	"go-backoffice/internal/domain/model"

	"gorm.io/gorm"
)

type OperationLogDAO struct{ DB *gorm.DB }

func NewOperationLogDAO(db *gorm.DB) *OperationLogDAO { return &OperationLogDAO{DB: db} }

func (d *OperationLogDAO) Create(ctx context.Context, l *model.OperationLog) error {
	return d.DB.WithContext(ctx).Create(l).Error
}

// ListPage 按 action_name / url 模糊查询，add_time 倒序
func (d *OperationLogDAO) ListPage(ctx context.Context, keyword string, page, limit int) ([]model.OperationLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	q := d.DB.WithContext(ctx).Model(&model.OperationLog{})
	if keyword != "" {
		like := "%" + keyword + "%"
		q = q.Where("action_name LIKE ? OR url LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.OperationLog
	if err := q.Order("add_time DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (d *OperationLogDAO) Delete(ctx context.Context, id int64) (int64, error) {
	res := d.DB.WithContext(ctx).Delete(&model.OperationLog{}, id)
	return res.RowsAffected, res.Error
}
