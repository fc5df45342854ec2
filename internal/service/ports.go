package service

import (
	"context"

	"go-backoffice/internal/domain/model"
)

// SchemaReader 实时表结构来源（dao.SchemaDAO）
type SchemaReader interface {
	ListColumns(ctx context.Context, table string) ([]model.Column, error)
}

// FieldMetaStore 字段元数据读写（dao.FieldMetaDAO）
type FieldMetaStore interface {
	List(ctx context.Context, kind model.EntityKind) ([]model.FieldMeta, error)
	ListByNames(ctx context.Context, kind model.EntityKind, names []string) ([]model.FieldMeta, error)
	FindByID(ctx context.Context, kind model.EntityKind, id int64) (*model.FieldMeta, error)
	FindByName(ctx context.Context, kind model.EntityKind, name string) (*model.FieldMeta, error)
	Create(ctx context.Context, kind model.EntityKind, m *model.FieldMeta) error
	Save(ctx context.Context, kind model.EntityKind, m *model.FieldMeta) error
	UpdateOrder(ctx context.Context, kind model.EntityKind, id int64, order int) error
	Delete(ctx context.Context, kind model.EntityKind, id int64) (int64, error)
}

// PublishedFormIndex 按字段反查引用它的公开表单（dao.FormDAO）
type PublishedFormIndex interface {
	PublicKeysUsingFields(ctx context.Context, source string, names []string) ([]string, error)
}

// EventPublisher 领域事件出口（kafka.Producer）；nil 表示未启用
type EventPublisher interface {
	Send(ctx context.Context, key, value []byte) error
}
