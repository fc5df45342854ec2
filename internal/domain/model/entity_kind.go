package model

import "errors"

var ErrUnknownKind = errors.New("unknown entity kind")

// EntityKind 自定义字段所属的实体类别；每类有自己的主表与字段元数据表
type EntityKind string

const (
	KindVendor    EntityKind = "vendor"
	KindProspect  EntityKind = "prospect"
	KindTask      EntityKind = "task"
	KindWorkorder EntityKind = "workorder"
)

var allKinds = []EntityKind{KindVendor, KindProspect, KindTask, KindWorkorder}

func AllKinds() []EntityKind { return append([]EntityKind(nil), allKinds...) }

func ParseEntityKind(s string) (EntityKind, bool) {
	for _, k := range allKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// BaseTable 记录表，例如 vendors
func (k EntityKind) BaseTable() string { return string(k) + "s" }

// MetaTable 字段元数据表，例如 vendor_fields
func (k EntityKind) MetaTable() string { return string(k) + "_fields" }

// Formable 只有 vendor / prospect 可以作为表单来源
func (k EntityKind) Formable() bool { return k == KindVendor || k == KindProspect }
