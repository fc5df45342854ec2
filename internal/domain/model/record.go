package model

import "time"

// 以下结构只描述各记录表的基础列，用于 auto_migrate 初始化；
// 自定义列（string_field1 等）由 DBA 直接加到表上，读写统一走 map。

type Vendor struct {
	ID            int64     `gorm:"primaryKey"`
	Name          string    `gorm:"column:name;size:255;not null"`
	Email         *string   `gorm:"column:email;size:255"`
	Phone         *string   `gorm:"column:phone;size:50"`
	Address       *string   `gorm:"column:address;type:text"`
	ContactPerson *string   `gorm:"column:contact_person;size:255"`
	TaxID         *string   `gorm:"column:tax_id;size:100"`
	Notes         *string   `gorm:"column:notes;type:text"`
	Status        string    `gorm:"column:status;size:20;not null;default:active"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (Vendor) TableName() string { return "vendors" }

type Prospect struct {
	ID            int64     `gorm:"primaryKey"`
	Name          string    `gorm:"column:name;size:255;not null"`
	Email         *string   `gorm:"column:email;size:255"`
	Phone         *string   `gorm:"column:phone;size:50"`
	Address       *string   `gorm:"column:address;type:text"`
	ContactPerson *string   `gorm:"column:contact_person;size:255"`
	CompanyName   *string   `gorm:"column:company_name;size:255"`
	Notes         *string   `gorm:"column:notes;type:text"`
	Status        string    `gorm:"column:status;size:20;not null;default:new"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (Prospect) TableName() string { return "prospects" }

type Task struct {
	ID          int64      `gorm:"primaryKey"`
	Title       string     `gorm:"column:title;size:255;not null"`
	Description *string    `gorm:"column:description;type:text"`
	Status      string     `gorm:"column:status;size:20;not null;default:pending"`
	Priority    string     `gorm:"column:priority;size:20;not null;default:medium"`
	DueDate     *time.Time `gorm:"column:due_date;type:date"`
	AssignedTo  *int64     `gorm:"column:assigned_to"`
	CreatedBy   *int64     `gorm:"column:created_by"`
	TaskGroupID *int64     `gorm:"column:task_group_id"`
	WorkflowID  *int64     `gorm:"column:workflow_id"`
	IsActive    bool       `gorm:"column:is_active;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

func (Task) TableName() string { return "tasks" }

type Workorder struct {
	ID                    int64      `gorm:"primaryKey"`
	WorkorderNumber       string     `gorm:"column:workorder_number;size:32;uniqueIndex"`
	Title                 string     `gorm:"column:title;size:255;not null"`
	Description           *string    `gorm:"column:description;type:text"`
	Status                string     `gorm:"column:status;size:20;not null;default:pending"`
	Priority              string     `gorm:"column:priority;size:20;not null;default:medium"`
	DueDate               *time.Time `gorm:"column:due_date;type:date"`
	AssignedToUserGroupID *int64     `gorm:"column:assigned_to_user_group_id"`
	CreatedBy             *int64     `gorm:"column:created_by"`
	TaskGroupID           *int64     `gorm:"column:task_group_id"`
	WorkflowID            *int64     `gorm:"column:workflow_id"`
	IsActive              bool       `gorm:"column:is_active;not null"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (Workorder) TableName() string { return "workorders" }
