package model

// OperationLog 管理端操作日志，由 oplog 消费者从 Kafka 落库
type OperationLog struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	ActionName string `gorm:"column:action_name;size:100" json:"action_name"`
	UID        int64  `gorm:"column:uid;index" json:"uid"`
	AddTime    int64  `gorm:"column:add_time;index" json:"add_time"`
	Data       string `gorm:"column:data;type:text" json:"data"`
	URL        string `gorm:"column:url;size:200" json:"url"`
	Method     string `gorm:"column:method;size:10" json:"method"`
	Status     int    `gorm:"column:status" json:"status"`
	LatencyMs  int64  `gorm:"column:latency_ms" json:"latency_ms"`
	IP         string `gorm:"column:ip;size:64" json:"ip"`
	TraceID    string `gorm:"column:trace_id;size:64" json:"trace_id"`
}

func (OperationLog) TableName() string { return "operation_logs" }
