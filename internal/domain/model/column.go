package model

// Column 实时表结构中的一列，只在内存中使用
type Column struct {
	Name       string `json:"name"`
	NativeType string `json:"native_type"`
}
