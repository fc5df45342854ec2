package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 展示用字段类型，只是提示，不代表存储语义
const (
	TypeVarchar255 = "VARCHAR (255)"
	TypeVarchar100 = "VARCHAR (100)"
	TypeVarchar20  = "VARCHAR (20)"
	TypeText       = "TEXT"
	TypeChar       = "CHAR"
	TypeBoolean    = "BOOLEAN"
	TypeNumber     = "NUMBER"

	// PublicFallbackType 公开表单里没有元数据的字段
	PublicFallbackType = "VARCHAR(255)"
)

// postgres 的别名先折叠成 mysql 写法再匹配
var typeAliases = strings.NewReplacer("character varying", "varchar")

// NormalizeColumnType 按子串优先级归类：varchar > text > char > boolean > number > 兜底 TEXT。
// boolean 必须先于 number 判断，tinyint(1) 里也有 int。
func NormalizeColumnType(native string) string {
	t := typeAliases.Replace(strings.ToLower(strings.TrimSpace(native)))
	switch {
	case strings.Contains(t, "varchar"):
		switch {
		case strings.Contains(t, "255"):
			return TypeVarchar255
		case strings.Contains(t, "100"):
			return TypeVarchar100
		case strings.Contains(t, "20"):
			return TypeVarchar20
		}
		return TypeVarchar255
	case strings.Contains(t, "text"):
		return TypeText
	case strings.Contains(t, "char"):
		return TypeChar
	case strings.Contains(t, "tinyint(1)"), strings.Contains(t, "boolean"):
		return TypeBoolean
	case containsAny(t, "decimal", "int", "float", "double"):
		return TypeNumber
	}
	return TypeText
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Humanize contact_person -> "Contact person"
func Humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
