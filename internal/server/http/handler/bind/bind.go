// Package bind 把请求体解码与 validator 校验失败统一转换为 apperr.Validation，
// 键名使用 JSON 字段路径（fields.0.field_name），消息沿用 "The x field is required." 的写法。
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"go-backoffice/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const MsgInvalidBody = "The request body must be a valid JSON object."

var registerOnce sync.Once

// RegisterJSONTagNames 让 FieldError 报告 json 名而不是结构体字段名
func RegisterJSONTagNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// Presence 请求体中出现过的顶层键，用于区分"未提交"与"显式 null"
type Presence map[string]json.RawMessage

func (p Presence) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// JSON 解码并校验；空请求体视为 {}
func JSON(c *gin.Context, obj interface{}) (Presence, error) {
	RegisterJSONTagNames()
	body, err := c.GetRawData()
	if err != nil {
		return nil, apperr.Field("body", MsgInvalidBody)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var present Presence
	if err := json.Unmarshal(body, &present); err != nil {
		return nil, apperr.Field("body", MsgInvalidBody)
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return nil, Translate(err)
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return nil, Translate(err)
	}
	return present, nil
}

// Translate validator / json 错误 -> 字段级错误
func Translate(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		out := make(map[string]string, len(ves))
		for _, fe := range ves {
			key := fieldPath(fe.Namespace())
			if _, dup := out[key]; !dup {
				out[key] = message(fe, key)
			}
		}
		return apperr.Validation(out)
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return apperr.Field(te.Field, fmt.Sprintf("The %s must be a %s.", attribute(te.Field), typeName(te.Type)))
	}
	return apperr.Field("body", MsgInvalidBody)
}

var indexRe = regexp.MustCompile(`\[(\d+)\]`)

// fieldPath "req.fields[0].field_name" -> "fields.0.field_name"
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return indexRe.ReplaceAllString(ns, ".$1")
}

// attribute "fields.0.field_name" -> "fields.0.field name"
func attribute(key string) string { return strings.ReplaceAll(key, "_", " ") }

func message(fe validator.FieldError, key string) string {
	attr := attribute(key)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", attr)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", attr, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s must have at least %s items.", attr, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", attr, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", attr)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", attr)
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", attr, fe.Param())
	default:
		return fmt.Sprintf("The %s is invalid.", attr)
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
