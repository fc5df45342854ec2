// Package apperr 定义服务层统一错误：NotFound / Validation / Internal 三类，
// 由 pkg/response 统一翻译成 HTTP 状态码与响应体。
package apperr

import (
	"errors"
	"fmt"

	"go-backoffice/internal/util/retcode"
)

type Error struct {
	Kind    retcode.Kind
	Message string
	// Fields 字段级错误，仅 Validation 使用
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) *Error { return &Error{Kind: retcode.NotFound, Message: msg} }

// Validation 字段 -> 消息
func Validation(fields map[string]string) *Error {
	return &Error{Kind: retcode.Validation, Message: "validation failed", Fields: fields}
}

// Field 单字段校验失败的快捷方式
func Field(name, msg string) *Error { return Validation(map[string]string{name: msg}) }

// Internal 包装底层错误；msg 为对外可见的通用描述
func Internal(msg string, err error) *Error {
	return &Error{Kind: retcode.Internal, Message: msg, Err: err}
}

// KindOf 非 *Error 一律视为 Internal
func KindOf(err error) retcode.Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return retcode.Internal
}

func IsNotFound(err error) bool { return err != nil && KindOf(err) == retcode.NotFound }
