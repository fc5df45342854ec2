package retcode

import "net/http"

// Kind 边界错误分类，与 HTTP 状态一一对应
type Kind int

const (
	OK Kind = iota
	NotFound
	Validation
	Internal
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation_failed"
	default:
		return "internal_error"
	}
}

// HTTPStatus 唯一的状态码映射点
func (k Kind) HTTPStatus() int {
	switch k {
	case OK:
		return http.StatusOK
	case NotFound:
		return http.StatusNotFound
	case Validation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
