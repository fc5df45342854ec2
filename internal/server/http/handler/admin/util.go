package admin

import (
	"strconv"

	"go-backoffice/internal/apperr"
	"go-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

func qInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

func pageLimit(c *gin.Context) (int, int) { return qInt(c, "page", 1), qInt(c, "limit", 20) }

// pathID 非数字 id 与不存在同样处理为 404
func pathID(c *gin.Context, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, apperr.NotFound(notFound), "")
		return 0, false
	}
	return id, true
}
