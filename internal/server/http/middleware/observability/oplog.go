package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"go-backoffice/internal/consumer/oplog"
	"go-backoffice/internal/mq/kafka"

	"github.com/gin-gonic/gin"
)

const maxBodyCapture = 4096

var skipOpLogPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

var sensitiveKeys = []string{"password", "passwd", "pwd", "token", "secret", "authorization"}

// OpLogSink 由 kafka.AsyncSender 实现
type OpLogSink interface {
	Enqueue(m kafka.AsyncMessage)
}

// OperationLog 请求结束后把操作记录异步写入 Kafka；sink 为 nil 时不记录
func OperationLog(sink OpLogSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sink == nil {
			c.Next()
			return
		}
		if _, ok := skipOpLogPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		var body []byte
		if c.Request.Body != nil {
			b, _ := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyCapture))
			body = b
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), c.Request.Body))
		}
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		e := oplog.Entry{
			ActionName: deriveActionName(path, c.Request.Method),
			Path:       path,
			Method:     c.Request.Method,
			Status:     c.Writer.Status(),
			LatencyMs:  time.Since(start).Milliseconds(),
			IP:         c.ClientIP(),
			UserID:     c.GetInt64("user_id"),
			Time:       time.Now().Format(time.RFC3339),
			Body:       sanitizeJSON(body),
			TraceID:    c.GetString(TraceIDKey),
		}
		for _, er := range c.Errors {
			e.Errors = append(e.Errors, er.Error())
		}
		b, err := json.Marshal(e)
		if err != nil {
			return
		}
		var headers map[string]string
		if e.TraceID != "" {
			headers = map[string]string{"trace_id": e.TraceID}
		}
		sink.Enqueue(kafka.AsyncMessage{
			Ctx:     context.WithoutCancel(c.Request.Context()),
			Value:   b,
			Headers: headers,
		})
	}
}

// sanitizeJSON 敏感键替换为 ***；非 JSON 原样返回
func sanitizeJSON(src []byte) string {
	if len(src) == 0 {
		return ""
	}
	var v interface{}
	if json.Unmarshal(src, &v) != nil {
		return string(src)
	}
	v = sanitizeValue(v)
	b, err := json.Marshal(v)
	if err != nil {
		return string(src)
	}
	return string(b)
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, vv := range val {
			if isSensitive(k) {
				val[k] = "***"
				continue
			}
			val[k] = sanitizeValue(vv)
		}
	case []interface{}:
		for i, elem := range val {
			val[i] = sanitizeValue(elem)
		}
	}
	return v
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s {
			return true
		}
	}
	return false
}

// deriveActionName POST /api/forms/:id/fields -> post_api_forms_id_fields
func deriveActionName(path, method string) string {
	p := strings.Trim(path, "/")
	if p == "" {
		return strings.ToLower(method)
	}
	p = strings.ReplaceAll(p, ":", "")
	p = strings.ReplaceAll(p, "/", "_")
	return strings.ToLower(method + "_" + p)
}
