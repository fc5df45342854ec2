package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go-backoffice/internal/consumer/oplog"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/mq/kafka"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type memSink struct {
	mu   sync.Mutex
	msgs []kafka.AsyncMessage
}

func (s *memSink) Enqueue(m kafka.AsyncMessage) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
}

func TestDeriveActionName(t *testing.T) {
	assert.Equal(t, "post_api_forms_id_fields", deriveActionName("/api/forms/:id/fields", "POST"))
	assert.Equal(t, "put_api_vendor-fields_update-order", deriveActionName("/api/vendor-fields/update-order", "PUT"))
	assert.Equal(t, "get", deriveActionName("/", "GET"))
}

func TestSanitizeJSON(t *testing.T) {
	out := sanitizeJSON([]byte(`{"name":"a","Password":"p","nested":{"token":"t"},"list":[{"secret":"s","ok":1}]}`))
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "a", v["name"])
	assert.Equal(t, "***", v["Password"])
	assert.Equal(t, "***", v["nested"].(map[string]interface{})["token"])
	item := v["list"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "***", item["secret"])
	assert.EqualValues(t, 1, item["ok"])

	assert.Equal(t, "plain text", sanitizeJSON([]byte("plain text")))
	assert.Equal(t, "", sanitizeJSON(nil))
}

func TestOperationLogMiddleware(t *testing.T) {
	sink := &memSink{}
	r := gin.New()
	r.Use(TraceMiddleware(), OperationLog(sink))
	r.POST("/api/forms/:id/fields", func(c *gin.Context) {
		var body map[string]interface{}
		require.NoError(t, c.ShouldBindJSON(&body))
		assert.Equal(t, "email", body["field_name"], "handler still sees the full body")
		c.Set("user_id", int64(5))
		c.Status(http.StatusCreated)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/forms/3/fields", strings.NewReader(`{"field_name":"email","password":"x"}`))
	req.Header.Set(TraceIDHeader, "trace-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-abc", w.Header().Get(TraceIDHeader))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Len(t, sink.msgs, 1)
	m := sink.msgs[0]
	assert.Equal(t, map[string]string{"trace_id": "trace-abc"}, m.Headers)
	var e oplog.Entry
	require.NoError(t, json.Unmarshal(m.Value, &e))
	assert.Equal(t, "post_api_forms_id_fields", e.ActionName)
	assert.Equal(t, "/api/forms/:id/fields", e.Path)
	assert.Equal(t, http.StatusCreated, e.Status)
	assert.EqualValues(t, 5, e.UserID)
	assert.Equal(t, "trace-abc", e.TraceID)
	assert.Contains(t, e.Body, `"password":"***"`)
}

func TestLoggerContextMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware(), LoggerContextMiddleware(logging.NewNop()))
	var got bool
	r.GET("/x", func(c *gin.Context) {
		got = logging.FromContext(c.Request.Context(), nil) != nil
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, got)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))
}
