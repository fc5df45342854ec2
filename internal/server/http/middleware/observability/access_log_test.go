package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-backoffice/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, accessLevel("/api/forms", 500))
	assert.Equal(t, zapcore.WarnLevel, accessLevel("/api/forms", 422))
	assert.Equal(t, zapcore.InfoLevel, accessLevel("/api/forms", 200))
	assert.Equal(t, zapcore.DebugLevel, accessLevel("/healthz", 200))
	assert.Equal(t, zapcore.ErrorLevel, accessLevel("/readyz", 503), "探针失败仍按状态码升级")
}

func TestAccessLog_CarriesRouteFromContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := &logging.Logger{Logger: zap.New(core)}

	r := gin.New()
	r.Use(TraceMiddleware(), LoggerContextMiddleware(base), AccessLog(base))
	r.GET("/api/forms/:id", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forms/9?x=1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := logs.FilterMessage("http_access").All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	fields := e.ContextMap()
	assert.Equal(t, "/api/forms/:id", fields["route"])
	assert.Equal(t, "/api/forms/9", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.EqualValues(t, 404, fields["status"])
	assert.NotEmpty(t, fields["trace_id"])
}

func TestRouteLabel_Unmatched(t *testing.T) {
	r := gin.New()
	var label string
	r.Use(func(c *gin.Context) { c.Next(); label = routeLabel(c) })
	r.GET("/api/forms", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	assert.Equal(t, unmatchedRoute, label)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/forms", nil))
	assert.Equal(t, "/api/forms", label)
}
