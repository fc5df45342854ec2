package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go-backoffice/internal/config"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/mq/kafka"
	"go-backoffice/internal/repository/dao"
	"go-backoffice/internal/repository/database"
	"go-backoffice/internal/security/jwt"
	handlerset "go-backoffice/internal/server/http/handler"
	adminh "go-backoffice/internal/server/http/handler/admin"
	publich "go-backoffice/internal/server/http/handler/public"
	"go-backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
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

func (s *memSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// memCounter 不区分窗口，避免跨分钟边界的偶发失败
type memCounter struct {
	mu sync.Mutex
	n  int64
}

func (m *memCounter) IncrWindow(context.Context, string, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return m.n, nil
}

type failingSchema struct{}

func (failingSchema) ListColumns(context.Context, string) ([]model.Column, error) {
	return nil, errors.New("information_schema unavailable")
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	jwt    *jwt.Manager
	sink   *memSink
	token  string
}

type serverOption func(*adminh.Dependencies)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	lg := logging.NewNop()
	meta := dao.NewFieldMetaDAO(db)
	schema := dao.NewSchemaDAO(db)
	records := dao.NewRecordDAO(db)
	ad := adminh.Dependencies{
		Fields:    service.NewFieldService(schema, meta, lg),
		Forms:     service.NewFormService(dao.NewFormDAO(db), dao.NewFormFieldDAO(db), meta, nil, "http://front.example", lg),
		Records:   service.NewRecordService(schema, records, validator.New(), lg),
		Analytics: service.NewAnalyticsService(records),
		Logs:      service.NewLogService(dao.NewOperationLogDAO(db)),
		Logger:    lg,
	}
	for _, o := range opts {
		o(&ad)
	}
	pd := publich.Dependencies{
		PublicForms: service.NewPublicFormService(dao.NewFormDAO(db), records, meta, nil, 0, nil, lg),
		Logger:      lg,
	}

	cfg := &config.Config{}
	cfg.PublicForm.SubmitPerMinute = 2
	jm := jwt.NewManager("router-test-secret-0123456789", time.Hour, "go-backoffice")
	token, err := jm.Generate(42)
	require.NoError(t, err)
	sink := &memSink{}
	engine := NewRouter(cfg, lg, jm, handlerset.NewHandlerSet(ad, pd), NewHealthChecker(db, nil, nil, nil), &memCounter{}, sink)
	return &testServer{engine: engine, db: db, jwt: jm, sink: sink, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorsBody struct {
	Errors map[string]string `json:"errors"`
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/readyz?refresh=1", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	res := decode[map[string]interface{}](t, w)
	assert.Equal(t, "ok", res["status"])
	assert.Equal(t, "up", res["db"])
	assert.Equal(t, "disabled", res["redis"])
	assert.Equal(t, "disabled", res["kafka"])
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/forms", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthenticated.", decode[errorBody](t, w).Error)

	w = s.do(t, http.MethodGet, "/api/forms", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFieldEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/vendor-fields", map[string]interface{}{"field_name": "contact_person", "field_label": "Contact", "is_active": true}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.FieldMeta](t, w)

	w = s.do(t, http.MethodGet, "/api/vendor-fields", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]service.ReconciledField](t, w)
	var found bool
	for _, f := range list {
		if f.FieldName == "contact_person" {
			found = true
			assert.Equal(t, "Contact", f.FieldLabel)
			assert.True(t, f.IsActive)
		}
		assert.NotEqual(t, "id", f.FieldName)
	}
	assert.True(t, found)

	w = s.do(t, http.MethodPost, "/api/vendor-fields", map[string]interface{}{"field_label": "x"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "The field name field is required.", decode[errorsBody](t, w).Errors["field_name"])

	w = s.do(t, http.MethodPut, "/api/vendor-fields/update-order", map[string]interface{}{
		"fields": []map[string]interface{}{{"field_name": "email", "display_order": 2}, {"display_order": 3}},
	}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorsBody](t, w).Errors, "fields.1.field_name")

	w = s.do(t, http.MethodPut, "/api/vendor-fields/update-order", map[string]interface{}{
		"fields": []map[string]interface{}{{"field_name": "email", "display_order": 2}},
	}, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Field order updated successfully", decode[messageBody](t, w).Message)

	w = s.do(t, http.MethodGet, "/api/vendor-fields/abc", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Vendor field not found.", decode[errorBody](t, w).Error)

	path := "/api/vendor-fields/" + itoa(created.ID)
	w = s.do(t, http.MethodPut, path, map[string]interface{}{"field_type": nil, "field_label": "Primary contact"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Primary contact", decode[model.FieldMeta](t, w).FieldLabel)

	w = s.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Vendor field deleted successfully", decode[messageBody](t, w).Message)
	w = s.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFieldIndexIntrospectionFailure(t *testing.T) {
	s := newTestServer(t, func(d *adminh.Dependencies) {
		d.Fields = service.NewFieldService(failingSchema{}, d.Fields.Meta, d.Logger)
	})
	w := s.do(t, http.MethodGet, "/api/prospect-fields", nil, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "Failed to fetch prospect fields.", body.Error)
	assert.NotContains(t, w.Body.String(), "information_schema")
}

func TestFormLifecycleAndPublicSubmission(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/forms", map[string]interface{}{"name": "Supplier signup", "type": "vendor"}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	form := decode[model.Form](t, w)
	formPath := "/api/forms/" + itoa(form.ID)

	w = s.do(t, http.MethodPost, "/api/forms", map[string]interface{}{"name": "Bad", "type": "customer"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "The selected type is invalid.", decode[errorsBody](t, w).Errors["type"])

	for _, f := range []map[string]interface{}{
		{"field_name": "name", "field_source": "vendor", "is_required": true},
		{"field_name": "email", "field_source": "vendor"},
		{"field_name": "phone", "field_source": "vendor"},
	} {
		w = s.do(t, http.MethodPost, formPath+"/fields", f, true)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, formPath+"/fields/update-order", map[string]interface{}{"field_ids": []int64{999}}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorsBody](t, w).Errors, "field_ids.0")

	w = s.do(t, http.MethodPost, formPath+"/generate-public-key", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pk := decode[service.PublicKeyResult](t, w)
	assert.Len(t, pk.PublicKey, 32)
	assert.Equal(t, "http://front.example/public/form/"+pk.PublicKey, pk.PublicURL)

	w = s.do(t, http.MethodGet, "/api/public/form/"+pk.PublicKey, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[service.PublicFormView](t, w)
	assert.Equal(t, "Supplier signup", view.Form.Name)
	assert.Len(t, view.Fields, 3)

	submit := "/api/public/form/" + pk.PublicKey + "/submit"
	w = s.do(t, http.MethodPost, submit, map[string]interface{}{"email": "x@y.test"}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, map[string]string{"name": service.MsgFieldRequired}, decode[errorsBody](t, w).Errors)

	w = s.do(t, http.MethodPost, submit, map[string]interface{}{"name": "Initech", "unknown": 1}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"Form submitted successfully!","success":true}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/vendors", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]map[string]interface{}](t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "Initech", rows[0]["name"])
	assert.Nil(t, rows[0]["phone"])

	// 第 3 次提交超出每分钟 2 次的限额
	w = s.do(t, http.MethodPost, submit, map[string]interface{}{"name": "Umbrella"}, false)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = s.do(t, http.MethodGet, "/api/public/form/doesnotexist", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.MsgFormNotAvailable, decode[errorBody](t, w).Error)

	w = s.do(t, http.MethodDelete, formPath, nil, true)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/public/form/"+pk.PublicKey, nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordEndpointsAndAnalytics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/workorders", map[string]interface{}{"title": "Fix HVAC"}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wo := decode[map[string]interface{}](t, w)
	assert.Regexp(t, `^WO-\d{6}-0001$`, wo["workorder_number"])
	assert.EqualValues(t, 42, wo["created_by"])

	w = s.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{"title": "Call vendor", "status": "done"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{"title": "Call vendor"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/analytics/tasks-and-workorders", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":1,"workorders":1,"total":2}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/analytics/tasks-by-status", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"pending":1}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/tasks/999", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found.", decode[errorBody](t, w).Error)

	w = s.do(t, http.MethodPost, "/api/tasks", "[1,2]", true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorsBody](t, w).Errors, "body")
}

func TestAdminRequestsAreOperationLogged(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/forms", map[string]interface{}{"name": "Logged", "type": "prospect"}, true)
	s.do(t, http.MethodGet, "/api/public/form/nope", nil, false)
	s.do(t, http.MethodGet, "/healthz", nil, false)

	require.Equal(t, 1, s.sink.len())
	var e struct {
		ActionName string `json:"action_name"`
		UserID     int64  `json:"user_id"`
		Status     int    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(s.sink.msgs[0].Value, &e))
	assert.Equal(t, "post_api_forms", e.ActionName)
	assert.EqualValues(t, 42, e.UserID)
	assert.Equal(t, http.StatusCreated, e.Status)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/nothing-here", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found.", decode[errorBody](t, w).Error)
}
