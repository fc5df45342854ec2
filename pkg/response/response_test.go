package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-backoffice/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() { gin.SetMode(gin.TestMode) }

func fail(err error, fallback string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Fail(c, err, fallback)
	return w
}

func TestFail(t *testing.T) {
	w := fail(apperr.NotFound("Form not found."), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Form not found."}`, w.Body.String())

	w = fail(apperr.Field("name", "The name field is required."), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"errors":{"name":"The name field is required."}}`, w.Body.String())

	w = fail(apperr.Internal("Failed to fetch forms.", errors.New("dial tcp: refused")), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch forms."}`, w.Body.String())

	w = fail(errors.New("pq: relation does not exist"), "Failed to submit form. Please try again.")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to submit form. Please try again."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "pq:")
}
