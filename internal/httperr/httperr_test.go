package httperr

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantStatus int
		wantMsg    string
	}{
		{"validation", Validation("field %s is bad", "amount"), http.StatusBadRequest, "field amount is bad"},
		{"unauthorized", Unauthorized("missing bearer token"), http.StatusUnauthorized, "missing bearer token"},
		{"forbidden", Forbidden("access denied"), http.StatusForbidden, "access denied"},
		{"not found", NotFound("student"), http.StatusNotFound, "student not found"},
		{"conflict", Conflict("%d seats taken", 2), http.StatusConflict, "2 seats taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.Equal(t, tt.wantMsg, tt.err.Message)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func respondWith(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	Respond(c, err)
	return rec
}

func TestRespondTaxonomyError(t *testing.T) {
	rec := respondWith(NotFound("course"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"course not found"}`, rec.Body.String())
}

func TestRespondWrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), Forbidden("access denied"))
	rec := respondWith(wrapped)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
}

func TestRespondInternalError(t *testing.T) {
	// Store failures and other unknowns never leak detail to clients.
	rec := respondWith(errors.New("connection reset by peer"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
