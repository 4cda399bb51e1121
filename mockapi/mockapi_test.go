package mockapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCrud(t *testing.T) {
	s := New(nil)
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/students", `{"fullName":"Ana Ruiz","registrationNumber":"A1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":1`)

	w = do(t, h, http.MethodPatch, "/students/1", `{"fullName":"Ana R."}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana R.", s.Items("students")[0]["fullName"])

	w = do(t, h, http.MethodGet, "/students?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(t, h, http.MethodDelete, "/students/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/students/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Len(t, s.Calls(), 4)
}

func TestFaults(t *testing.T) {
	s := New(nil)
	h := s.Handler()

	s.Fail(http.MethodPost, "/groups", http.StatusInternalServerError, 1)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/groups", `{"name":"1A"}`).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/groups", `{"name":"1A"}`).Code)

	s.SetDown(true)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodHead, "/students?limit=1", "").Code)
	s.SetDown(false)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodHead, "/students?limit=1", "").Code)
}

func TestQueryFilter(t *testing.T) {
	s := New(nil)
	s.Seed("attendances",
		Item{"courseGroupStudentId": 1, "courseGroupId": 7},
		Item{"courseGroupStudentId": 2, "courseGroupId": 8},
	)
	w := do(t, s.Handler(), http.MethodGet, "/attendances?courseGroupId=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestLogin(t *testing.T) {
	s := New(nil)
	s.AddUser("maestra@uamvh.edu.mx", "secreto")
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/auth/login", `{"email":"maestra@uamvh.edu.mx","password":"x"}`).Code)
	w := do(t, h, http.MethodPost, "/auth/login", `{"email":"maestra@uamvh.edu.mx","password":"secreto"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"mock-token"`)
}
