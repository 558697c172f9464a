package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `json:"name" binding:"required,notblank"`
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age"`
}

func bindBody(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	require.NoError(t, Setup())
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req signup
	return w, BindJSON(c, &req)
}

func TestBindJSONValid(t *testing.T) {
	_, ok := bindBody(t, `{"name":"Ana","email":"ana@example.com"}`)
	assert.True(t, ok)
}

func TestBindJSONReportsJSONFieldNames(t *testing.T) {
	w, ok := bindBody(t, `{"name":"   ","email":"nope"}`)
	require.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, MessageInvalid)
	assert.Contains(t, body, `"name"`)
	assert.Contains(t, body, `"email"`)
	assert.NotContains(t, body, `"Name"`)
}

func TestBindJSONTypeMismatch(t *testing.T) {
	w, ok := bindBody(t, `{"name":"Ana","email":"ana@example.com","age":"x"}`)
	require.False(t, ok)
	assert.Contains(t, w.Body.String(), `"age"`)
}

type profile struct {
	Website *string `json:"website" binding:"omitempty,url"`
}

func (p *profile) Normalize() {
	if p.Website != nil && strings.TrimSpace(*p.Website) == "" {
		p.Website = nil
	}
}

func bindProfile(t *testing.T, body string) (*httptest.ResponseRecorder, *profile, bool) {
	t.Helper()
	require.NoError(t, Setup())
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req profile
	ok := BindJSON(c, &req)
	return w, &req, ok
}

func TestBindJSONNormalizesBeforeValidating(t *testing.T) {
	_, req, ok := bindProfile(t, `{"website":"  "}`)
	require.True(t, ok)
	assert.Nil(t, req.Website)

	w, _, ok := bindProfile(t, `{"website":"not a url"}`)
	require.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"website"`)

	w, _, ok = bindProfile(t, `{"website": x}`)
	require.False(t, ok)
	assert.Contains(t, w.Body.String(), "JSON malformado")
}

func TestSetupIsIdempotent(t *testing.T) {
	require.NoError(t, Setup())
	require.NoError(t, Setup())
}
