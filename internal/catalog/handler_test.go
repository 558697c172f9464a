package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
)

type fakeStore struct {
	types   []models.SeminarType
	courses []models.Course
}

func (f *fakeStore) SeminarTypes(context.Context) ([]models.SeminarType, error) { return f.types, nil }
func (f *fakeStore) Courses(context.Context) ([]models.Course, error)           { return f.courses, nil }

func (f *fakeStore) CreateSeminarType(_ context.Context, name string) (*models.SeminarType, error) {
	for _, t := range f.types {
		if t.Name == name {
			return nil, ErrDuplicate
		}
	}
	t := models.SeminarType{ID: int64(len(f.types) + 1), Name: name}
	f.types = append(f.types, t)
	return &t, nil
}

func (f *fakeStore) CreateCourse(_ context.Context, name string) (*models.Course, error) {
	c := models.Course{ID: int64(len(f.courses) + 1), Name: name}
	f.courses = append(f.courses, c)
	return &c, nil
}

func TestCatalog(t *testing.T) {
	require.NoError(t, validation.Setup())
	gin.SetMode(gin.TestMode)
	store := &fakeStore{types: []models.SeminarType{{ID: 1, Name: "Palestra"}}}
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/seminar-types", h.SeminarTypes)
	r.GET("/courses", h.Courses)
	r.POST("/admin/seminar-types", h.CreateSeminarType)
	r.POST("/admin/courses", h.CreateCourse)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/seminar-types", nil))
	assert.JSONEq(t, `{"data":[{"id":1,"name":"Palestra"}]}`, w.Body.String())

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}
	assert.Equal(t, http.StatusUnprocessableEntity, post("/admin/seminar-types", `{"name":"Palestra"}`).Code)
	assert.Equal(t, http.StatusCreated, post("/admin/seminar-types", `{"name":"Minicurso"}`).Code)
	assert.Equal(t, http.StatusCreated, post("/admin/courses", `{"name":"Medicina"}`).Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	assert.JSONEq(t, `{"data":[{"id":1,"name":"Medicina"}]}`, w.Body.String())
}
