package seminars

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

var fixedNow = time.Date(2026, 6, 14, 15, 0, 0, 0, time.UTC)

type fakeStore struct {
	seminars   map[uuid.UUID]*models.Seminar
	lastFilter ListFilter
	lastInput  Input
}

func newFakeStore(list ...*models.Seminar) *fakeStore {
	f := &fakeStore{seminars: map[uuid.UUID]*models.Seminar{}}
	for _, s := range list {
		f.seminars[s.ID] = s
	}
	return f
}

func (f *fakeStore) List(_ context.Context, fl ListFilter, page response.Page) ([]*models.Seminar, int, error) {
	f.lastFilter = fl
	var out []*models.Seminar
	for _, s := range f.seminars {
		if fl.ActiveOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeStore) Upcoming(_ context.Context, now time.Time, limit int) ([]*models.Seminar, error) {
	var out []*models.Seminar
	for _, s := range f.seminars {
		if s.ScheduledAt != nil && !s.ScheduledAt.Before(now) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Seminar, error) {
	return f.seminars[id], nil
}

func (f *fakeStore) GetBySlug(_ context.Context, slug string) (*models.Seminar, error) {
	for _, s := range f.seminars {
		if s.Slug == slug {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Create(_ context.Context, in Input) (*models.Seminar, error) {
	f.lastInput = in
	s := &models.Seminar{ID: uuid.New(), Name: in.Name, Slug: "novo", ScheduledAt: in.ScheduledAt, Active: in.Active}
	f.seminars[s.ID] = s
	return s, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, in Input) (*models.Seminar, error) {
	f.lastInput = in
	s := f.seminars[id]
	if s == nil {
		return nil, nil
	}
	s.Name = in.Name
	return s, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := f.seminars[id]
	delete(f.seminars, id)
	return ok, nil
}

func newRouter(t *testing.T, store Store) *gin.Engine {
	t.Helper()
	require.NoError(t, validation.Setup())
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	h.now = func() time.Time { return fixedNow }
	r := gin.New()
	r.GET("/seminars", h.List)
	r.GET("/seminars/upcoming", h.Upcoming)
	r.GET("/seminars/:id", h.Show)
	r.GET("/admin/seminars", h.AdminList)
	r.POST("/admin/seminars", h.Create)
	r.PUT("/admin/seminars/:id", h.Update)
	r.DELETE("/admin/seminars/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func at(t time.Time) *time.Time { return &t }

func TestListMarksExpiredAndReadsFilters(t *testing.T) {
	past := &models.Seminar{ID: uuid.New(), Name: "Passado", Slug: "passado", Active: true, ScheduledAt: at(fixedNow.Add(-time.Hour))}
	future := &models.Seminar{ID: uuid.New(), Name: "Futuro", Slug: "futuro", Active: true, ScheduledAt: at(fixedNow.Add(time.Hour))}
	hidden := &models.Seminar{ID: uuid.New(), Name: "Oculto", Slug: "oculto"}
	store := newFakeStore(past, future, hidden)
	r := newRouter(t, store)

	w := do(r, http.MethodGet, "/seminars?search=ia&subject=saude&type=2&workshop=semana&status=upcoming&per_page=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ListFilter{Search: "ia", SubjectSlug: "saude", TypeID: 2, WorkshopSlug: "semana", Status: StatusUpcoming, ActiveOnly: true, Now: fixedNow}, store.lastFilter)

	var body struct {
		Data []models.Seminar `json:"data"`
		Meta response.Meta    `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Meta.Total)
	assert.Equal(t, 5, body.Meta.PerPage)
	for _, s := range body.Data {
		assert.Equal(t, s.Slug == "passado", s.IsExpired, s.Slug)
	}

	w = do(r, http.MethodGet, "/admin/seminars?status=bogus", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.lastFilter.ActiveOnly)
	assert.Empty(t, store.lastFilter.Status)
}

func TestShowHidesInactive(t *testing.T) {
	store := newFakeStore(
		&models.Seminar{ID: uuid.New(), Slug: "ativo", Active: true},
		&models.Seminar{ID: uuid.New(), Slug: "inativo"},
	)
	r := newRouter(t, store)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/seminars/ativo", "").Code)
	w := do(r, http.MethodGet, "/seminars/inativo", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), msgNotFound)
}

func TestUpcomingEmptyIsArray(t *testing.T) {
	r := newRouter(t, newFakeStore())
	w := do(r, http.MethodGet, "/seminars/upcoming?limit=999", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestCreateNormalisesInput(t *testing.T) {
	store := newFakeStore()
	r := newRouter(t, store)
	speaker := uuid.New()

	body := `{"name":"  IA na Saúde ","scheduled_at":"2026-06-15T14:00:00Z","room_link":"","location":"Auditório",
		"speaker_ids":["` + speaker.String() + `"],"subject_names":["IA"," ia ","Saúde"]}`
	w := do(r, http.MethodPost, "/admin/seminars", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	in := store.lastInput
	assert.Equal(t, "IA na Saúde", in.Name)
	assert.Nil(t, in.RoomLink)
	require.NotNil(t, in.Location)
	assert.Equal(t, "Auditório", *in.Location)
	assert.True(t, in.Active)
	assert.Equal(t, []uuid.UUID{speaker}, in.SpeakerIDs)
	assert.Equal(t, []string{"IA", "Saúde"}, in.SubjectNames)
}

func TestBlankOptionalLinksAreAccepted(t *testing.T) {
	s := &models.Seminar{ID: uuid.New(), Name: "Antigo", Slug: "antigo", Active: true}
	store := newFakeStore(s)
	r := newRouter(t, store)

	w := do(r, http.MethodPost, "/admin/seminars", `{"name":"Seminário","room_link":"","location":"   "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Nil(t, store.lastInput.RoomLink)
	assert.Nil(t, store.lastInput.Location)

	w = do(r, http.MethodPut, "/admin/seminars/"+s.ID.String(), `{"name":"Antigo","room_link":" "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, store.lastInput.RoomLink)

	w = do(r, http.MethodPost, "/admin/seminars", `{"name":"Seminário","room_link":" https://meet.example.com/abc "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, store.lastInput.RoomLink)
	assert.Equal(t, "https://meet.example.com/abc", *store.lastInput.RoomLink)
}

func TestCreateValidation(t *testing.T) {
	r := newRouter(t, newFakeStore())
	w := do(r, http.MethodPost, "/admin/seminars", `{"name":"X","room_link":"not a url","subject_names":[" "]}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "room_link")
}

func TestUpdateAndDelete(t *testing.T) {
	s := &models.Seminar{ID: uuid.New(), Name: "Antigo", Slug: "antigo", Active: true}
	store := newFakeStore(s)
	r := newRouter(t, store)

	w := do(r, http.MethodPut, "/admin/seminars/"+s.ID.String(), `{"name":"Novo","active":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Novo", s.Name)
	assert.False(t, store.lastInput.Active)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/admin/seminars/"+uuid.NewString(), `{"name":"X"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/seminars/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/admin/seminars/"+s.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/seminars/"+s.ID.String(), "").Code)
}
