package analytics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counts map[uuid.UUID]*Counts
	err    error
}

func (f *fakeStore) SeminarCounts(_ context.Context, id uuid.UUID) (*Counts, error) {
	return f.counts[id], f.err
}

func get(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/seminars/:id/analytics", h.GetBySeminar)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSummarize(t *testing.T) {
	s := Summarize(Counts{Registrations: 3, Present: 2, Certificates: 2, Ratings: 3, ScoreSum: 13, EmailsSent: 4, EmailsFailed: 1})
	assert.Equal(t, 1, s.TotalAbsent)
	require.NotNil(t, s.AttendanceRate)
	assert.Equal(t, 0.67, *s.AttendanceRate)
	require.NotNil(t, s.AverageScore)
	assert.Equal(t, 4.33, *s.AverageScore)

	empty := Summarize(Counts{})
	assert.Nil(t, empty.AttendanceRate)
	assert.Nil(t, empty.AverageScore)
}

func TestGetBySeminar(t *testing.T) {
	id := uuid.New()
	h := NewHandler(&fakeStore{counts: map[uuid.UUID]*Counts{id: {Registrations: 2, Present: 1}}}, nil)

	w := get(h, "/admin/seminars/"+id.String()+"/analytics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_absent":1`)
	assert.Contains(t, w.Body.String(), `"attendance_rate":0.5`)
	assert.Contains(t, w.Body.String(), `"average_score":null`)

	assert.Equal(t, http.StatusNotFound, get(h, "/admin/seminars/"+uuid.NewString()+"/analytics").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/admin/seminars/nope/analytics").Code)

	failing := NewHandler(&fakeStore{err: errors.New("db down")}, nil)
	assert.Equal(t, http.StatusInternalServerError, get(failing, "/admin/seminars/"+id.String()+"/analytics").Code)
}
