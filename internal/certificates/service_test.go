package certificates

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/queue"
)

var fixedNow = time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC)

type fakeStore struct {
	recs map[uuid.UUID]*Record
}

func (f *fakeStore) ByRegistration(_ context.Context, id uuid.UUID) (*Record, error) {
	if r, ok := f.recs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) ByCode(_ context.Context, code string) (*Record, error) {
	for _, r := range f.recs {
		if r.Code != nil && *r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Assign(_ context.Context, id uuid.UUID, code string, at time.Time) (string, bool, error) {
	r := f.recs[id]
	if r.Code != nil {
		return *r.Code, false, nil
	}
	r.Code, r.IssuedAt = &code, &at
	return code, true, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*Record, error) {
	var out []*Record
	for _, r := range f.recs {
		if r.UserID == userID && r.Code != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) PendingBySeminar(_ context.Context, seminarID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, r := range f.recs {
		if r.Seminar.ID == seminarID && r.Present && r.Code == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeJobs struct{ payloads []interface{} }

func (f *fakeJobs) EnqueueEmail(_ context.Context, jt queue.JobType, p interface{}) (string, error) {
	f.payloads = append(f.payloads, p)
	return "job", nil
}

type fakeFiles struct {
	objects map[string][]byte
	puts    int
}

func (f *fakeFiles) Put(_ context.Context, key, _ string, content []byte) error {
	f.puts++
	f.objects[key] = content
	return nil
}

func (f *fakeFiles) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeFiles) PresignedURL(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func newRecord(seminarID, userID uuid.UUID, present bool) *Record {
	held := time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)
	return &Record{
		RegistrationID: uuid.New(),
		UserID:         userID,
		Present:        present,
		UserName:       "João Araújo",
		Seminar:        models.SeminarSummary{ID: seminarID, Name: "Ética em Pesquisa", Slug: "etica-em-pesquisa", ScheduledAt: &held},
	}
}

func newService(store *fakeStore, jobs *fakeJobs, files FileStore) *Service {
	svc := NewService(store, jobs, files, "Seminários", "https://seminarios.example.edu", nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestIssueIsIdempotent(t *testing.T) {
	user := uuid.New()
	rec := newRecord(uuid.New(), user, true)
	store := &fakeStore{recs: map[uuid.UUID]*Record{rec.RegistrationID: rec}}
	jobs := &fakeJobs{}
	svc := newService(store, jobs, nil)

	first, err := svc.Issue(context.Background(), rec.RegistrationID, user)
	require.NoError(t, err)
	assert.Len(t, first.Code, 16)
	assert.Equal(t, fixedNow, first.IssuedAt)
	assert.Equal(t, "https://seminarios.example.edu/certificados/"+first.Code, first.URL)

	second, err := svc.Issue(context.Background(), rec.RegistrationID, user)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)

	require.Len(t, jobs.payloads, 1)
	assert.Equal(t, queue.CertificateIssuedPayload{RegistrationID: rec.RegistrationID, Now: fixedNow}, jobs.payloads[0])
}

func TestIssueRejections(t *testing.T) {
	user := uuid.New()
	absent := newRecord(uuid.New(), user, false)
	store := &fakeStore{recs: map[uuid.UUID]*Record{absent.RegistrationID: absent}}
	svc := newService(store, &fakeJobs{}, nil)

	_, err := svc.Issue(context.Background(), absent.RegistrationID, user)
	assert.ErrorIs(t, err, ErrNotPresent)
	_, err = svc.Issue(context.Background(), absent.RegistrationID, uuid.New())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Issue(context.Background(), uuid.New(), user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssueBatch(t *testing.T) {
	seminar := uuid.New()
	a, b, c := newRecord(seminar, uuid.New(), true), newRecord(seminar, uuid.New(), true), newRecord(seminar, uuid.New(), false)
	store := &fakeStore{recs: map[uuid.UUID]*Record{a.RegistrationID: a, b.RegistrationID: b, c.RegistrationID: c}}
	jobs := &fakeJobs{}
	svc := newService(store, jobs, nil)

	n, err := svc.IssueBatch(context.Background(), seminar)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, jobs.payloads, 2)

	n, err = svc.IssueBatch(context.Background(), seminar)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenderPDFIsDeterministic(t *testing.T) {
	doc := Document{
		AppName:     "Seminários",
		UserName:    "João Araújo",
		SeminarName: "Ética em Pesquisa",
		Code:        "ABCDEF0123456789",
		IssuedAt:    fixedNow,
		ValidateURL: "https://seminarios.example.edu/certificados/ABCDEF0123456789",
	}
	a, err := RenderPDF(doc)
	require.NoError(t, err)
	b, err := RenderPDF(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(a, []byte("%PDF-")))
	assert.Equal(t, a, b)
}

func TestDownloadCachesInFileStore(t *testing.T) {
	user := uuid.New()
	rec := newRecord(uuid.New(), user, true)
	store := &fakeStore{recs: map[uuid.UUID]*Record{rec.RegistrationID: rec}}
	files := &fakeFiles{objects: map[string][]byte{}}
	svc := newService(store, &fakeJobs{}, files)
	cert, err := svc.Issue(context.Background(), rec.RegistrationID, user)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		d, err := svc.Download(context.Background(), cert.Code)
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.example/certificates/"+cert.Code+".pdf?sig=1", d.RedirectURL)
	}
	assert.Equal(t, 1, files.puts)
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user := uuid.New()
	rec := newRecord(uuid.New(), user, true)
	store := &fakeStore{recs: map[uuid.UUID]*Record{rec.RegistrationID: rec}}
	h := NewHandler(newService(store, &fakeJobs{}, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, user)
		c.Next()
	})
	r.POST("/me/registrations/:id/certificate", h.Issue)
	r.GET("/me/certificates", h.Mine)
	r.GET("/certificates/:code", h.Validate)
	r.GET("/certificates/:code/pdf", h.Download)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/me/registrations/"+rec.RegistrationID.String()+"/certificate", nil))
	require.Equal(t, http.StatusOK, w.Code)
	code := *store.recs[rec.RegistrationID].Code

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificates/"+code, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_name":"João Araújo"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificates/"+code+"/pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificado-etica-em-pesquisa.pdf")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/certificates/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/certificates", nil))
	assert.Contains(t, w.Body.String(), code)
}
