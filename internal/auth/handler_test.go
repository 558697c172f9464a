package auth

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
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/utils"
)

type fakeUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	for _, u := range f.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) error {
	if existing, _ := f.GetByEmail(ctx, u.Email); existing != nil {
		return models.ErrEmailTaken
	}
	u.ID = uuid.New()
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) SetGoogleID(_ context.Context, id uuid.UUID, googleID string) error {
	f.byID[id].GoogleID = &googleID
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.byID[id].Password = hash
	return nil
}

type fakeResets map[string]*PasswordReset

func (f fakeResets) PutReset(_ context.Context, email, hash string, exp time.Time) error {
	f[normalizeEmail(email)] = &PasswordReset{Email: email, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f fakeResets) GetReset(_ context.Context, email string) (*PasswordReset, error) {
	return f[normalizeEmail(email)], nil
}

func (f fakeResets) DeleteReset(_ context.Context, email string) error {
	delete(f, normalizeEmail(email))
	return nil
}

type enqueued struct {
	jobType queue.JobType
	payload interface{}
}

type fakeJobs struct{ jobs []enqueued }

func (f *fakeJobs) EnqueueEmail(_ context.Context, t queue.JobType, p interface{}) (string, error) {
	f.jobs = append(f.jobs, enqueued{t, p})
	return "job-1", nil
}

type fakeGoogle struct {
	id  *GoogleIdentity
	err error
}

func (f fakeGoogle) Verify(string) (*GoogleIdentity, error) { return f.id, f.err }

type fixture struct {
	users  *fakeUsers
	resets fakeResets
	jobs   *fakeJobs
	svc    *Service
	router *gin.Engine
}

func newFixture(t *testing.T, google GoogleVerifier) *fixture {
	t.Helper()
	require.NoError(t, validation.Setup())
	gin.SetMode(gin.TestMode)
	f := &fixture{users: &fakeUsers{byID: map[uuid.UUID]*models.User{}}, resets: fakeResets{}, jobs: &fakeJobs{}}
	if google == nil {
		google = NewGoogleVerifier("")
	}
	f.svc = NewService(f.users, f.resets, f.jobs, NewJWTService("secret", 1), google, nil)
	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/google", h.Google)
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password", h.ResetPassword)
	f.router = r
	return f
}

func (f *fixture) post(path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t, nil)

	w := f.post("/auth/register", `{"name":"Ana","email":"Ana@Example.com","password":"senha1234","password_confirmation":"senha1234"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Data Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.Equal(t, "ana@example.com", body.Data.User.Email)
	assert.Equal(t, models.RoleUser, body.Data.User.Role)

	w = f.post("/auth/register", `{"name":"Ana","email":"ana@example.com","password":"senha1234","password_confirmation":"senha1234"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Este e-mail já está em uso.")

	w = f.post("/auth/login", `{"email":"ana@example.com","password":"senha1234"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.post("/auth/login", `{"email":"ana@example.com","password":"errada123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "E-mail ou senha inválidos.")
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, nil)
	w := f.post("/auth/register", `{"name":"Ana","email":"nope","password":"senha1234","password_confirmation":"outra"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, validation.MessageInvalid, body.Message)
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "password_confirmation")
}

func TestGoogleSignIn(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, nil)
		assert.Equal(t, http.StatusServiceUnavailable, f.post("/auth/google", `{"id_token":"x"}`).Code)
	})

	t.Run("bad token", func(t *testing.T) {
		f := newFixture(t, fakeGoogle{err: ErrGoogleToken})
		assert.Equal(t, http.StatusUnauthorized, f.post("/auth/google", `{"id_token":"x"}`).Code)
	})

	t.Run("creates then reuses account", func(t *testing.T) {
		f := newFixture(t, fakeGoogle{id: &GoogleIdentity{Subject: "g-1", Email: "bia@example.com", EmailVerified: true, Name: "Bia"}})
		require.Equal(t, http.StatusOK, f.post("/auth/google", `{"id_token":"x"}`).Code)
		require.Equal(t, http.StatusOK, f.post("/auth/google", `{"id_token":"x"}`).Code)
		require.Len(t, f.users.byID, 1)
		for _, u := range f.users.byID {
			require.NotNil(t, u.GoogleID)
			assert.Equal(t, "g-1", *u.GoogleID)
			assert.Equal(t, "Bia", u.Name)
		}
	})

	t.Run("links existing email", func(t *testing.T) {
		f := newFixture(t, fakeGoogle{id: &GoogleIdentity{Subject: "g-2", Email: "caio@example.com", EmailVerified: true}})
		existing := &models.User{Name: "Caio", Email: "caio@example.com", Role: models.RoleSpeaker}
		require.NoError(t, f.users.Create(context.Background(), existing))

		w := f.post("/auth/google", `{"id_token":"x"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"speaker"`)
		require.NotNil(t, existing.GoogleID)
		assert.Equal(t, "g-2", *existing.GoogleID)
	})

	t.Run("unverified email", func(t *testing.T) {
		f := newFixture(t, fakeGoogle{id: &GoogleIdentity{Subject: "g-3", Email: "x@example.com"}})
		assert.Equal(t, http.StatusForbidden, f.post("/auth/google", `{"id_token":"x"}`).Code)
	})
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t, nil)
	hash, err := utils.HashPassword("antiga123")
	require.NoError(t, err)
	u := &models.User{Name: "Davi", Email: "davi@example.com", Password: hash}
	require.NoError(t, f.users.Create(context.Background(), u))

	w := f.post("/auth/forgot-password", `{"email":"ninguem@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.jobs.jobs)

	w = f.post("/auth/forgot-password", `{"email":"davi@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), forgotPasswordMessage)
	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, queue.JobTypePasswordReset, f.jobs.jobs[0].jobType)
	payload := f.jobs.jobs[0].payload.(queue.PasswordResetPayload)
	assert.Equal(t, u.ID, payload.UserID)
	assert.NotEqual(t, payload.Token, f.resets["davi@example.com"].TokenHash)

	w = f.post("/auth/reset-password", `{"email":"davi@example.com","token":"wrong","password":"nova12345","password_confirmation":"nova12345"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := `{"email":"davi@example.com","token":"` + payload.Token + `","password":"nova12345","password_confirmation":"nova12345"}`
	w = f.post("/auth/reset-password", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, utils.CheckPassword("nova12345", u.Password))
	assert.Empty(t, f.resets)

	// Tokens are single use.
	assert.Equal(t, http.StatusUnprocessableEntity, f.post("/auth/reset-password", body).Code)
}

func TestResetPasswordExpired(t *testing.T) {
	f := newFixture(t, nil)
	u := &models.User{Name: "Eva", Email: "eva@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))
	require.NoError(t, f.svc.ForgotPassword(context.Background(), u.Email))
	token := f.jobs.jobs[0].payload.(queue.PasswordResetPayload).Token

	f.svc.now = func() time.Time { return time.Now().Add(ResetTokenTTL + time.Minute) }
	err := f.svc.ResetPassword(context.Background(), u.Email, token, "nova12345")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
