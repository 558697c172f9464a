package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	xsrf   string
	auth   string
	search string
}

func newServer(t *testing.T) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok%3D", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/presence/", func(w http.ResponseWriter, r *http.Request) {
		rec.xsrf = r.Header.Get("X-XSRF-TOKEN")
		rec.auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/presence/expired":
			w.Write([]byte(`{"data":{"uuid":"` + uuid.Nil.String() + `","active":true,"is_expired":true,"is_valid":false,"seminar":{"name":"IA"}}}`))
		case r.Method == http.MethodPost:
			w.Write([]byte(`{"message":"Presença registrada com sucesso!","data":{"seminar":{"name":"IA na Saúde","slug":"ia-na-saude"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Link de presença não encontrado."}`))
		}
	})
	mux.HandleFunc("/api/seminars", func(w http.ResponseWriter, r *http.Request) {
		rec.search = r.URL.Query().Get("search")
		w.Write([]byte(`{"data":[{"name":"Redes"}],"meta":{"current_page":1,"last_page":3,"per_page":1,"total":3}}`))
	})
	mux.HandleFunc("/api/admin/speakers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Os dados informados são inválidos.","errors":{"email":["Este e-mail já está em uso."]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestRegisterPresenceEchoesXSRFCookieAndToken(t *testing.T) {
	srv, rec := newServer(t)
	c, err := New(srv.URL+"/api/", WithToken("jwt"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.PrimeCSRF(ctx))
	res, err := c.RegisterPresence(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, "Presença registrada com sucesso!", res.Message)
	assert.Equal(t, "IA na Saúde", res.Seminar.Name)
	assert.Equal(t, "tok=", rec.xsrf)
	assert.Equal(t, "Bearer jwt", rec.auth)
}

func TestNoXSRFHeaderWithoutCookie(t *testing.T) {
	srv, rec := newServer(t)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)
	assert.False(t, c.Authenticated())

	link, err := c.PresenceLink(context.Background(), "expired")
	require.NoError(t, err)
	assert.Empty(t, rec.xsrf)
	assert.Empty(t, rec.auth)
	assert.False(t, link.IsValid)
	assert.True(t, link.IsExpired)
	assert.Equal(t, "IA", link.Seminar.Name)
}

func TestErrorsCarryServerMessage(t *testing.T) {
	srv, _ := newServer(t)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)

	_, err = c.PresenceLink(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Link de presença não encontrado.", MessageOf(err, "Link inválido"))

	_, err = c.CreateSpeaker(context.Background(), SpeakerInput{Name: "Ana", Email: "ana@uni.br"})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"Este e-mail já está em uso."}, apiErr.Errors["email"])
}

func TestTransportFailureUsesFallback(t *testing.T) {
	srv, _ := newServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	_, err = c.PresenceLink(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "Link inválido", MessageOf(err, "Link inválido"))
}

func TestSeminarsDecodesMeta(t *testing.T) {
	srv, rec := newServer(t)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)

	page, err := c.Seminars(context.Background(), "red", 1)
	require.NoError(t, err)
	assert.Equal(t, "red", rec.search)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Redes", page.Data[0].Name)
	assert.Equal(t, Meta{CurrentPage: 1, LastPage: 3, PerPage: 1, Total: 3}, page.Meta)
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}
