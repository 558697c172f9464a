package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/campus-seminarios/backend/internal/models"
)

// Session is the answer to a successful sign-in.
type Session struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Login signs in with email and password and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &s, nil); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// PresenceLink is the public view of a presence link.
type PresenceLink struct {
	models.PresenceLinkStatus
	Seminar models.SeminarSummary `json:"seminar"`
}

// PresenceLink handles GET /presence/:uuid.
func (c *Client) PresenceLink(ctx context.Context, id string) (*PresenceLink, error) {
	var link PresenceLink
	if _, err := c.do(ctx, http.MethodGet, "/presence/"+url.PathEscape(id), nil, nil, &link, nil); err != nil {
		return nil, err
	}
	return &link, nil
}

// PresenceResult is the answer to a successful presence registration.
type PresenceResult struct {
	Message string
	Seminar models.SeminarSummary
}

// RegisterPresence handles POST /presence/:uuid/register.
func (c *Client) RegisterPresence(ctx context.Context, id string) (*PresenceResult, error) {
	var data struct {
		Seminar models.SeminarSummary `json:"seminar"`
	}
	msg, err := c.do(ctx, http.MethodPost, "/presence/"+url.PathEscape(id)+"/register", nil, nil, &data, nil)
	if err != nil {
		return nil, err
	}
	return &PresenceResult{Message: msg, Seminar: data.Seminar}, nil
}

func searchQuery(term string, perPage int) url.Values {
	q := url.Values{}
	if term != "" {
		q.Set("search", term)
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return q
}

// Seminars handles GET /seminars?search=.
func (c *Client) Seminars(ctx context.Context, term string, perPage int) (*Page[models.Seminar], error) {
	var p Page[models.Seminar]
	if _, err := c.do(ctx, http.MethodGet, "/seminars", searchQuery(term, perPage), nil, &p.Data, &p.Meta); err != nil {
		return nil, err
	}
	return &p, nil
}

// Subjects handles GET /subjects?search=.
func (c *Client) Subjects(ctx context.Context, term string) ([]models.Subject, error) {
	var list []models.Subject
	if _, err := c.do(ctx, http.MethodGet, "/subjects", searchQuery(term, 0), nil, &list, nil); err != nil {
		return nil, err
	}
	return list, nil
}

// Speakers handles GET /admin/speakers?search=.
func (c *Client) Speakers(ctx context.Context, term string, perPage int) (*Page[models.Speaker], error) {
	var p Page[models.Speaker]
	if _, err := c.do(ctx, http.MethodGet, "/admin/speakers", searchQuery(term, perPage), nil, &p.Data, &p.Meta); err != nil {
		return nil, err
	}
	return &p, nil
}

// SpeakerInput creates a speaker. A blank Password lets the server generate one.
type SpeakerInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Institution string `json:"institution,omitempty"`
	Description string `json:"description,omitempty"`
	Password    string `json:"password,omitempty"`
}

// CreateSpeaker handles POST /admin/speakers.
func (c *Client) CreateSpeaker(ctx context.Context, in SpeakerInput) (*models.Speaker, error) {
	var s models.Speaker
	if _, err := c.do(ctx, http.MethodPost, "/admin/speakers", nil, in, &s, nil); err != nil {
		return nil, err
	}
	return &s, nil
}
