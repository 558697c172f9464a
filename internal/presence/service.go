// Package presence lets authenticated users confirm their own attendance through a
// per-seminar link, and lets admins manage that link.
package presence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/metrics"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/realtime"
)

var (
	ErrLinkNotFound    = errors.New("presence link not found")
	ErrLinkInactive    = errors.New("presence link inactive")
	ErrLinkExpired     = errors.New("presence link expired")
	ErrSeminarNotFound = errors.New("seminar not found")
	ErrAlreadyPresent  = errors.New("presence already registered")
)

// User-facing messages.
const (
	MsgLinkNotFound    = "Link de presença não encontrado."
	MsgLinkInactive    = "Este link de presença está desativado."
	MsgLinkExpired     = "Este link de presença expirou."
	MsgSeminarNotFound = "Seminário não encontrado."
	MsgAlreadyPresent  = "Sua presença já foi registrada neste seminário."
	MsgRegistered      = "Presença registrada com sucesso!"
)

// Message maps a service error to its user-facing text. Unknown errors yield "".
func Message(err error) string {
	switch {
	case errors.Is(err, ErrLinkNotFound):
		return MsgLinkNotFound
	case errors.Is(err, ErrLinkInactive):
		return MsgLinkInactive
	case errors.Is(err, ErrLinkExpired):
		return MsgLinkExpired
	case errors.Is(err, ErrSeminarNotFound):
		return MsgSeminarNotFound
	case errors.Is(err, ErrAlreadyPresent):
		return MsgAlreadyPresent
	}
	return ""
}

// LinkStore is the presence persistence used by Service.
type LinkStore interface {
	GetLink(ctx context.Context, id uuid.UUID) (*models.PresenceLink, error)
	GetLinkBySeminar(ctx context.Context, seminarID uuid.UUID) (*models.PresenceLink, error)
	SaveLink(ctx context.Context, seminarID uuid.UUID, expiresAt time.Time, createdBy uuid.UUID) (*models.PresenceLink, error)
	ToggleLink(ctx context.Context, id uuid.UUID) (*models.PresenceLink, error)
	MarkPresent(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error)
}

// SeminarFinder loads seminars by id.
type SeminarFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// PresenceCounter counts present registrants of a seminar.
type PresenceCounter interface {
	CountPresent(ctx context.Context, seminarID uuid.UUID) (int, error)
}

// Publisher pushes realtime events to seminar monitors.
type Publisher interface {
	Publish(seminarID uuid.UUID, event string, payload interface{})
}

// LinkView is a link evaluated at request time together with its seminar.
type LinkView struct {
	models.PresenceLinkStatus
	Seminar models.SeminarSummary `json:"seminar"`
}

// Service implements link validation, self registration and link administration.
type Service struct {
	links       LinkStore
	seminars    SeminarFinder
	users       UserFinder
	counter     PresenceCounter
	events      Publisher
	frontendURL string
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a presence service. users, counter and events may be nil.
func NewService(links LinkStore, seminars SeminarFinder, users UserFinder, counter PresenceCounter,
	events Publisher, frontendURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		links:       links,
		seminars:    seminars,
		users:       users,
		counter:     counter,
		events:      events,
		frontendURL: frontendURL,
		logger:      logger,
		now:         time.Now,
	}
}

// URL is the public page that consumes a presence link.
func (s *Service) URL(id uuid.UUID) string {
	return s.frontendURL + "/presenca/" + id.String()
}

func (s *Service) view(ctx context.Context, l *models.PresenceLink) (*LinkView, error) {
	sem, err := s.seminars.GetByID(ctx, l.SeminarID)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, ErrSeminarNotFound
	}
	st := l.Status(s.now())
	st.URL = s.URL(l.ID)
	return &LinkView{PresenceLinkStatus: st, Seminar: sem.Summary()}, nil
}

// Lookup returns the link with its derived validity. Invalid links are returned too.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*LinkView, error) {
	l, err := s.links.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLinkNotFound
	}
	return s.view(ctx, l)
}

// Register marks userID present at the link's seminar. Checks run in order: link exists,
// is active, is not expired, seminar exists. The registration is then upserted atomically.
func (s *Service) Register(ctx context.Context, id, userID uuid.UUID) (*models.Seminar, error) {
	l, err := s.links.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLinkNotFound
	}
	now := s.now()
	if !l.Active {
		return nil, ErrLinkInactive
	}
	if l.IsExpired(now) {
		return nil, ErrLinkExpired
	}
	sem, err := s.seminars.GetByID(ctx, l.SeminarID)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, ErrSeminarNotFound
	}
	if _, err := s.links.MarkPresent(ctx, sem.ID, userID); err != nil {
		return nil, err
	}
	metrics.PresenceRegistrations.Inc()
	s.logger.Info("presence registered", zap.String("seminar_id", sem.ID.String()), zap.String("user_id", userID.String()))
	s.announce(ctx, sem.ID, userID, now)
	return sem, nil
}

// announce publishes the new presence and the updated count to monitors. Failures are logged.
func (s *Service) announce(ctx context.Context, seminarID, userID uuid.UUID, at time.Time) {
	if s.events == nil {
		return
	}
	ev := realtime.PresenceRegistered{SeminarID: seminarID, UserID: userID, RegisteredAt: at.UTC().Format(time.RFC3339)}
	if s.users != nil {
		if u, err := s.users.GetByID(ctx, userID); err == nil && u != nil {
			ev.UserName = u.Name
		}
	}
	s.events.Publish(seminarID, realtime.EventPresenceRegistered, ev)
	if s.counter == nil {
		return
	}
	n, err := s.counter.CountPresent(ctx, seminarID)
	if err != nil {
		s.logger.Warn("count presence", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		return
	}
	s.events.Publish(seminarID, realtime.EventPresenceCount, realtime.PresenceCount{Count: n})
}

// ForSeminar returns the seminar's link, or ErrLinkNotFound.
func (s *Service) ForSeminar(ctx context.Context, seminarID uuid.UUID) (*LinkView, error) {
	l, err := s.links.GetLinkBySeminar(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLinkNotFound
	}
	return s.view(ctx, l)
}

// Save creates or refreshes the seminar's link. An existing link keeps its uuid.
func (s *Service) Save(ctx context.Context, seminarID uuid.UUID, expiresAt time.Time, by uuid.UUID) (*LinkView, error) {
	sem, err := s.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if sem == nil {
		return nil, ErrSeminarNotFound
	}
	l, err := s.links.SaveLink(ctx, seminarID, expiresAt, by)
	if err != nil {
		return nil, err
	}
	st := l.Status(s.now())
	st.URL = s.URL(l.ID)
	return &LinkView{PresenceLinkStatus: st, Seminar: sem.Summary()}, nil
}

// Toggle flips a link between active and inactive.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*LinkView, error) {
	l, err := s.links.ToggleLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrLinkNotFound
	}
	return s.view(ctx, l)
}
