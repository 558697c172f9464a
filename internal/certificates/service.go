// Package certificates issues attendance certificates, renders them as PDF and serves
// public validation.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/storage"
	"github.com/campus-seminarios/backend/pkg/utils"
)

var (
	ErrNotFound   = errors.New("certificate not found")
	ErrNotPresent = errors.New("registration is not marked present")
	ErrForbidden  = errors.New("registration belongs to another user")
)

// Store is the persistence used by Service.
type Store interface {
	ByRegistration(ctx context.Context, registrationID uuid.UUID) (*Record, error)
	ByCode(ctx context.Context, code string) (*Record, error)
	Assign(ctx context.Context, registrationID uuid.UUID, code string, issuedAt time.Time) (string, bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Record, error)
	PendingBySeminar(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error)
}

// Enqueuer schedules email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// FileStore caches rendered PDFs and hands out download URLs.
type FileStore interface {
	Put(ctx context.Context, key, contentType string, content []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key, filename string) (string, error)
}

// Service issues and renders certificates.
type Service struct {
	store       Store
	jobs        Enqueuer
	files       FileStore
	appName     string
	frontendURL string
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a certificates service. files may be nil to serve PDFs directly.
func NewService(store Store, jobs Enqueuer, files FileStore, appName, frontendURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, jobs: jobs, files: files, appName: appName, frontendURL: frontendURL, logger: logger, now: time.Now}
}

// NewCode returns a fresh 16-character uppercase hex code.
func NewCode() (string, error) {
	h, err := utils.RandomHex(8)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(h), nil
}

// ValidateURL is the public validation page of a code.
func (s *Service) ValidateURL(code string) string {
	return s.frontendURL + "/certificados/" + code
}

// View converts an issued record to its public form.
func (s *Service) View(rec *Record) models.Certificate {
	return models.Certificate{
		Code:           *rec.Code,
		RegistrationID: rec.RegistrationID,
		UserName:       rec.UserName,
		Seminar:        rec.Seminar,
		IssuedAt:       *rec.IssuedAt,
		URL:            s.ValidateURL(*rec.Code),
	}
}

// Issue assigns a certificate to a present registration. Calling it again returns the same
// code; the mail job is only enqueued on first issue. userID, when not Nil, must own the
// registration.
func (s *Service) Issue(ctx context.Context, registrationID, userID uuid.UUID) (*models.Certificate, error) {
	rec, err := s.store.ByRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if userID != uuid.Nil && rec.UserID != userID {
		return nil, ErrForbidden
	}
	if !rec.Present {
		return nil, ErrNotPresent
	}
	if !rec.Issued() {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		now := s.now()
		code, assigned, err := s.store.Assign(ctx, registrationID, code, now)
		if err != nil {
			return nil, err
		}
		if assigned {
			s.logger.Info("certificate issued", zap.String("registration_id", registrationID.String()), zap.String("code", code))
			if _, err := s.jobs.EnqueueEmail(ctx, queue.JobTypeCertificateIssued,
				queue.CertificateIssuedPayload{RegistrationID: registrationID, Now: now}); err != nil {
				s.logger.Error("enqueue certificate mail", zap.Error(err), zap.String("registration_id", registrationID.String()))
			}
		}
		if rec, err = s.store.ByRegistration(ctx, registrationID); err != nil {
			return nil, err
		}
	}
	v := s.View(rec)
	return &v, nil
}

// IssueBatch issues certificates for every present registration of a seminar that has none.
// Returns how many were issued.
func (s *Service) IssueBatch(ctx context.Context, seminarID uuid.UUID) (int, error) {
	ids, err := s.store.PendingBySeminar(ctx, seminarID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if _, err := s.Issue(ctx, id, uuid.Nil); err != nil {
			return n, fmt.Errorf("issue %s: %w", id, err)
		}
		n++
	}
	return n, nil
}

// Validate returns the certificate holding code.
func (s *Service) Validate(ctx context.Context, code string) (*models.Certificate, error) {
	rec, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	v := s.View(rec)
	return &v, nil
}

// Mine lists the user's certificates.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) ([]models.Certificate, error) {
	recs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Certificate, 0, len(recs))
	for _, rec := range recs {
		if rec.Issued() {
			out = append(out, s.View(rec))
		}
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, code string) (*Record, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrNotFound
	}
	rec, err := s.store.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Issued() {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Render draws the PDF of an issued record.
func (s *Service) Render(rec *Record) ([]byte, error) {
	if !rec.Issued() {
		return nil, ErrNotFound
	}
	return RenderPDF(Document{
		AppName:     s.appName,
		UserName:    rec.UserName,
		SeminarName: rec.Seminar.Name,
		HeldAt:      rec.Seminar.ScheduledAt,
		Code:        *rec.Code,
		IssuedAt:    *rec.IssuedAt,
		ValidateURL: s.ValidateURL(*rec.Code),
	})
}

// RenderRegistration draws the PDF of a registration's certificate.
func (s *Service) RenderRegistration(ctx context.Context, registrationID uuid.UUID) (*Record, []byte, error) {
	rec, err := s.store.ByRegistration(ctx, registrationID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	pdf, err := s.Render(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, pdf, nil
}

// Download is either a redirect URL or the PDF bytes.
type Download struct {
	RedirectURL string
	Filename    string
	PDF         []byte
}

// Filename is the download name of a certificate.
func Filename(rec *Record) string {
	return "certificado-" + rec.Seminar.Slug + ".pdf"
}

// Download returns the certificate PDF. With a file store the PDF is cached under its code
// and a pre-signed URL is returned instead.
func (s *Service) Download(ctx context.Context, code string) (*Download, error) {
	rec, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	name := Filename(rec)
	if s.files == nil {
		pdf, err := s.Render(rec)
		if err != nil {
			return nil, err
		}
		return &Download{Filename: name, PDF: pdf}, nil
	}
	key := storage.CertificateKey(*rec.Code)
	ok, err := s.files.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		pdf, err := s.Render(rec)
		if err != nil {
			return nil, err
		}
		if err := s.files.Put(ctx, key, "application/pdf", pdf); err != nil {
			return nil, err
		}
	}
	url, err := s.files.PresignedURL(ctx, key, name)
	if err != nil {
		return nil, err
	}
	return &Download{RedirectURL: url, Filename: name}, nil
}
