package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/utils"
)

// ResetTokenTTL is how long a password reset link stays usable.
const ResetTokenTTL = 60 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrEmailNotVerified   = errors.New("google email not verified")
)

// UserStore is the user persistence the auth flows need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	SetGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// ResetStore persists password reset tokens.
type ResetStore interface {
	PutReset(ctx context.Context, email, tokenHash string, expiresAt time.Time) error
	GetReset(ctx context.Context, email string) (*PasswordReset, error)
	DeleteReset(ctx context.Context, email string) error
}

// Enqueuer schedules email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// Session is a signed-in user with its token.
type Session struct {
	Token
	User models.UserPublic `json:"user"`
}

// RegisterInput is a self sign-up.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Institution string
	CourseID    *int64
}

// Service implements sign-up, sign-in and password recovery.
type Service struct {
	users  UserStore
	resets ResetStore
	jobs   Enqueuer
	tokens *JWTService
	google GoogleVerifier
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an auth service.
func NewService(users UserStore, resets ResetStore, jobs Enqueuer, tokens *JWTService, google GoogleVerifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, resets: resets, jobs: jobs, tokens: tokens, google: google, logger: logger, now: time.Now}
}

func (s *Service) session(u *models.User) (*Session, error) {
	tok, err := s.tokens.Generate(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: tok, User: u.ToPublic()}, nil
}

// Register creates a regular user and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:        strings.TrimSpace(in.Name),
		Email:       normalizeEmail(in.Email),
		Password:    hash,
		Role:        models.RoleUser,
		Institution: strings.TrimSpace(in.Institution),
		CourseID:    in.CourseID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return s.session(u)
}

// Login checks email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !utils.CheckPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Google signs in with a Google ID token. Unknown accounts are linked by email or created.
func (s *Service) Google(ctx context.Context, idToken string) (*Session, error) {
	id, err := s.google.Verify(idToken)
	if err != nil {
		return nil, err
	}
	if !id.EmailVerified || id.Email == "" {
		return nil, ErrEmailNotVerified
	}
	u, err := s.users.GetByGoogleID(ctx, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("get user by google id: %w", err)
	}
	if u != nil {
		return s.session(u)
	}

	u, err = s.users.GetByEmail(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if u != nil {
		if err := s.users.SetGoogleID(ctx, u.ID, id.Subject); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		return s.session(u)
	}

	random, err := utils.RandomPassword(24)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(random)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	sub := id.Subject
	u = &models.User{Name: name, Email: normalizeEmail(id.Email), Password: hash, Role: models.RoleUser, GoogleID: &sub}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered with google", zap.String("user_id", u.ID.String()))
	return s.session(u)
}

// ForgotPassword stores a reset token and enqueues the reset mail. Unknown emails are
// silently ignored so callers cannot enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil
	}
	token, err := utils.RandomHex(32)
	if err != nil {
		return err
	}
	if err := s.resets.PutReset(ctx, u.Email, utils.SHA256Hex(token), s.now().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset: %w", err)
	}
	if _, err := s.jobs.EnqueueEmail(ctx, queue.JobTypePasswordReset, queue.PasswordResetPayload{UserID: u.ID, Token: token}); err != nil {
		return fmt.Errorf("enqueue reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password when token matches the pending reset for email.
func (s *Service) ResetPassword(ctx context.Context, email, token, password string) error {
	pr, err := s.resets.GetReset(ctx, email)
	if err != nil {
		return fmt.Errorf("get reset: %w", err)
	}
	if pr == nil || s.now().After(pr.ExpiresAt) ||
		subtle.ConstantTimeCompare([]byte(pr.TokenHash), []byte(utils.SHA256Hex(token))) != 1 {
		return ErrInvalidResetToken
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return ErrInvalidResetToken
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.resets.DeleteReset(ctx, email); err != nil {
		s.logger.Warn("delete password reset", zap.Error(err), zap.String("user_id", u.ID.String()))
	}
	return nil
}
