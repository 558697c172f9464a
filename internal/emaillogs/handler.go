package emaillogs

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/queue"
	"github.com/campus-seminarios/backend/pkg/response"
)

// Store reads email logs.
type Store interface {
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]*models.EmailLog, error)
}

// RegistrationStore loads registrations.
type RegistrationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Registrant, error)
}

// SeminarFinder loads seminars by id.
type SeminarFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Enqueuer schedules email jobs.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	store         Store
	registrations RegistrationStore
	seminars      SeminarFinder
	jobs          Enqueuer
	logger        *zap.Logger
	now           func() time.Time
}

// NewHandler creates an email logs handler.
func NewHandler(store Store, registrations RegistrationStore, seminars SeminarFinder, jobs Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, registrations: registrations, seminars: seminars, jobs: jobs, logger: logger, now: time.Now}
}

// ListBySeminar handles GET /admin/seminars/:id/emails.
func (h *Handler) ListBySeminar(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	logs, err := h.store.ListBySeminar(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("list email logs", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível carregar o histórico de e-mails.")
		return
	}
	if logs == nil {
		logs = []*models.EmailLog{}
	}
	response.OK(c, logs)
}

// ResendRequest is the body for POST /admin/seminars/:id/emails/resend.
type ResendRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	EmailType      string    `json:"email_type" binding:"required,oneof=seminar_reminder evaluation_reminder certificate_generated"`
}

// Resend handles POST /admin/seminars/:id/emails/resend. It re-enqueues one email of a registration.
func (h *Handler) Resend(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	var req ResendRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	reg, err := h.registrations.GetByID(ctx, req.RegistrationID)
	if err != nil {
		h.logger.Error("get registration", zap.Error(err))
		response.Internal(c, "Não foi possível reenviar o e-mail.")
		return
	}
	if reg == nil || reg.SeminarID != seminarID {
		response.NotFound(c, "Inscrição não encontrada.")
		return
	}

	now := h.now()
	var (
		jobType queue.JobType
		payload interface{}
	)
	switch req.EmailType {
	case models.EmailTypeSeminarReminder:
		jobType = queue.JobTypeSeminarReminder
		payload = queue.SeminarReminderPayload{UserID: reg.UserID, SeminarIDs: []uuid.UUID{seminarID}, Now: now}
	case models.EmailTypeEvaluationReminder:
		if !reg.Present {
			response.Unprocessable(c, "O participante não teve presença confirmada.", nil)
			return
		}
		jobType = queue.JobTypeEvaluationReminder
		payload = queue.EvaluationReminderPayload{UserID: reg.UserID, SeminarIDs: []uuid.UUID{seminarID}, Now: now}
	case models.EmailTypeCertificate:
		if reg.CertificateCode == nil {
			response.Unprocessable(c, "O certificado desta inscrição ainda não foi emitido.", nil)
			return
		}
		jobType = queue.JobTypeCertificateIssued
		payload = queue.CertificateIssuedPayload{RegistrationID: reg.ID, Now: now}
	}
	jobID, err := h.jobs.EnqueueEmail(ctx, jobType, payload)
	if err != nil {
		h.logger.Error("enqueue resend", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		response.Internal(c, "Não foi possível reenviar o e-mail.")
		return
	}
	response.Message(c, http.StatusAccepted, "E-mail reenviado para a fila.", gin.H{"job_id": jobID})
}

// Reminders handles POST /admin/seminars/:id/reminders. One reminder is enqueued per registrant.
func (h *Handler) Reminders(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	s, err := h.seminars.GetByID(ctx, seminarID)
	if err != nil {
		h.logger.Error("get seminar", zap.Error(err))
		response.Internal(c, "Não foi possível enviar os lembretes.")
		return
	}
	if s == nil {
		response.NotFound(c, "Seminário não encontrado.")
		return
	}
	list, err := h.registrations.ListBySeminar(ctx, seminarID)
	if err != nil {
		h.logger.Error("list registrants", zap.Error(err))
		response.Internal(c, "Não foi possível enviar os lembretes.")
		return
	}
	now := h.now()
	queued := 0
	for _, r := range list {
		_, err := h.jobs.EnqueueEmail(ctx, queue.JobTypeSeminarReminder,
			queue.SeminarReminderPayload{UserID: r.UserID, SeminarIDs: []uuid.UUID{seminarID}, Now: now})
		if err != nil {
			h.logger.Error("enqueue reminder", zap.Error(err), zap.String("user_id", r.UserID.String()))
			continue
		}
		queued++
	}
	h.logger.Info("manual reminders queued", zap.String("seminar_id", seminarID.String()), zap.Int("queued", queued))
	response.Message(c, http.StatusAccepted, "Lembretes adicionados à fila.", gin.H{"queued": queued})
}
