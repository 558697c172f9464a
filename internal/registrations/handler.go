package registrations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/pkg/response"
)

const (
	msgRegistered        = "Inscrição realizada com sucesso!"
	msgAlreadyRegistered = "Você já está inscrito neste seminário."
	msgClosed            = "As inscrições para este seminário estão encerradas."
	msgNotRegistered     = "Inscrição não encontrada."
	msgPresentLocked     = "Não é possível cancelar uma inscrição com presença confirmada."
	msgSeminarNotFound   = "Seminário não encontrado."
)

// Store is the registration persistence used by Handler.
type Store interface {
	Create(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error)
	Get(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error)
	Delete(ctx context.Context, seminarID, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page response.Page) ([]models.RegistrationWithSeminar, int, error)
	ListBySeminar(ctx context.Context, seminarID uuid.UUID) ([]models.Registrant, error)
}

// SeminarFinder loads seminars by id.
type SeminarFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	store    Store
	seminars SeminarFinder
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a registrations handler.
func NewHandler(store Store, seminars SeminarFinder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, seminars: seminars, logger: logger, now: time.Now}
}

// Register handles POST /seminars/:id/registrations for the signed-in user.
func (h *Handler) Register(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	ctx := c.Request.Context()
	s, err := h.seminars.GetByID(ctx, seminarID)
	if err != nil {
		h.logger.Error("get seminar", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível realizar a inscrição.")
		return
	}
	if s == nil || !s.Active {
		response.NotFound(c, msgSeminarNotFound)
		return
	}
	if s.Expired(h.now()) {
		response.Unprocessable(c, msgClosed, nil)
		return
	}
	reg, err := h.store.Create(ctx, seminarID, userID)
	if errors.Is(err, ErrAlreadyRegistered) {
		response.Conflict(c, msgAlreadyRegistered)
		return
	}
	if err != nil {
		h.logger.Error("create registration", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível realizar a inscrição.")
		return
	}
	h.logger.Info("registration created", zap.String("seminar_id", seminarID.String()), zap.String("user_id", userID.String()))
	c.JSON(http.StatusCreated, response.Body{Message: msgRegistered, Data: reg})
}

// Unregister handles DELETE /seminars/:id/registrations. A present registration is kept.
func (h *Handler) Unregister(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	ctx := c.Request.Context()
	reg, err := h.store.Get(ctx, seminarID, userID)
	if err != nil {
		h.logger.Error("get registration", zap.Error(err))
		response.Internal(c, "Não foi possível cancelar a inscrição.")
		return
	}
	if reg == nil {
		response.NotFound(c, msgNotRegistered)
		return
	}
	if reg.Present {
		response.Unprocessable(c, msgPresentLocked, nil)
		return
	}
	if _, err := h.store.Delete(ctx, seminarID, userID); err != nil {
		h.logger.Error("delete registration", zap.Error(err))
		response.Internal(c, "Não foi possível cancelar a inscrição.")
		return
	}
	response.NoContent(c)
}

// Mine handles GET /me/registrations.
func (h *Handler) Mine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	page := response.ParsePage(c)
	list, total, err := h.store.ListByUser(c.Request.Context(), userID, page)
	if err != nil {
		h.logger.Error("list registrations", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Não foi possível listar suas inscrições.")
		return
	}
	if list == nil {
		list = []models.RegistrationWithSeminar{}
	}
	response.Paginated(c, list, page.Meta(total))
}

// BySeminar handles GET /admin/seminars/:id/registrations.
func (h *Handler) BySeminar(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	list, err := h.store.ListBySeminar(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("list registrants", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível listar as inscrições.")
		return
	}
	if list == nil {
		list = []models.Registrant{}
	}
	response.OK(c, list)
}
