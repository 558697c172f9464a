package ratings

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

// CommentRequiredBelow is the highest score that requires a comment.
const CommentRequiredBelow = 3

const (
	msgRated        = "Avaliação registrada com sucesso!"
	msgAlreadyRated = "Você já avaliou este seminário."
	msgNotAttended  = "Apenas participantes com presença confirmada podem avaliar este seminário."
	msgNotHappened  = "O seminário ainda não aconteceu."
	msgNeedComment  = "Conte-nos o que podemos melhorar."
)

// Store is the rating persistence used by Handler.
type Store interface {
	Create(ctx context.Context, rt *models.Rating) error
	Evaluations(ctx context.Context, userID uuid.UUID, now time.Time, page response.Page) ([]models.PendingEvaluation, int, error)
	SummaryBySeminar(ctx context.Context, seminarID uuid.UUID) (Summary, error)
}

// RegistrationFinder loads a user's registration for a seminar.
type RegistrationFinder interface {
	Get(ctx context.Context, seminarID, userID uuid.UUID) (*models.Registration, error)
}

// SeminarFinder loads seminars by id.
type SeminarFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// RateRequest is the body for POST /seminars/:id/ratings.
type RateRequest struct {
	Score   int     `json:"score" binding:"required,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// Handler serves rating endpoints.
type Handler struct {
	store         Store
	registrations RegistrationFinder
	seminars      SeminarFinder
	logger        *zap.Logger
	now           func() time.Time
}

// NewHandler creates a ratings handler.
func NewHandler(store Store, registrations RegistrationFinder, seminars SeminarFinder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, registrations: registrations, seminars: seminars, logger: logger, now: time.Now}
}

// Rate handles POST /seminars/:id/ratings.
func (h *Handler) Rate(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	var req RateRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	var comment *string
	if req.Comment != nil {
		if v := strings.TrimSpace(*req.Comment); v != "" {
			comment = &v
		}
	}
	if req.Score <= CommentRequiredBelow && comment == nil {
		response.Unprocessable(c, validation.MessageInvalid, map[string][]string{"comment": {msgNeedComment}})
		return
	}

	ctx := c.Request.Context()
	s, err := h.seminars.GetByID(ctx, seminarID)
	if err != nil {
		h.logger.Error("get seminar", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível registrar a avaliação.")
		return
	}
	if s == nil {
		response.NotFound(c, "Seminário não encontrado.")
		return
	}
	if !s.Expired(h.now()) {
		response.Unprocessable(c, msgNotHappened, nil)
		return
	}
	reg, err := h.registrations.Get(ctx, seminarID, userID)
	if err != nil {
		h.logger.Error("get registration", zap.Error(err))
		response.Internal(c, "Não foi possível registrar a avaliação.")
		return
	}
	if reg == nil || !reg.Present {
		response.Forbidden(c, msgNotAttended)
		return
	}

	rt := &models.Rating{SeminarID: seminarID, UserID: userID, Score: req.Score, Comment: comment}
	err = h.store.Create(ctx, rt)
	if errors.Is(err, ErrAlreadyRated) {
		response.Conflict(c, msgAlreadyRated)
		return
	}
	if err != nil {
		h.logger.Error("create rating", zap.Error(err), zap.String("seminar_id", seminarID.String()))
		response.Internal(c, "Não foi possível registrar a avaliação.")
		return
	}
	c.JSON(http.StatusCreated, response.Body{Message: msgRated, Data: rt})
}

// Evaluations handles GET /me/evaluations.
func (h *Handler) Evaluations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	page := response.ParsePage(c)
	list, total, err := h.store.Evaluations(c.Request.Context(), userID, h.now(), page)
	if err != nil {
		h.logger.Error("list evaluations", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Não foi possível listar suas avaliações.")
		return
	}
	if list == nil {
		list = []models.PendingEvaluation{}
	}
	response.Paginated(c, list, page.Meta(total))
}

// Summary handles GET /admin/seminars/:id/ratings.
func (h *Handler) Summary(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	s, err := h.store.SummaryBySeminar(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("rating summary", zap.Error(err))
		response.Internal(c, "Não foi possível carregar as avaliações.")
		return
	}
	response.OK(c, s)
}
