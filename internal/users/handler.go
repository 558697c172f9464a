package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
	"github.com/campus-seminarios/backend/pkg/utils"
)

const generatedPasswordLength = 12

// Store is the persistence used by Handler.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) (*models.User, error)
	List(ctx context.Context, f ListFilter, page response.Page) ([]models.UserPublic, int, error)
	ListSpeakers(ctx context.Context, search string, page response.Page) ([]models.Speaker, int, error)
}

// UpdateProfileRequest is the body for PUT /me.
type UpdateProfileRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=255"`
	Institution string `json:"institution" binding:"max=255"`
	Description string `json:"description" binding:"max=2000"`
	CourseID    *int64 `json:"course_id"`
}

// CreateSpeakerRequest is the body for POST /admin/speakers. A blank password is
// replaced by a random one.
type CreateSpeakerRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=255"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Institution string `json:"institution" binding:"max=255"`
	Description string `json:"description" binding:"max=2000"`
	Password    string `json:"password" binding:"omitempty,min=8,max=72"`
}

// Handler serves profile and admin user endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	u, err := h.store.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("get user", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Não foi possível carregar o perfil.")
		return
	}
	if u == nil {
		response.NotFound(c, "Usuário não encontrado.")
		return
	}
	response.OK(c, u.ToPublic())
}

// UpdateMe handles PUT /me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	userID, _ := middleware.UserID(c)
	u, err := h.store.UpdateProfile(c.Request.Context(), userID, ProfileUpdate{
		Name:        strings.TrimSpace(req.Name),
		Institution: strings.TrimSpace(req.Institution),
		Description: strings.TrimSpace(req.Description),
		CourseID:    req.CourseID,
	})
	if err != nil {
		h.logger.Error("update profile", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "Não foi possível atualizar o perfil.")
		return
	}
	if u == nil {
		response.NotFound(c, "Usuário não encontrado.")
		return
	}
	response.Message(c, http.StatusOK, "Perfil atualizado com sucesso.", u.ToPublic())
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	page := response.ParsePage(c)
	f := ListFilter{Search: c.Query("search"), Role: models.Role(c.Query("role"))}
	list, total, err := h.store.List(c.Request.Context(), f, page)
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "Não foi possível listar os usuários.")
		return
	}
	response.Paginated(c, list, page.Meta(total))
}

// Speakers handles GET /admin/speakers?search=.
func (h *Handler) Speakers(c *gin.Context) {
	page := response.ParsePage(c)
	list, total, err := h.store.ListSpeakers(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.logger.Error("list speakers", zap.Error(err))
		response.Internal(c, "Não foi possível listar os palestrantes.")
		return
	}
	response.Paginated(c, list, page.Meta(total))
}

// CreateSpeaker handles POST /admin/speakers.
func (h *Handler) CreateSpeaker(c *gin.Context) {
	var req CreateSpeakerRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	password := req.Password
	if strings.TrimSpace(password) == "" {
		generated, err := utils.RandomPassword(generatedPasswordLength)
		if err != nil {
			response.Internal(c, "Não foi possível cadastrar o palestrante.")
			return
		}
		password = generated
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		response.Internal(c, "Não foi possível cadastrar o palestrante.")
		return
	}
	u := &models.User{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    hash,
		Role:        models.RoleSpeaker,
		Institution: strings.TrimSpace(req.Institution),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.store.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			response.Unprocessable(c, validation.MessageInvalid, map[string][]string{"email": {"Este e-mail já está em uso."}})
			return
		}
		h.logger.Error("create speaker", zap.Error(err))
		response.Internal(c, "Não foi possível cadastrar o palestrante.")
		return
	}
	h.logger.Info("speaker created", zap.String("user_id", u.ID.String()))
	response.Created(c, SpeakerOf(u.ToPublic()))
}
