package workshops

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

const msgNotFound = "Workshop não encontrado."

// Store is the workshop persistence used by Handler.
type Store interface {
	List(ctx context.Context, search string, page response.Page) ([]*models.Workshop, int, error)
	GetBySlug(ctx context.Context, slug string) (*models.Workshop, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	Create(ctx context.Context, in Input) (*models.Workshop, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*models.Workshop, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// SaveRequest is the body for creating or updating a workshop.
type SaveRequest struct {
	Name        string      `json:"name" binding:"required,notblank,max=255"`
	Description string      `json:"description" binding:"max=20000"`
	SeminarIDs  []uuid.UUID `json:"seminar_ids" binding:"max=100"`
}

func (r SaveRequest) input() Input {
	return Input{Name: strings.TrimSpace(r.Name), Description: r.Description, SeminarIDs: r.SeminarIDs}
}

// Handler serves workshop endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a workshops handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /workshops and GET /admin/workshops.
func (h *Handler) List(c *gin.Context) {
	page := response.ParsePage(c)
	list, total, err := h.store.List(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.logger.Error("list workshops", zap.Error(err))
		response.Internal(c, "Não foi possível listar os workshops.")
		return
	}
	if list == nil {
		list = []*models.Workshop{}
	}
	response.Paginated(c, list, page.Meta(total))
}

// Show handles GET /workshops/:slug.
func (h *Handler) Show(c *gin.Context) {
	w, err := h.store.GetBySlug(c.Request.Context(), c.Param("slug"))
	h.respond(c, w, err)
}

// AdminShow handles GET /admin/workshops/:id.
func (h *Handler) AdminShow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	w, err := h.store.GetByID(c.Request.Context(), id)
	h.respond(c, w, err)
}

func (h *Handler) respond(c *gin.Context, w *models.Workshop, err error) {
	if err != nil {
		h.logger.Error("get workshop", zap.Error(err))
		response.Internal(c, "Não foi possível carregar o workshop.")
		return
	}
	if w == nil {
		response.NotFound(c, msgNotFound)
		return
	}
	response.OK(c, w)
}

// Create handles POST /admin/workshops.
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	w, err := h.store.Create(c.Request.Context(), req.input())
	if err != nil {
		h.logger.Error("create workshop", zap.Error(err))
		response.Internal(c, "Não foi possível criar o workshop.")
		return
	}
	response.Created(c, w)
}

// Update handles PUT /admin/workshops/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SaveRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	w, err := h.store.Update(c.Request.Context(), id, req.input())
	if err != nil {
		h.logger.Error("update workshop", zap.Error(err), zap.String("workshop_id", id.String()))
		response.Internal(c, "Não foi possível atualizar o workshop.")
		return
	}
	if w == nil {
		response.NotFound(c, msgNotFound)
		return
	}
	response.OK(c, w)
}

// Delete handles DELETE /admin/workshops/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete workshop", zap.Error(err), zap.String("workshop_id", id.String()))
		response.Internal(c, "Não foi possível excluir o workshop.")
		return
	}
	if !found {
		response.NotFound(c, msgNotFound)
		return
	}
	response.NoContent(c)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, msgNotFound)
		return uuid.Nil, false
	}
	return id, true
}
