package catalog

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

// Store is the catalog persistence used by Handler.
type Store interface {
	SeminarTypes(ctx context.Context) ([]models.SeminarType, error)
	Courses(ctx context.Context) ([]models.Course, error)
	CreateSeminarType(ctx context.Context, name string) (*models.SeminarType, error)
	CreateCourse(ctx context.Context, name string) (*models.Course, error)
}

// NameRequest is the body for creating a lookup entry.
type NameRequest struct {
	Name string `json:"name" binding:"required,notblank,max=255"`
}

// Handler serves lookup endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// SeminarTypes handles GET /seminar-types.
func (h *Handler) SeminarTypes(c *gin.Context) {
	list, err := h.store.SeminarTypes(c.Request.Context())
	if err != nil {
		h.logger.Error("list seminar types", zap.Error(err))
		response.Internal(c, "Não foi possível listar os tipos de seminário.")
		return
	}
	response.OK(c, list)
}

// Courses handles GET /courses.
func (h *Handler) Courses(c *gin.Context) {
	list, err := h.store.Courses(c.Request.Context())
	if err != nil {
		h.logger.Error("list courses", zap.Error(err))
		response.Internal(c, "Não foi possível listar os cursos.")
		return
	}
	response.OK(c, list)
}

// CreateSeminarType handles POST /admin/seminar-types.
func (h *Handler) CreateSeminarType(c *gin.Context) {
	var req NameRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	t, err := h.store.CreateSeminarType(c.Request.Context(), req.Name)
	h.created(c, t, err)
}

// CreateCourse handles POST /admin/courses.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req NameRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	course, err := h.store.CreateCourse(c.Request.Context(), req.Name)
	h.created(c, course, err)
}

func (h *Handler) created(c *gin.Context, v interface{}, err error) {
	switch {
	case errors.Is(err, ErrDuplicate):
		response.Unprocessable(c, validation.MessageInvalid, map[string][]string{"name": {"Este nome já está em uso."}})
	case err != nil:
		h.logger.Error("create catalog entry", zap.Error(err))
		response.Internal(c, "Não foi possível salvar.")
	default:
		response.Created(c, v)
	}
}
