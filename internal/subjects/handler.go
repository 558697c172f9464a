package subjects

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/pkg/response"
)

// Store is the subject persistence used by Handler.
type Store interface {
	List(ctx context.Context, search string) ([]models.Subject, error)
	GetBySlug(ctx context.Context, slug string) (*models.Subject, error)
}

// SeminarPager writes a page of seminars for a filter.
type SeminarPager interface {
	ListPage(c *gin.Context, f seminars.ListFilter)
}

// Handler serves subject endpoints.
type Handler struct {
	store    Store
	seminars SeminarPager
	logger   *zap.Logger
}

// NewHandler creates a subjects handler.
func NewHandler(store Store, seminars SeminarPager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, seminars: seminars, logger: logger}
}

// List handles GET /subjects?search=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.logger.Error("list subjects", zap.Error(err))
		response.Internal(c, "Não foi possível listar os assuntos.")
		return
	}
	response.OK(c, list)
}

// Seminars handles GET /subjects/:slug/seminars.
func (h *Handler) Seminars(c *gin.Context) {
	subject, err := h.store.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.logger.Error("get subject", zap.Error(err), zap.String("slug", c.Param("slug")))
		response.Internal(c, "Não foi possível carregar o assunto.")
		return
	}
	if subject == nil {
		response.NotFound(c, "Assunto não encontrado.")
		return
	}
	f := seminars.FilterFromQuery(c, time.Now())
	f.SubjectSlug = subject.Slug
	h.seminars.ListPage(c, f)
}
