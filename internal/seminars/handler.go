package seminars

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

const (
	defaultUpcomingLimit = 6
	maxUpcomingLimit     = 24
	msgNotFound          = "Seminário não encontrado."
)

// Store is the seminar persistence used by Handler.
type Store interface {
	List(ctx context.Context, f ListFilter, page response.Page) ([]*models.Seminar, int, error)
	Upcoming(ctx context.Context, now time.Time, limit int) ([]*models.Seminar, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
	GetBySlug(ctx context.Context, slug string) (*models.Seminar, error)
	Create(ctx context.Context, in Input) (*models.Seminar, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*models.Seminar, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// SaveRequest is the body for POST /admin/seminars and PUT /admin/seminars/:id.
type SaveRequest struct {
	Name          string      `json:"name" binding:"required,notblank,max=255"`
	Description   string      `json:"description" binding:"max=20000"`
	ScheduledAt   *time.Time  `json:"scheduled_at"`
	RoomLink      *string     `json:"room_link" binding:"omitempty,url,max=500"`
	Location      *string     `json:"location" binding:"omitempty,max=255"`
	SeminarTypeID *int64      `json:"seminar_type_id"`
	WorkshopID    *uuid.UUID  `json:"workshop_id"`
	Active        *bool       `json:"active"`
	SpeakerIDs    []uuid.UUID `json:"speaker_ids" binding:"max=20"`
	SubjectNames  []string    `json:"subject_names" binding:"max=20,dive,notblank,max=100"`
}

// Normalize drops blank optional links so that a cleared field validates as absent.
func (r *SaveRequest) Normalize() {
	r.RoomLink = blankToNil(r.RoomLink)
	r.Location = blankToNil(r.Location)
}

func (r SaveRequest) input() Input {
	in := Input{
		Name:          strings.TrimSpace(r.Name),
		Description:   r.Description,
		ScheduledAt:   r.ScheduledAt,
		RoomLink:      blankToNil(r.RoomLink),
		Location:      blankToNil(r.Location),
		SeminarTypeID: r.SeminarTypeID,
		WorkshopID:    r.WorkshopID,
		Active:        r.Active == nil || *r.Active,
		SpeakerIDs:    r.SpeakerIDs,
	}
	seen := make(map[string]bool)
	for _, name := range r.SubjectNames {
		name = strings.TrimSpace(name)
		if key := strings.ToLower(name); name != "" && !seen[key] {
			seen[key] = true
			in.SubjectNames = append(in.SubjectNames, name)
		}
	}
	return in
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Handler serves public and admin seminar endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a seminars handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger, now: time.Now}
}

func (h *Handler) mark(list ...*models.Seminar) {
	now := h.now()
	for _, s := range list {
		s.IsExpired = s.Expired(now)
	}
}

// FilterFromQuery reads the public listing filters.
func FilterFromQuery(c *gin.Context, now time.Time) ListFilter {
	f := ListFilter{
		Search:       c.Query("search"),
		SubjectSlug:  c.Query("subject"),
		WorkshopSlug: c.Query("workshop"),
		ActiveOnly:   true,
		Now:          now,
	}
	if id, err := strconv.ParseInt(c.Query("type"), 10, 64); err == nil {
		f.TypeID = id
	}
	if s := c.Query("status"); s == StatusUpcoming || s == StatusPast {
		f.Status = s
	}
	return f
}

// ListPage writes one page of seminars matching f.
func (h *Handler) ListPage(c *gin.Context, f ListFilter) {
	page := response.ParsePage(c)
	list, total, err := h.store.List(c.Request.Context(), f, page)
	if err != nil {
		h.logger.Error("list seminars", zap.Error(err))
		response.Internal(c, "Não foi possível listar os seminários.")
		return
	}
	if list == nil {
		list = []*models.Seminar{}
	}
	h.mark(list...)
	response.Paginated(c, list, page.Meta(total))
}

// List handles GET /seminars.
func (h *Handler) List(c *gin.Context) {
	h.ListPage(c, FilterFromQuery(c, h.now()))
}

// AdminList handles GET /admin/seminars, including inactive seminars.
func (h *Handler) AdminList(c *gin.Context) {
	f := FilterFromQuery(c, h.now())
	f.ActiveOnly = false
	h.ListPage(c, f)
}

// Upcoming handles GET /seminars/upcoming?limit=.
func (h *Handler) Upcoming(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultUpcomingLimit
	}
	if limit > maxUpcomingLimit {
		limit = maxUpcomingLimit
	}
	list, err := h.store.Upcoming(c.Request.Context(), h.now(), limit)
	if err != nil {
		h.logger.Error("upcoming seminars", zap.Error(err))
		response.Internal(c, "Não foi possível listar os seminários.")
		return
	}
	if list == nil {
		list = []*models.Seminar{}
	}
	h.mark(list...)
	response.OK(c, list)
}

// Show handles GET /seminars/:id, where the segment is the seminar slug. Inactive
// seminars are hidden.
func (h *Handler) Show(c *gin.Context) {
	slug := c.Param("id")
	s, err := h.store.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		h.logger.Error("get seminar", zap.Error(err), zap.String("slug", slug))
		response.Internal(c, "Não foi possível carregar o seminário.")
		return
	}
	if s == nil || !s.Active {
		response.NotFound(c, msgNotFound)
		return
	}
	h.mark(s)
	response.OK(c, s)
}

// AdminShow handles GET /admin/seminars/:id.
func (h *Handler) AdminShow(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}
	s, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get seminar", zap.Error(err), zap.String("seminar_id", id.String()))
		response.Internal(c, "Não foi possível carregar o seminário.")
		return
	}
	if s == nil {
		response.NotFound(c, msgNotFound)
		return
	}
	h.mark(s)
	response.OK(c, s)
}

// Create handles POST /admin/seminars.
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	s, err := h.store.Create(c.Request.Context(), req.input())
	if err != nil {
		h.logger.Error("create seminar", zap.Error(err))
		response.Internal(c, "Não foi possível criar o seminário.")
		return
	}
	h.logger.Info("seminar created", zap.String("seminar_id", s.ID.String()))
	h.mark(s)
	response.Created(c, s)
}

// Update handles PUT /admin/seminars/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}
	var req SaveRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	s, err := h.store.Update(c.Request.Context(), id, req.input())
	if err != nil {
		h.logger.Error("update seminar", zap.Error(err), zap.String("seminar_id", id.String()))
		response.Internal(c, "Não foi possível atualizar o seminário.")
		return
	}
	if s == nil {
		response.NotFound(c, msgNotFound)
		return
	}
	h.mark(s)
	response.OK(c, s)
}

// Delete handles DELETE /admin/seminars/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := ParseID(c)
	if !ok {
		return
	}
	found, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete seminar", zap.Error(err), zap.String("seminar_id", id.String()))
		response.Internal(c, "Não foi possível excluir o seminário.")
		return
	}
	if !found {
		response.NotFound(c, msgNotFound)
		return
	}
	response.NoContent(c)
}

// ParseID reads the :id path parameter, writing a 404 when it is not a uuid.
func ParseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, msgNotFound)
		return uuid.Nil, false
	}
	return id, true
}
