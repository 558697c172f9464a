package presence

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

const qrSize = 512

// SaveLinkRequest is the body for POST /admin/seminars/:id/presence-link.
type SaveLinkRequest struct {
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

// Handler serves presence endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a presence handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func parseLinkID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		response.NotFound(c, MsgLinkNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// fail writes the response for a service error.
func (h *Handler) fail(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ErrLinkNotFound), errors.Is(err, ErrSeminarNotFound):
		response.NotFound(c, Message(err))
	case errors.Is(err, ErrLinkInactive), errors.Is(err, ErrLinkExpired):
		response.Unprocessable(c, Message(err), nil)
	case errors.Is(err, ErrAlreadyPresent):
		response.Conflict(c, Message(err))
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "Não foi possível processar o link de presença.")
	}
}

// Show handles GET /presence/:uuid. The link is returned even when it is no longer valid.
func (h *Handler) Show(c *gin.Context) {
	id, ok := parseLinkID(c)
	if !ok {
		return
	}
	v, err := h.svc.Lookup(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "lookup presence link")
		return
	}
	response.OK(c, v)
}

// Register handles POST /presence/:uuid/register for the signed-in user.
func (h *Handler) Register(c *gin.Context) {
	id, ok := parseLinkID(c)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	sem, err := h.svc.Register(c.Request.Context(), id, userID)
	if err != nil {
		h.fail(c, err, "register presence")
		return
	}
	response.Message(c, http.StatusOK, MsgRegistered, gin.H{"seminar": sem.Summary()})
}

// AdminShow handles GET /admin/seminars/:id/presence-link.
func (h *Handler) AdminShow(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	v, err := h.svc.ForSeminar(c.Request.Context(), seminarID)
	if err != nil {
		h.fail(c, err, "get presence link")
		return
	}
	response.OK(c, v)
}

// AdminSave handles POST /admin/seminars/:id/presence-link.
func (h *Handler) AdminSave(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	var req SaveLinkRequest
	if !validation.BindJSON(c, &req) {
		return
	}
	if !req.ExpiresAt.After(h.svc.now()) {
		response.Unprocessable(c, validation.MessageInvalid, map[string][]string{
			"expires_at": {"A data de expiração deve ser no futuro."},
		})
		return
	}
	adminID, _ := middleware.UserID(c)
	v, err := h.svc.Save(c.Request.Context(), seminarID, req.ExpiresAt, adminID)
	if err != nil {
		h.fail(c, err, "save presence link")
		return
	}
	h.logger.Info("presence link saved", zap.String("seminar_id", seminarID.String()), zap.String("uuid", v.UUID.String()))
	response.OK(c, v)
}

// Toggle handles PATCH /admin/presence-links/:uuid/toggle.
func (h *Handler) Toggle(c *gin.Context) {
	id, ok := parseLinkID(c)
	if !ok {
		return
	}
	v, err := h.svc.Toggle(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "toggle presence link")
		return
	}
	response.OK(c, v)
}

// QRCode handles GET /admin/presence-links/:uuid/qrcode, returning a PNG of the public URL.
func (h *Handler) QRCode(c *gin.Context) {
	id, ok := parseLinkID(c)
	if !ok {
		return
	}
	v, err := h.svc.Lookup(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "lookup presence link")
		return
	}
	png, err := qrcode.Encode(v.URL, qrcode.Medium, qrSize)
	if err != nil {
		h.fail(c, err, "encode qr code")
		return
	}
	c.Header("Content-Disposition", `inline; filename="presenca-`+v.Seminar.Slug+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}
