package certificates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/middleware"
	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/pkg/response"
)

const (
	msgNotFound   = "Certificado não encontrado."
	msgNotPresent = "O certificado só pode ser emitido após a confirmação de presença."
)

// Handler serves certificate endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a certificates handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden):
		response.NotFound(c, msgNotFound)
	case errors.Is(err, ErrNotPresent):
		response.Unprocessable(c, msgNotPresent, nil)
	default:
		h.logger.Error(op, zap.Error(err))
		response.Internal(c, "Não foi possível processar o certificado.")
	}
}

// Issue handles POST /me/registrations/:id/certificate.
func (h *Handler) Issue(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "Inscrição não encontrada.")
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	cert, err := h.svc.Issue(c.Request.Context(), regID, userID)
	if err != nil {
		h.fail(c, err, "issue certificate")
		return
	}
	response.OK(c, cert)
}

// Mine handles GET /me/certificates.
func (h *Handler) Mine(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "Não autenticado.")
		return
	}
	list, err := h.svc.Mine(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "list certificates")
		return
	}
	response.OK(c, list)
}

// Validate handles GET /certificates/:code.
func (h *Handler) Validate(c *gin.Context) {
	cert, err := h.svc.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err, "validate certificate")
		return
	}
	response.OK(c, cert)
}

// Download handles GET /certificates/:code/pdf.
func (h *Handler) Download(c *gin.Context) {
	d, err := h.svc.Download(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err, "download certificate")
		return
	}
	if d.RedirectURL != "" {
		c.Redirect(http.StatusFound, d.RedirectURL)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", d.PDF)
}

// IssueBatch handles POST /admin/seminars/:id/certificates.
func (h *Handler) IssueBatch(c *gin.Context) {
	seminarID, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	n, err := h.svc.IssueBatch(c.Request.Context(), seminarID)
	if err != nil {
		h.logger.Error("batch issue certificates", zap.Error(err), zap.Int("issued", n))
		response.Internal(c, "Não foi possível emitir todos os certificados.")
		return
	}
	response.Message(c, http.StatusOK, "Certificados emitidos.", gin.H{"issued": n})
}
