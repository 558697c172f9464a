// Package bugreports accepts bug reports from the site and mails them to the support inbox.
package bugreports

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/mail"
	"github.com/campus-seminarios/backend/internal/metrics"
	"github.com/campus-seminarios/backend/internal/models"
	"github.com/campus-seminarios/backend/internal/notifications"
	"github.com/campus-seminarios/backend/internal/validation"
	"github.com/campus-seminarios/backend/pkg/response"
)

const (
	MaxFiles    = 3
	MaxFileSize = 1 << 20
	// maxBody bounds the whole multipart body so oversized files still reach validation.
	maxBody = 16 << 20
)

var allowedTypes = []string{"image/jpeg", "image/png", "image/gif", "application/pdf"}

// Request is the multipart form of POST /bug-report.
type Request struct {
	Name    string `form:"name" binding:"required,notblank,max=255"`
	Email   string `form:"email" binding:"required,email,max=255"`
	Subject string `form:"subject" binding:"required,notblank,max=255"`
	Message string `form:"message" binding:"required,notblank,max=5000"`
}

// Builder renders the bug report mail.
type Builder interface {
	BugReport(r notifications.BugReport) (*mail.Message, error)
}

// Handler accepts bug reports.
type Handler struct {
	builder Builder
	sender  mail.Sender
	logger  *zap.Logger
}

// NewHandler creates a bug report handler.
func NewHandler(builder Builder, sender mail.Sender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{builder: builder, sender: sender, logger: logger}
}

// Attachments reads and checks uploaded files. It returns the accepted files and one
// message per violation: too many files, a file over the size limit, or a file whose
// content is not an allowed type.
func Attachments(files []*multipart.FileHeader) ([]mail.Attachment, []string, error) {
	var problems []string
	if len(files) > MaxFiles {
		problems = append(problems, fmt.Sprintf("Você pode enviar no máximo %d arquivos", MaxFiles))
	}
	var out []mail.Attachment
	for _, fh := range files {
		if fh.Size > MaxFileSize {
			problems = append(problems, fmt.Sprintf("O arquivo %s excede o limite de 1MB", fh.Filename))
			continue
		}
		data, err := readAll(fh)
		if err != nil {
			return nil, nil, err
		}
		mt := mimetype.Detect(data)
		if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
			problems = append(problems, fmt.Sprintf("O arquivo %s possui um tipo não permitido", fh.Filename))
			continue
		}
		out = append(out, mail.Attachment{Filename: fh.Filename, ContentType: mt.String(), Data: data})
	}
	return out, problems, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}

// Submit handles POST /bug-report. The report is sent before responding.
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	var req Request
	if !validation.Bind(c, &req) {
		return
	}
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = append(files, form.File["files[]"]...)
		files = append(files, form.File["files"]...)
	}
	attachments, problems, err := Attachments(files)
	if err != nil {
		h.logger.Error("read bug report files", zap.Error(err))
		response.Internal(c, "Não foi possível ler os arquivos enviados.")
		return
	}
	if len(problems) > 0 {
		response.Unprocessable(c, strings.Join(problems, ". "), map[string][]string{"files": problems})
		return
	}

	msg, err := h.builder.BugReport(notifications.BugReport{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
		Files:   attachments,
	})
	if err != nil {
		h.logger.Error("build bug report", zap.Error(err))
		response.Internal(c, "Não foi possível enviar o relatório.")
		return
	}
	if err := h.send(c.Request.Context(), msg); err != nil {
		h.logger.Error("send bug report", zap.Error(err))
		response.Internal(c, "Não foi possível enviar o relatório. Tente novamente mais tarde.")
		return
	}
	response.Message(c, http.StatusOK, "Relatório enviado com sucesso. Obrigado!", nil)
}

func (h *Handler) send(ctx context.Context, msg *mail.Message) error {
	if err := h.sender.Send(ctx, msg); err != nil {
		metrics.EmailsSent.WithLabelValues(models.EmailTypeBugReport, models.EmailLogStatusFailed).Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues(models.EmailTypeBugReport, models.EmailLogStatusSent).Inc()
	return nil
}
