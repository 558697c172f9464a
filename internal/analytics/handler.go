package analytics

import (
	"context"
	"math"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-seminarios/backend/internal/seminars"
	"github.com/campus-seminarios/backend/pkg/response"
)

// Store loads seminar aggregates.
type Store interface {
	SeminarCounts(ctx context.Context, seminarID uuid.UUID) (*Counts, error)
}

// Handler handles GET /admin/seminars/:id/analytics.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// SummaryResponse is the JSON shape of a seminar summary.
type SummaryResponse struct {
	TotalRegistrations int      `json:"total_registrations"`
	TotalPresent       int      `json:"total_present"`
	TotalAbsent        int      `json:"total_absent"`
	AttendanceRate     *float64 `json:"attendance_rate"`
	CertificatesIssued int      `json:"certificates_issued"`
	RatingsCount       int      `json:"ratings_count"`
	AverageScore       *float64 `json:"average_score"`
	EmailsSent         int      `json:"emails_sent"`
	EmailsFailed       int      `json:"emails_failed"`
}

// Summarize derives the rates of c. Rates are nil when their denominator is zero.
func Summarize(c Counts) SummaryResponse {
	out := SummaryResponse{
		TotalRegistrations: c.Registrations,
		TotalPresent:       c.Present,
		TotalAbsent:        c.Registrations - c.Present,
		CertificatesIssued: c.Certificates,
		RatingsCount:       c.Ratings,
		EmailsSent:         c.EmailsSent,
		EmailsFailed:       c.EmailsFailed,
	}
	if out.TotalAbsent < 0 {
		out.TotalAbsent = 0
	}
	if c.Registrations > 0 {
		rate := round2(float64(c.Present) / float64(c.Registrations))
		out.AttendanceRate = &rate
	}
	if c.Ratings > 0 {
		avg := round2(float64(c.ScoreSum) / float64(c.Ratings))
		out.AverageScore = &avg
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// GetBySeminar handles GET /admin/seminars/:id/analytics.
func (h *Handler) GetBySeminar(c *gin.Context) {
	id, ok := seminars.ParseID(c)
	if !ok {
		return
	}
	counts, err := h.store.SeminarCounts(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("seminar analytics", zap.Error(err), zap.String("seminar_id", id.String()))
		response.Internal(c, "Não foi possível carregar as estatísticas.")
		return
	}
	if counts == nil {
		response.NotFound(c, "Seminário não encontrado.")
		return
	}
	response.OK(c, Summarize(*counts))
}
