package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type ReportService interface {
	Summary(ctx context.Context) (*domain.SummaryReport, error)
	History(ctx context.Context, limit int) ([]domain.FleetSnapshot, error)
}

type ReportHandler struct {
	service ReportService
	logger  *zap.Logger
}

func NewReportHandler(s ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{service: s, logger: logger.Named("report-handler")}
}

// Summary: сводный отчет по корзинам.
// GET /api/v1/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// History: последние снимки распределения.
// GET /api/v1/fleet/history?limit=N
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	snaps, err := h.service.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}
