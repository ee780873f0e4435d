package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/console/service"
	"github.com/xela07ax/medipredict-console/internal/domain"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	Refresh(ctx context.Context) (*domain.Dashboard, error)
	Insights(ctx context.Context) ([]domain.Insight, error)
	State() domain.ViewState
}

type DashboardHandler struct {
	service DashboardService
	logger  *zap.Logger
}

func NewDashboardHandler(s DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, logger: logger.Named("dashboard-handler")}
}

// Get отдает состояние представления целиком: фазу и последний дашборд.
// GET /api/v1/dashboard?refresh=true
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	load := h.service.Dashboard
	if r.URL.Query().Get("refresh") == "true" {
		load = h.service.Refresh
	}

	if _, err := load(r.Context()); err != nil {
		if st := h.service.State(); errors.Is(err, service.ErrAllSourcesUnavailable) && st.Phase == domain.PhaseErrored {
			// Оба источника недоступны: отдаем Errored вместе с последним удачным дашбордом
			h.logger.Warn("dashboard errored", zap.String("error", st.Err))
			writeJSON(w, http.StatusServiceUnavailable, st)
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.service.State())
}

// GetInsights: только инсайты по устройствам в зоне риска.
// GET /api/v1/insights
func (h *DashboardHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.service.Insights(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}
