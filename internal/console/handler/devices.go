package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

type DeviceService interface {
	Devices(ctx context.Context, q string) ([]domain.DeviceStatusView, error)
	DeviceDetail(ctx context.Context, deviceID string) (*domain.DeviceDetail, error)
}

type DeviceHandler struct {
	service DeviceService
	logger  *zap.Logger
}

func NewDeviceHandler(s DeviceService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{service: s, logger: logger.Named("device-handler")}
}

// List возвращает парк со статусами, с поиском по имени, ID и производителю.
// GET /api/v1/devices?q=...
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Devices(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Get: карточка устройства.
// GET /api/v1/devices/{id}
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "device id is required", http.StatusBadRequest)
		return
	}

	detail, err := h.service.DeviceDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
