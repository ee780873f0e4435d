package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/console/service"
	"github.com/xela07ax/medipredict-console/internal/engine"
)

// statusClientClosedRequest: клиент ушел до ответа (nginx 499).
const statusClientClosedRequest = 499

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError разделяет типы ошибок: 404, 503, 499, 504, 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAllSourcesUnavailable), errors.Is(err, service.ErrHistoryDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	log := engine.LoggerFrom(r.Context(), logger)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Warn("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), TraceID: engine.TraceID(r.Context())})
}
