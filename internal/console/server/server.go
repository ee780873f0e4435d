package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/console/handler"
	"github.com/xela07ax/medipredict-console/internal/engine"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Обработчики
	dashHandler   *handler.DashboardHandler // /api/v1/dashboard, /api/v1/insights
	deviceHandler *handler.DeviceHandler    // /api/v1/devices
	reportHandler *handler.ReportHandler    // /api/v1/reports, /api/v1/fleet/history
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	dashH *handler.DashboardHandler,
	deviceH *handler.DeviceHandler,
	reportH *handler.ReportHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("console-api"),
		dashHandler:   dashH,
		deviceHandler: deviceH,
		reportHandler: reportH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(engine.TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Healthcheck для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Dashboard & Insights
		r.Get("/dashboard", s.dashHandler.Get)
		r.Get("/insights", s.dashHandler.GetInsights)

		// Парк устройств
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.deviceHandler.List)
			r.Get("/{id}", s.deviceHandler.Get)
		})

		// Отчеты и история
		r.Get("/reports/summary", s.reportHandler.Summary)
		r.Get("/fleet/history", s.reportHandler.History)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
