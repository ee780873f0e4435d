package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xela07ax/medipredict-console/internal/connectors"
	"github.com/xela07ax/medipredict-console/internal/console/handler"
	"github.com/xela07ax/medipredict-console/internal/console/server"
	"github.com/xela07ax/medipredict-console/internal/console/service"
	"github.com/xela07ax/medipredict-console/internal/engine"
	"github.com/xela07ax/medipredict-console/internal/fleet"
	"github.com/xela07ax/medipredict-console/internal/history"
	"github.com/xela07ax/medipredict-console/internal/infra"
	"github.com/xela07ax/medipredict-console/internal/insight"
	"github.com/xela07ax/medipredict-console/internal/repository/postgres"
)

const serviceName = "medipredict-console"

func main() {
	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg.Logger, serviceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		logger.Info("metrics listener started", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()

	// 3. Первичные источники и сервис объяснений
	var (
		dir       service.Directory
		explainer insight.Explainer
	)
	switch cfg.Upstream.Mode {
	case "demo":
		demo := connectors.NewDemoSource(uint64(time.Now().UnixNano()), 60, time.Now())
		dir, explainer = demo, demo
		logger.Warn("running against the built-in demo fleet")
	default:
		client := buildUpstreamClient(cfg, metrics, logger)
		dir, explainer = client, client
	}

	if cfg.Explainer.Transport == "grpc" {
		conn, err := grpc.NewClient(cfg.Explainer.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			logger.Fatal("failed to create explainer gRPC client", zap.Error(err))
		}
		defer conn.Close()
		explainer = connectors.NewGRPCAdapter(conn, connectors.DefaultExplainMethod)
		logger.Info("explainer over gRPC", zap.String("addr", cfg.Explainer.GRPCAddr))
	}

	// 4. Кэш объяснений в Redis (опционально)
	if cfg.Redis.Addr != "" && cfg.Explainer.CacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(appCtx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// Кэш не критичен: работаем дальше, CachedExplainer сам пропустит ошибки
			logger.Warn("redis unreachable, explanation cache degraded", zap.Error(err))
		}
		pingCancel()

		explainer = insight.NewCachedExplainer(explainer, insight.NewRedisKVStore(rdb), cfg.Explainer.CacheTTL, logger)
	}

	// 5. История распределения в Postgres (опционально)
	var (
		recorder *history.Recorder
		repo     *postgres.SnapshotRepo
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		repo = postgres.NewSnapshotRepo(db)
		defer repo.Close()

		// Проверяем соединение с таймаутом
		dbCtx, dbCancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := repo.Ping(dbCtx); err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		if err := repo.Migrate(dbCtx); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		dbCancel()

		recorder = history.NewRecorder(repo, history.Options{}, metrics, logger)
		recorder.Start()
		defer recorder.Stop()
	}

	// 6. Ядро: оркестратор и сервис парка
	loc, _ := cfg.Dashboard.Location() // validate уже проверил зону
	orch := insight.NewOrchestrator(explainer, insight.Options{
		Concurrency:     cfg.Explainer.Concurrency,
		MaxDevices:      cfg.Explainer.MaxDevices,
		Timeout:         cfg.Explainer.CallTimeout,
		TopContributors: cfg.Dashboard.TopContributors,
	}, metrics, logger)

	svcOpts := service.Options{
		AlertLimit:  cfg.Dashboard.AlertLimit,
		MaxInsights: cfg.Explainer.MaxDevices,
		CacheTTL:    cfg.Dashboard.CacheTTL,
		AlertFormat: fleet.AlertFormat{Layout: cfg.Dashboard.TimeLayout, Location: loc},
	}
	var svc *service.FleetService
	if recorder != nil {
		svc = service.NewFleetService(dir, orch, recorder, repo, metrics, svcOpts, logger)
	} else {
		// Typed nil в интерфейсе сломал бы проверку "история выключена"
		svc = service.NewFleetService(dir, orch, nil, nil, metrics, svcOpts, logger)
	}

	// 7. HTTP Server
	consoleSrv := server.NewConsoleServer(logger,
		handler.NewDashboardHandler(svc, logger),
		handler.NewDeviceHandler(svc, logger),
		handler.NewReportHandler(svc, logger),
	)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr), zap.String("upstream_mode", cfg.Upstream.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 8. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("shutting down console...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("console shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	logger.Info("console stopped")
}

// buildUpstreamClient: REST-клиент MediPredict API. Реестр с прогнозами и сервис
// объяснений защищены раздельными предохранителями: падение ML не должно
// размыкать цепь для списков.
func buildUpstreamClient(cfg *infra.Config, metrics *engine.Metrics, logger *zap.Logger) *connectors.MediPredictClient {
	transport := connectors.NewHTTPTransport(cfg.Upstream.BaseURL, &http.Client{Timeout: cfg.Upstream.RequestTimeout})

	base := engine.ReliabilitySettings{
		RateLimit:     cfg.Upstream.RateLimit,
		RateBurst:     cfg.Upstream.RateBurst,
		Attempts:      cfg.Upstream.RetryAttempts,
		CallTimeout:   cfg.Upstream.RequestTimeout,
		CBMaxRequests: cfg.Upstream.CBMaxRequests,
		CBInterval:    cfg.Upstream.CBInterval,
		CBTimeout:     cfg.Upstream.CBTimeout,
		CBFailures:    cfg.Upstream.CBFailures,
	}

	dirSettings := base
	dirSettings.Name = "directory"
	explainSettings := base
	explainSettings.Name = "explainer"
	// Оркестратор сам ограничивает вызов таймаутом, ретраи не должны его пережить
	explainSettings.Attempts = 1

	return connectors.NewMediPredictClient(
		engine.NewReliabilityWrapper(transport, dirSettings, metrics, logger),
		engine.NewReliabilityWrapper(transport, explainSettings, metrics, logger),
		cfg.Upstream.ListLimit,
	)
}
