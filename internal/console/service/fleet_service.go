package service

/*
FleetService: единственная точка, где собирается дашборд парка.

Проход агрегации:
 1. Реестр устройств и лента прогнозов грузятся параллельно и независимо.
    Отказ одного источника деградирует его до пустой коллекции.
 2. Ошибка возвращается только когда упали оба источника.
 3. Из двух снимков один раз строится индекс прогнозов, затем распределение,
    лента алертов, тренды и обогащение инсайтами для устройств в зоне риска.
 4. Готовый снимок живет CacheTTL, параллельные запросы на пересборку
    схлопываются через singleflight. Отмена запроса не прерывает общий проход
    и не переводит состояние в Errored.
*/

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/engine"
	"github.com/xela07ax/medipredict-console/internal/fleet"
)

var (
	// ErrAllSourcesUnavailable: не ответил ни реестр устройств, ни лента прогнозов.
	ErrAllSourcesUnavailable = errors.New("fleet: all primary data sources unavailable")
	ErrDeviceNotFound        = errors.New("fleet: device not found")
	ErrHistoryDisabled       = errors.New("fleet: history store is not configured")
)

const (
	sourceDevices     = "devices"
	sourcePredictions = "predictions"
)

// Directory: первичные источники данных (MediPredict API или демо).
type Directory interface {
	ListDevices(ctx context.Context) ([]domain.Device, error)
	ListPredictions(ctx context.Context) ([]domain.Prediction, error)
	ListPredictionsForDevice(ctx context.Context, deviceID string) ([]domain.Prediction, error)
}

// Enricher: оркестратор инсайтов.
type Enricher interface {
	Enrich(ctx context.Context, deviceIDs []string, names map[string]string) []domain.Insight
}

// HistoryRecorder принимает снимки распределения, не блокируя проход.
type HistoryRecorder interface {
	Record(snapshot domain.FleetSnapshot)
}

// HistoryReader читает последние снимки.
type HistoryReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.FleetSnapshot, error)
}

type Options struct {
	AlertLimit  int
	MaxInsights int           // Сколько устройств из зоны риска обогащаем
	CacheTTL    time.Duration // 0: пересобирать на каждый запрос
	AlertFormat fleet.AlertFormat
}

// snapshot: результат одного прохода агрегации.
type snapshot struct {
	dashboard *domain.Dashboard
	views     []domain.DeviceStatusView
	names     map[string]string
	builtAt   time.Time
}

type FleetService struct {
	dir      Directory
	enricher Enricher
	recorder HistoryRecorder
	history  HistoryReader
	metrics  *engine.Metrics
	opts     Options
	logger   *zap.Logger
	now      func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	state domain.ViewState
	last  *snapshot
}

// NewFleetService. recorder и history могут быть nil: история тогда выключена.
func NewFleetService(
	dir Directory,
	enricher Enricher,
	recorder HistoryRecorder,
	history HistoryReader,
	metrics *engine.Metrics,
	opts Options,
	logger *zap.Logger,
) *FleetService {
	if metrics == nil {
		metrics = engine.NewMetrics(nil)
	}
	if opts.AlertLimit <= 0 {
		opts.AlertLimit = fleet.DefaultAlertLimit
	}
	return &FleetService{
		dir:      dir,
		enricher: enricher,
		recorder: recorder,
		history:  history,
		metrics:  metrics,
		opts:     opts,
		logger:   logger.Named("fleet-service"),
		now:      time.Now,
		state:    domain.NewViewState(),
	}
}

// State: текущее состояние представления.
func (s *FleetService) State() domain.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dashboard возвращает актуальный дашборд, при необходимости пересобирая его.
func (s *FleetService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.dashboard, nil
}

// Refresh принудительно пересобирает дашборд, игнорируя кэш.
func (s *FleetService) Refresh(ctx context.Context) (*domain.Dashboard, error) {
	snap, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return snap.dashboard, nil
}

// Devices: список устройств со статусами, q фильтрует по имени, ID и производителю.
func (s *FleetService) Devices(ctx context.Context, q string) ([]domain.DeviceStatusView, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return fleet.Search(snap.views, q), nil
}

// Insights: только инсайты последнего прохода.
func (s *FleetService) Insights(ctx context.Context) ([]domain.Insight, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.dashboard.Insights, nil
}

// Summary: сводный отчет по всем корзинам.
func (s *FleetService) Summary(ctx context.Context) (*domain.SummaryReport, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	report := fleet.Summary(snap.dashboard.Fleet, s.now())
	return &report, nil
}

// DeviceDetail: карточка устройства. Прогнозы берутся отдельным запросом
// по устройству; его отказ дает пустой список, а не ошибку.
func (s *FleetService) DeviceDetail(ctx context.Context, deviceID string) (*domain.DeviceDetail, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var device *domain.Device
	for i := range snap.views {
		if snap.views[i].Device.DeviceID == deviceID {
			device = &snap.views[i].Device
			break
		}
	}
	if device == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	preds, err := s.dir.ListPredictionsForDevice(ctx, deviceID)
	if err != nil {
		s.logger.Warn("device predictions unavailable, degrading to empty",
			zap.String("device_id", deviceID), zap.Error(err))
		preds = nil
	}

	detail := fleet.Detail(*device, preds)
	if detail.Status.IsRisk() {
		detail.Insight = s.insightFor(ctx, snap, deviceID)
	}
	return &detail, nil
}

// History: последние снимки распределения парка, новые первыми.
func (s *FleetService) History(ctx context.Context, limit int) ([]domain.FleetSnapshot, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListRecent(ctx, limit)
}

func (s *FleetService) insightFor(ctx context.Context, snap *snapshot, deviceID string) *domain.Insight {
	for i := range snap.dashboard.Insights {
		if snap.dashboard.Insights[i].DeviceID == deviceID {
			in := snap.dashboard.Insights[i]
			return &in
		}
	}
	// Устройство за пределами MaxInsights: обогащаем точечно
	got := s.enricher.Enrich(ctx, []string{deviceID}, snap.names)
	if len(got) == 0 {
		return nil
	}
	return &got[0]
}

func (s *FleetService) snapshot(ctx context.Context) (*snapshot, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last != nil && s.opts.CacheTTL > 0 && s.now().Sub(last.builtAt) < s.opts.CacheTTL {
		return last, nil
	}
	return s.refresh(ctx)
}

// refresh: общий проход для всех ждущих. Проход не привязан к отмене
// конкретного запроса: ушедший клиент просто перестает ждать, остальные
// получают результат, а Ready-снимок кэшируется как обычно.
func (s *FleetService) refresh(ctx context.Context) (*snapshot, error) {
	passCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		return s.build(passCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("refresh collapsed into in-flight pass")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	case <-ctx.Done():
		engine.LoggerFrom(ctx, s.logger).Debug("caller left before refresh finished", zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

// build: один проход агрегации с переходами состояния Loading -> Ready | Errored.
func (s *FleetService) build(ctx context.Context) (*snapshot, error) {
	start := s.now()
	logger := engine.LoggerFrom(ctx, s.logger)

	if err := s.transition(func(st domain.ViewState) (domain.ViewState, error) {
		return st.Begin(start)
	}); err != nil {
		return nil, err
	}

	devices, preds, sources := s.fetchSources(ctx, logger)

	if sources.Devices == domain.SourceUnavailable && sources.Predictions == domain.SourceUnavailable {
		s.fail(ErrAllSourcesUnavailable)
		return nil, ErrAllSourcesUnavailable
	}

	idx := fleet.NewPredictionIndex(preds)
	dist, views := fleet.AggregateViews(devices, idx)

	names := make(map[string]string, len(devices))
	for _, d := range devices {
		if _, seen := names[d.DeviceID]; !seen {
			names[d.DeviceID] = d.DisplayName()
		}
	}

	insights := s.enricher.Enrich(ctx, fleet.RiskMembers(dist, s.opts.MaxInsights), names)

	now := s.now()
	dash := &domain.Dashboard{
		Counters:     fleet.CountersOf(dist),
		Distribution: fleet.Distribution(dist),
		Fleet:        dist,
		RecentAlerts: fleet.BuildAlerts(devices, preds, s.opts.AlertLimit, s.opts.AlertFormat),
		Trends:       fleet.Trends(preds, s.opts.AlertFormat.Location),
		Insights:     insights,
		Sources:      sources,
		GeneratedAt:  now,
	}

	snap := &snapshot{dashboard: dash, views: views, names: names, builtAt: now}

	s.mu.Lock()
	next, err := s.state.Succeed(dash, now)
	if err == nil {
		s.state = next
		s.last = snap
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.metrics.Refreshes.WithLabelValues(string(domain.PhaseReady)).Inc()
	s.metrics.RefreshDuration.Observe(now.Sub(start).Seconds())

	if s.recorder != nil {
		s.recorder.Record(domain.FleetSnapshot{
			ID:           uuid.NewString(),
			TakenAt:      now,
			TotalDevices: dist.Total(),
			Counts:       dist.Counts,
			Degraded:     sources.Degraded(),
		})
	}

	logger.Info("dashboard refreshed",
		zap.Int("devices", len(devices)),
		zap.Int("predictions", len(preds)),
		zap.Int("insights", len(insights)),
		zap.Bool("degraded", sources.Degraded()),
		zap.Duration("took", now.Sub(start)))

	return snap, nil
}

// fetchSources грузит оба источника параллельно. Без errgroup: отказ одного
// не должен отменять второй.
func (s *FleetService) fetchSources(ctx context.Context, logger *zap.Logger) ([]domain.Device, []domain.Prediction, domain.SourceHealth) {
	var (
		wg         sync.WaitGroup
		devices    []domain.Device
		preds      []domain.Prediction
		devErr     error
		predErr    error
		sourceInfo = domain.SourceHealth{Devices: domain.SourceOK, Predictions: domain.SourceOK}
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		devices, devErr = s.dir.ListDevices(ctx)
	}()
	go func() {
		defer wg.Done()
		preds, predErr = s.dir.ListPredictions(ctx)
	}()
	wg.Wait()

	if devErr != nil {
		logger.Warn("device directory unavailable, degrading to empty", zap.Error(devErr))
		devices = []domain.Device{}
		sourceInfo.Devices = domain.SourceUnavailable
	}
	if predErr != nil {
		logger.Warn("prediction feed unavailable, degrading to empty", zap.Error(predErr))
		preds = []domain.Prediction{}
		sourceInfo.Predictions = domain.SourceUnavailable
	}
	s.metrics.SourceFetched(sourceDevices, devErr == nil)
	s.metrics.SourceFetched(sourcePredictions, predErr == nil)

	return devices, preds, sourceInfo
}

func (s *FleetService) transition(fn func(domain.ViewState) (domain.ViewState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *FleetService) fail(cause error) {
	now := s.now()
	if err := s.transition(func(st domain.ViewState) (domain.ViewState, error) {
		return st.Fail(cause, now)
	}); err != nil {
		s.logger.Error("view state transition failed", zap.Error(err))
	}
	s.metrics.Refreshes.WithLabelValues(string(domain.PhaseErrored)).Inc()
	s.logger.Error("dashboard refresh failed", zap.Error(cause))
}
