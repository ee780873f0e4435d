package history

/*
Recorder: асинхронная запись снимков распределения парка.

- Record никогда не блокирует проход агрегации: снимок кладется в буферизованный
  канал, при переполнении сбрасывается (Load Shedding) с метрикой и логом.
- Воркер копит снимки и пишет их пачкой по таймеру или при достижении BatchSize.
- Stop закрывает вход и ждет, пока воркер вычитает канал и сделает финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/engine"
)

// StorageInterface: куда физически уходят снимки.
type StorageInterface interface {
	WriteBatch(ctx context.Context, snapshots []domain.FleetSnapshot) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

type Recorder struct {
	ch      chan domain.FleetSnapshot
	repo    StorageInterface
	opts    Options
	metrics *engine.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex // Record держит RLock, Stop: Lock перед close(ch)
	closed atomic.Bool
}

func NewRecorder(repo StorageInterface, opts Options, metrics *engine.Metrics, logger *zap.Logger) *Recorder {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = engine.NewMetrics(nil)
	}
	return &Recorder{
		ch:      make(chan domain.FleetSnapshot, opts.BufferSize),
		repo:    repo,
		opts:    opts,
		metrics: metrics,
		logger:  logger.Named("history"),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop запирает вход и ждет, пока воркер все допишет.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed.Swap(true) {
		r.mu.Unlock()
		return
	}
	r.logger.Info("stopping history recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("history recorder stopped gracefully")
}

// Record ставит снимок в очередь. Никогда не блокирует.
func (r *Recorder) Record(s domain.FleetSnapshot) {
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		r.logger.Warn("fleet snapshot dropped: recorder is stopping", zap.String("id", s.ID))
		return
	}

	select {
	case r.ch <- s:
		r.metrics.HistoryBufferFill.Set(float64(len(r.ch)))
	default:
		r.metrics.HistoryDropped.Inc()
		r.logger.Error("history_buffer_overflow",
			zap.String("id", s.ID),
			zap.Int("total_devices", s.TotalDevices))
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]domain.FleetSnapshot, 0, r.opts.BatchSize)
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже может быть закрыт
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
		if err := r.repo.WriteBatch(ctx, batch); err != nil {
			r.logger.Error("history flush failed", zap.Int("snapshots", len(batch)), zap.Error(err))
		}
		cancel()
		batch = batch[:0]
		r.metrics.HistoryBufferFill.Set(float64(len(r.ch)))
	}

	for {
		select {
		case s, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop: остатки уже вычитаны
				flush()
				r.logger.Info("history worker finished")
				return
			}
			batch = append(batch, s)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
