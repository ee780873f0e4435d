package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/medipredict-console/internal/connectors"
)

// ReliabilitySettings: параметры защиты одного семейства эндпоинтов.
type ReliabilitySettings struct {
	Name        string
	RateLimit   float64 // запросов в секунду, <= 0: без ограничения
	RateBurst   int
	Attempts    uint
	CallTimeout time.Duration // на одну попытку

	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration // через сколько CB попробует "закрыться"
	CBFailures    uint32        // подряд, после которых размыкаемся
}

// ReliabilityWrapper оборачивает connectors.Fetcher: лимитер, предохранитель, ретраи.
type ReliabilityWrapper struct {
	next     connectors.Fetcher
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	settings ReliabilitySettings
	metrics  *Metrics
	logger   *zap.Logger
}

func NewReliabilityWrapper(next connectors.Fetcher, s ReliabilitySettings, metrics *Metrics, logger *zap.Logger) *ReliabilityWrapper {
	if s.Attempts == 0 {
		s.Attempts = 1
	}
	if s.CBFailures == 0 {
		s.CBFailures = 5
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger = logger.Named("reliability").With(zap.String("breaker", s.Name))

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.CBMaxRequests,
		Interval:    s.CBInterval,
		Timeout:     s.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.CBFailures
		},
		// 404 и 4xx: штатные ответы, предохранитель на них не реагирует
		IsSuccessful: func(err error) bool {
			return !connectors.IsUpstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerGauge(to))
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	limit := rate.Inf
	if s.RateLimit > 0 {
		limit = rate.Limit(s.RateLimit)
	}
	burst := s.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &ReliabilityWrapper{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(limit, burst),
		settings: s,
		metrics:  metrics,
		logger:   logger,
	}
}

func (w *ReliabilityWrapper) Fetch(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := w.fetch(ctx, path)
	w.metrics.UpstreamDuration.WithLabelValues(w.settings.Name, resultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.UpstreamErrors.WithLabelValues(w.settings.Name, errorType(err)).Inc()
	}
	return data, err
}

func (w *ReliabilityWrapper) fetch(ctx context.Context, path string) ([]byte, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var finalData []byte

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.settings.Attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(connectors.IsRetryable),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Апстрим сам сказал, когда приходить (Retry-After)
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				// В остальных случаях: стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx := ctx
			if w.settings.CallTimeout > 0 {
				var cancel context.CancelFunc
				tCtx, cancel = context.WithTimeout(ctx, w.settings.CallTimeout)
				defer cancel()
			}

			var callErr error
			finalData, callErr = w.next.Fetch(tCtx, path)
			return callErr
		})

		return nil, retryErr
	})
	if err != nil {
		return nil, err
	}

	return finalData, nil
}

func breakerGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func errorType(err error) string {
	var tErr *connectors.ThrottleError
	var sErr *connectors.StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, connectors.ErrNotFound):
		return "not_found"
	case errors.As(err, &tErr):
		return "throttled"
	case errors.As(err, &sErr):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "network"
	}
}
