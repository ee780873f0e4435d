package insight

/*
Оркестратор обогащения: для устройств в зоне риска параллельно запрашивает
объяснения и собирает список инсайтов.

- Параллелизм ограничен errgroup.SetLimit: вызовы сверх лимита ждут своей
  очереди, а не отбрасываются.
- Слот семафора освобождает только завершившийся Explain. Вызов, брошенный по
  таймауту, держит слот, поэтому зависший сервис объяснений не получает больше
  Concurrency одновременных запросов даже через несколько проходов.
- Отказ, таймаут или пустой ответ по одному устройству просто убирают его из
  результата. Остальные вызовы не отменяются, ошибка наружу не выходит.
- Порядок результата совпадает с порядком входных идентификаторов, порядок
  завершения горутин на него не влияет.
*/

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// Explainer: сервис объяснений. (nil, nil) означает "объяснения нет".
type Explainer interface {
	Explain(ctx context.Context, deviceID string) (*domain.Explanation, error)
}

// ExplainFunc позволяет передать обычную функцию как Explainer.
type ExplainFunc func(ctx context.Context, deviceID string) (*domain.Explanation, error)

func (f ExplainFunc) Explain(ctx context.Context, deviceID string) (*domain.Explanation, error) {
	return f(ctx, deviceID)
}

// Recorder принимает исходы вызовов для метрик.
type Recorder interface {
	EnrichmentOutcome(outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EnrichmentOutcome(string, time.Duration) {}

const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeAbsent    = "absent"
	OutcomeCancelled = "cancelled"
)

const (
	DefaultConcurrency = 5
	DefaultMaxDevices  = 5
)

type Options struct {
	Concurrency     int           // Одновременных вызовов
	MaxDevices      int           // Сколько устройств вообще обогащаем за проход
	Timeout         time.Duration // На один вызов, 0: без таймаута
	TopContributors int
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxDevices <= 0 {
		o.MaxDevices = DefaultMaxDevices
	}
	if o.TopContributors <= 0 {
		o.TopContributors = DefaultTopContributors
	}
	return o
}

type Orchestrator struct {
	explainer Explainer
	opts      Options
	inFlight  *semaphore.Weighted // Реально выполняющиеся Explain, общий на все проходы
	recorder  Recorder
	logger    *zap.Logger
}

func NewOrchestrator(explainer Explainer, opts Options, recorder Recorder, logger *zap.Logger) *Orchestrator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	opts = opts.withDefaults()
	return &Orchestrator{
		explainer: explainer,
		opts:      opts,
		inFlight:  semaphore.NewWeighted(int64(opts.Concurrency)),
		recorder:  recorder,
		logger:    logger.Named("insight-orchestrator"),
	}
}

// Enrich запрашивает объяснения для deviceIDs и возвращает инсайты в том же порядке.
// names: имена из реестра устройств. Никогда не возвращает ошибку.
// Если ctx отменен во время работы, незавершенные результаты не публикуются.
func (o *Orchestrator) Enrich(ctx context.Context, deviceIDs []string, names map[string]string) []domain.Insight {
	ids := o.prepare(deviceIDs)
	if len(ids) == 0 {
		return []domain.Insight{}
	}

	results := make([]*domain.Insight, len(ids))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = o.enrichOne(ctx, id, names)
			return nil // Ошибки отдельных устройств не валят группу
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		o.logger.Debug("enrichment abandoned", zap.Error(ctx.Err()))
		return []domain.Insight{}
	}

	out := make([]domain.Insight, 0, len(ids))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// prepare убирает пустые и повторные идентификаторы и обрезает список.
func (o *Orchestrator) prepare(deviceIDs []string) []string {
	seen := make(map[string]struct{}, len(deviceIDs))
	ids := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == o.opts.MaxDevices {
			break
		}
	}
	return ids
}

type explainResult struct {
	exp *domain.Explanation
	err error
}

func (o *Orchestrator) enrichOne(ctx context.Context, deviceID string, names map[string]string) *domain.Insight {
	if ctx.Err() != nil {
		o.recorder.EnrichmentOutcome(OutcomeCancelled, 0)
		return nil
	}

	callCtx := ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res := o.call(callCtx, deviceID)
	elapsed := time.Since(start)

	switch {
	case res.err != nil:
		outcome := OutcomeFailed
		if ctx.Err() != nil {
			outcome = OutcomeCancelled
		} else if callCtx.Err() != nil {
			outcome = OutcomeTimeout
		}
		o.recorder.EnrichmentOutcome(outcome, elapsed)
		o.logger.Warn("explanation unavailable, device skipped",
			zap.String("device_id", deviceID),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(res.err))
		return nil
	case res.exp == nil:
		o.recorder.EnrichmentOutcome(OutcomeAbsent, elapsed)
		o.logger.Debug("no explanation for device", zap.String("device_id", deviceID))
		return nil
	}

	o.recorder.EnrichmentOutcome(OutcomeSuccess, elapsed)
	return o.toInsight(deviceID, names, res.exp)
}

// call выполняет Explain в отдельной горутине: таймаут срабатывает, даже если
// Explainer игнорирует контекст. Слот отдается только после возврата Explain.
func (o *Orchestrator) call(callCtx context.Context, deviceID string) explainResult {
	// Слоты могут быть заняты брошенными вызовами прошлых проходов
	if err := o.inFlight.Acquire(callCtx, 1); err != nil {
		return explainResult{err: err}
	}

	ch := make(chan explainResult, 1)
	go func() {
		defer o.inFlight.Release(1)
		defer func() {
			if r := recover(); r != nil {
				ch <- explainResult{err: fmt.Errorf("explainer panic: %v", r)}
			}
		}()
		exp, err := o.explainer.Explain(callCtx, deviceID)
		ch <- explainResult{exp: exp, err: err}
	}()

	select {
	case res := <-ch:
		return res
	case <-callCtx.Done():
		return explainResult{err: callCtx.Err()}
	}
}

func (o *Orchestrator) toInsight(deviceID string, names map[string]string, exp *domain.Explanation) *domain.Insight {
	name, ok := names[deviceID]
	if !ok || name == "" {
		name = domain.UnknownDeviceName
	}

	recs := exp.Recommendations
	if recs == nil {
		recs = []string{}
	}

	return &domain.Insight{
		DeviceID:        deviceID,
		DeviceName:      name,
		PredictedStatus: exp.PredictedStatus,
		Confidence:      exp.Confidence,
		TopFactors:      TopContributors(exp.Contributions.Items, o.opts.TopContributors),
		Explanation:     exp.Explanation,
		Recommendations: recs,
	}
}
