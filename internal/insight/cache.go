package insight

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/infra"
)

// CachedExplainer кэширует успешные объяснения по устройству.
// Сбой кэша никогда не мешает запросу к сервису: деградируем до прямого вызова.
type CachedExplainer struct {
	next   Explainer
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedExplainer(next Explainer, kv KVStore, ttl time.Duration, logger *zap.Logger) *CachedExplainer {
	return &CachedExplainer{
		next:   next,
		kv:     kv,
		ttl:    ttl,
		logger: logger.Named("explain-cache"),
	}
}

func (c *CachedExplainer) Explain(ctx context.Context, deviceID string) (*domain.Explanation, error) {
	key := infra.ExplanationCacheKey(deviceID)

	// 1. Пробуем кэш
	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var exp domain.Explanation
		if jsonErr := json.Unmarshal([]byte(raw), &exp); jsonErr == nil {
			return &exp, nil
		}
		c.logger.Warn("corrupted cache entry ignored", zap.String("key", key))
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	// 2. Идем в сервис
	exp, err := c.next.Explain(ctx, deviceID)
	if err != nil || exp == nil {
		return exp, err
	}

	// 3. Пишем в кэш (best effort). Пустые ответы не кэшируем
	if data, mErr := json.Marshal(exp); mErr == nil {
		if sErr := c.kv.Set(ctx, key, string(data), c.ttl); sErr != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(sErr))
		}
	}
	return exp, nil
}
