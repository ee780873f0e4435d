package fleet

import "github.com/xela07ax/medipredict-console/internal/domain"

// PredictionIndex: прогнозы, сгруппированные по device_id.
// Строится один раз за проход агрегации, внутри группы сохраняется исходный порядок ленты.
type PredictionIndex map[string][]domain.Prediction

// NewPredictionIndex строит индекс за один проход по коллекции.
func NewPredictionIndex(predictions []domain.Prediction) PredictionIndex {
	idx := make(PredictionIndex)
	for _, p := range predictions {
		idx[p.DeviceID] = append(idx[p.DeviceID], p)
	}
	return idx
}

// Latest возвращает последний прогноз устройства.
// При равных метках времени побеждает первый во входном порядке.
func (idx PredictionIndex) Latest(deviceID string) (domain.Prediction, bool) {
	return latest(idx[deviceID])
}

// Resolve вычисляет текущий статус устройства по индексу.
func (idx PredictionIndex) Resolve(deviceID string) domain.HealthStatus {
	p, ok := idx.Latest(deviceID)
	if !ok {
		return domain.StatusNoData
	}
	return p.Status()
}

// Resolve без индекса, линейным фильтром по всей коллекции.
// Для всего парка используйте PredictionIndex, иначе стоимость devices × predictions.
func Resolve(device domain.Device, predictions []domain.Prediction) domain.HealthStatus {
	var (
		best  domain.Prediction
		found bool
	)
	for _, p := range predictions {
		if p.DeviceID != device.DeviceID {
			continue
		}
		// Строго "после": равные метки не вытесняют уже выбранный прогноз
		if !found || p.Timestamp.After(best.Timestamp) {
			best, found = p, true
		}
	}
	if !found {
		return domain.StatusNoData
	}
	return best.Status()
}

func latest(preds []domain.Prediction) (domain.Prediction, bool) {
	if len(preds) == 0 {
		return domain.Prediction{}, false
	}
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Timestamp.After(best.Timestamp) {
			best = p
		}
	}
	return best, true
}
