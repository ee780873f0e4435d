package fleet

import (
	"sort"
	"time"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// RecentPredictionsLimit: сколько последних прогнозов показывает карточка устройства.
const RecentPredictionsLimit = 3

// Summary строит сводный отчет по распределению.
func Summary(dist domain.FleetDistribution, now time.Time) domain.SummaryReport {
	breakdown := make(map[domain.HealthStatus]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		breakdown[s] = dist.Counts[s]
	}
	return domain.SummaryReport{
		TotalDevices:    dist.Total(),
		StatusBreakdown: breakdown,
		GeneratedAt:     now,
	}
}

// NewestFirst возвращает копию прогнозов, отсортированную по убыванию времени (стабильно).
func NewestFirst(predictions []domain.Prediction) []domain.Prediction {
	out := make([]domain.Prediction, len(predictions))
	copy(out, predictions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Detail собирает карточку устройства. Прогнозы чужих устройств отбрасываются:
// эндпоинт "по устройству" не обязан быть точным.
func Detail(device domain.Device, predictions []domain.Prediction) domain.DeviceDetail {
	own := make([]domain.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.DeviceID == device.DeviceID {
			own = append(own, p)
		}
	}

	sorted := NewestFirst(own)
	recent := sorted
	if len(recent) > RecentPredictionsLimit {
		recent = recent[:RecentPredictionsLimit]
	}

	return domain.DeviceDetail{
		Device:            device,
		Status:            Resolve(device, own),
		Predictions:       sorted,
		RecentPredictions: recent,
	}
}
