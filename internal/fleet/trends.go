package fleet

import (
	"sort"
	"time"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

const trendLayout = "2006-01"

// Trends группирует прогнозы по календарным месяцам в указанной зоне (nil = UTC).
// Результат отсортирован по возрастанию месяца.
func Trends(predictions []domain.Prediction, loc *time.Location) []domain.TrendPoint {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]*domain.TrendPoint)
	for _, p := range predictions {
		if p.Timestamp.IsZero() {
			continue
		}
		period := p.Timestamp.In(loc).Format(trendLayout)
		point, ok := buckets[period]
		if !ok {
			point = &domain.TrendPoint{Period: period}
			buckets[period] = point
		}

		switch p.Status() {
		case domain.StatusHealthy:
			point.Healthy++
		case domain.StatusAtRisk:
			point.AtRisk++
		case domain.StatusNeedsMaintenance:
			point.NeedsMaintenance++
		default:
			point.Unknown++
		}
	}

	out := make([]domain.TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		out = append(out, *point)
	}
	// YYYY-MM сортируется лексикографически
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}
