package fleet

import (
	"sort"
	"time"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

const (
	DefaultAlertLimit = 5
	DefaultTimeLayout = "2006-01-02 15:04:05"
)

// AlertFormat управляет отображением времени в ленте.
type AlertFormat struct {
	Layout   string
	Location *time.Location
}

func (f AlertFormat) format(t time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

// BuildAlerts собирает ленту последних прогнозов: новые сверху, не длиннее limit.
// Сортировка стабильная: прогнозы с одинаковым временем сохраняют порядок ленты.
// Входной срез не изменяется.
func BuildAlerts(devices []domain.Device, predictions []domain.Prediction, limit int, f AlertFormat) []domain.AlertEntry {
	if limit <= 0 {
		limit = DefaultAlertLimit
	}

	sorted := make([]domain.Prediction, len(predictions))
	copy(sorted, predictions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	names := make(map[string]string, len(devices))
	for _, d := range devices {
		if _, dup := names[d.DeviceID]; !dup {
			names[d.DeviceID] = d.DisplayName()
		}
	}

	alerts := make([]domain.AlertEntry, 0, len(sorted))
	for _, p := range sorted {
		name, ok := names[p.DeviceID]
		if !ok {
			name = domain.UnknownDeviceName
		}
		alerts = append(alerts, domain.AlertEntry{
			DeviceID:    p.DeviceID,
			DeviceName:  name,
			Status:      p.PredictedStatus,
			ObservedAt:  p.Timestamp,
			LastUpdated: f.format(p.Timestamp),
		})
	}
	return alerts
}
