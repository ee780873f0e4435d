package fleet

import (
	"strings"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// Search фильтрует список парка по подстроке в имени, device_id или производителе.
// Регистр не важен, пустой запрос возвращает все.
func Search(views []domain.DeviceStatusView, query string) []domain.DeviceStatusView {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return views
	}

	out := make([]domain.DeviceStatusView, 0, len(views))
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.Device.Name), q) ||
			strings.Contains(strings.ToLower(v.Device.DeviceID), q) ||
			strings.Contains(strings.ToLower(v.Device.Manufacturer), q) {
			out = append(out, v)
		}
	}
	return out
}
