package domain

type HealthStatus string

const (
	StatusHealthy          HealthStatus = "healthy"
	StatusAtRisk           HealthStatus = "at_risk"
	StatusNeedsMaintenance HealthStatus = "needs_maintenance"
	StatusUnknown          HealthStatus = "unknown" // Лейбл вне известного набора
	StatusNoData           HealthStatus = "no_data" // У устройства нет ни одного прогноза
)

// AllStatuses фиксирует порядок корзин для распределений и отчетов.
var AllStatuses = []HealthStatus{
	StatusHealthy,
	StatusAtRisk,
	StatusNeedsMaintenance,
	StatusUnknown,
	StatusNoData,
}

// ParseStatus никогда не возвращает ошибку, все незнакомое становится Unknown.
// NoData из лейбла не получить, он только вычисляется.
func ParseStatus(label string) HealthStatus {
	switch HealthStatus(label) {
	case StatusHealthy, StatusAtRisk, StatusNeedsMaintenance:
		return HealthStatus(label)
	default:
		return StatusUnknown
	}
}

// Label: человекочитаемое название корзины.
func (s HealthStatus) Label() string {
	switch s {
	case StatusHealthy:
		return "Healthy"
	case StatusAtRisk:
		return "At Risk"
	case StatusNeedsMaintenance:
		return "Needs Maintenance"
	case StatusNoData:
		return "No Data"
	default:
		return "Unknown"
	}
}

// IsRisk: устройства этих корзин идут на обогащение инсайтами.
func (s HealthStatus) IsRisk() bool {
	return s == StatusAtRisk || s == StatusNeedsMaintenance
}
