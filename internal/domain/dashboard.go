package domain

import "time"

// DeviceStatusView связывает устройство с его последним прогнозом.
// Пересобирается на каждом проходе агрегации и нигде не хранится.
type DeviceStatusView struct {
	Device Device       `json:"device"`
	Status HealthStatus `json:"status"`
	Latest *Prediction  `json:"latest_prediction,omitempty"` // nil для NoData
}

// AlertEntry: строка ленты последних алертов.
type AlertEntry struct {
	DeviceID    string    `json:"device_id"`
	DeviceName  string    `json:"device_name"`
	Status      string    `json:"status"` // Сырой лейбл прогноза без маппинга
	ObservedAt  time.Time `json:"observed_at"`
	LastUpdated string    `json:"last_updated"` // Отформатированное время для UI
}

// FleetDistribution: результат агрегации по корзинам.
// Members хранит идентификаторы в порядке входного списка устройств.
type FleetDistribution struct {
	Counts  map[HealthStatus]int      `json:"counts"`
	Members map[HealthStatus][]string `json:"members"`
}

// Total: сумма по всем корзинам, всегда равна числу устройств.
func (d FleetDistribution) Total() int {
	total := 0
	for _, c := range d.Counts {
		total += c
	}
	return total
}

// DistributionSlice: сектор круговой диаграммы.
type DistributionSlice struct {
	Status HealthStatus `json:"status"`
	Label  string       `json:"name"`
	Value  int          `json:"value"`
}

// TrendPoint: число прогнозов каждой категории за календарный месяц.
type TrendPoint struct {
	Period           string `json:"date"` // YYYY-MM
	Healthy          int    `json:"healthy"`
	AtRisk           int    `json:"atRisk"`
	NeedsMaintenance int    `json:"needsMaintenance"`
	Unknown          int    `json:"unknown"`
}

type Counters struct {
	TotalDevices            int `json:"total_devices"`
	DevicesAtRisk           int `json:"devices_at_risk"`
	DevicesNeedsMaintenance int `json:"devices_needs_maintenance"`
}

type SourceState string

const (
	SourceOK          SourceState = "ok"
	SourceUnavailable SourceState = "unavailable"
)

// SourceHealth показывает, какие первичные источники отдали данные в этом проходе.
type SourceHealth struct {
	Devices     SourceState `json:"devices"`
	Predictions SourceState `json:"predictions"`
}

// Degraded: хотя бы один источник деградировал до пустой коллекции.
func (s SourceHealth) Degraded() bool {
	return s.Devices != SourceOK || s.Predictions != SourceOK
}

// Dashboard: единый ответ главной страницы консоли.
type Dashboard struct {
	Counters     Counters            `json:"counters"`     // Верхние плитки
	Distribution []DistributionSlice `json:"distribution"` // Круговая диаграмма
	Fleet        FleetDistribution   `json:"fleet"`
	RecentAlerts []AlertEntry        `json:"recent_alerts"`
	Trends       []TrendPoint        `json:"trends"`
	Insights     []Insight           `json:"insights"`
	Sources      SourceHealth        `json:"sources"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// SummaryReport: сводный отчет по состоянию парка.
type SummaryReport struct {
	TotalDevices    int                  `json:"total_devices"`
	StatusBreakdown map[HealthStatus]int `json:"status_breakdown"`
	GeneratedAt     time.Time            `json:"report_generated"`
}

// DeviceDetail: карточка одного устройства.
type DeviceDetail struct {
	Device            Device       `json:"device"`
	Status            HealthStatus `json:"status"`
	Predictions       []Prediction `json:"predictions"`        // Новые сверху
	RecentPredictions []Prediction `json:"recent_predictions"` // Первые три из Predictions
	Insight           *Insight     `json:"insight,omitempty"`
}
