package fleet

import "github.com/xela07ax/medipredict-console/internal/domain"

// Aggregate раскладывает устройства по корзинам статусов.
// Каждое устройство попадает ровно в одну корзину, сумма Counts равна len(devices).
func Aggregate(devices []domain.Device, predictions []domain.Prediction) domain.FleetDistribution {
	dist, _ := AggregateViews(devices, NewPredictionIndex(predictions))
	return dist
}

// AggregateViews: то же по готовому индексу, дополнительно отдает представления
// устройств для списка парка.
func AggregateViews(devices []domain.Device, idx PredictionIndex) (domain.FleetDistribution, []domain.DeviceStatusView) {
	dist := domain.FleetDistribution{
		Counts:  make(map[domain.HealthStatus]int, len(domain.AllStatuses)),
		Members: make(map[domain.HealthStatus][]string, len(domain.AllStatuses)),
	}
	// Все корзины присутствуют, даже пустые. NoData:0 тоже ответ
	for _, s := range domain.AllStatuses {
		dist.Counts[s] = 0
		dist.Members[s] = []string{}
	}

	views := make([]domain.DeviceStatusView, 0, len(devices))
	for _, d := range devices {
		view := domain.DeviceStatusView{Device: d, Status: domain.StatusNoData}
		if p, ok := idx.Latest(d.DeviceID); ok {
			view.Status = p.Status()
			view.Latest = &p
		}

		dist.Counts[view.Status]++
		dist.Members[view.Status] = append(dist.Members[view.Status], d.DeviceID)
		views = append(views, view)
	}

	return dist, views
}

// RiskMembers: объединение AtRisk и NeedsMaintenance (в этом порядке), не длиннее limit.
// limit <= 0 означает без ограничения.
func RiskMembers(dist domain.FleetDistribution, limit int) []string {
	ids := make([]string, 0, len(dist.Members[domain.StatusAtRisk])+len(dist.Members[domain.StatusNeedsMaintenance]))
	ids = append(ids, dist.Members[domain.StatusAtRisk]...)
	ids = append(ids, dist.Members[domain.StatusNeedsMaintenance]...)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// Distribution: срез для круговой диаграммы в фиксированном порядке корзин.
func Distribution(dist domain.FleetDistribution) []domain.DistributionSlice {
	out := make([]domain.DistributionSlice, 0, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		out = append(out, domain.DistributionSlice{Status: s, Label: s.Label(), Value: dist.Counts[s]})
	}
	return out
}

// CountersOf: верхние плитки дашборда.
func CountersOf(dist domain.FleetDistribution) domain.Counters {
	return domain.Counters{
		TotalDevices:            dist.Total(),
		DevicesAtRisk:           dist.Counts[domain.StatusAtRisk],
		DevicesNeedsMaintenance: dist.Counts[domain.StatusNeedsMaintenance],
	}
}
