package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/fleet"
)

func TestTrends_GroupsByMonthAscending(t *testing.T) {
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	preds := []domain.Prediction{
		{DeviceID: "D1", PredictedStatus: "healthy", Timestamp: t0},
		{DeviceID: "D1", PredictedStatus: "at_risk", Timestamp: feb},
		{DeviceID: "D2", PredictedStatus: "needs_maintenance", Timestamp: t0.Add(24 * time.Hour)},
		{DeviceID: "D3", PredictedStatus: "mystery", Timestamp: t0},
		{DeviceID: "D4", PredictedStatus: "healthy"}, // без времени: пропускаем
	}

	trends := fleet.Trends(preds, nil)

	require.Len(t, trends, 2)
	assert.Equal(t, domain.TrendPoint{Period: "2026-02", AtRisk: 1}, trends[0])
	assert.Equal(t, domain.TrendPoint{Period: "2026-03", Healthy: 1, NeedsMaintenance: 1, Unknown: 1}, trends[1])
}

func TestTrends_RespectsLocation(t *testing.T) {
	lateJan := time.Date(2026, 1, 31, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+3", 3*60*60)

	trends := fleet.Trends([]domain.Prediction{{PredictedStatus: "healthy", Timestamp: lateJan}}, loc)

	require.Len(t, trends, 1)
	assert.Equal(t, "2026-02", trends[0].Period)
}

func TestSearch_MatchesNameIDManufacturer(t *testing.T) {
	views := []domain.DeviceStatusView{
		{Device: domain.Device{DeviceID: "DEV-001", Name: "MRI Scanner", Manufacturer: "Siemens"}},
		{Device: domain.Device{DeviceID: "DEV-002", Name: "Ultrasound", Manufacturer: "GE"}},
		{Device: domain.Device{DeviceID: "PUMP-3", Name: "Infusion Pump", Manufacturer: "Baxter"}},
	}

	assert.Len(t, fleet.Search(views, ""), 3)
	assert.Len(t, fleet.Search(views, "dev-"), 2)
	assert.Len(t, fleet.Search(views, "  siemens "), 1)
	assert.Equal(t, "PUMP-3", fleet.Search(views, "pump")[0].Device.DeviceID)
	assert.Empty(t, fleet.Search(views, "philips"))
}

func TestSummary_AllBuckets(t *testing.T) {
	devices := []domain.Device{{DeviceID: "D1"}, {DeviceID: "D2"}}
	dist := fleet.Aggregate(devices, []domain.Prediction{pred("D1", "healthy", 0)})

	report := fleet.Summary(dist, t0)

	assert.Equal(t, 2, report.TotalDevices)
	assert.Len(t, report.StatusBreakdown, len(domain.AllStatuses))
	assert.Equal(t, 1, report.StatusBreakdown[domain.StatusNoData])
	assert.Equal(t, t0, report.GeneratedAt)
}

func TestDetail_SortsAndTrims(t *testing.T) {
	device := domain.Device{DeviceID: "D1", Name: "MRI"}
	preds := []domain.Prediction{
		pred("D1", "healthy", time.Hour),
		pred("D1", "at_risk", 4*time.Hour),
		pred("D2", "needs_maintenance", 9*time.Hour),
		pred("D1", "healthy", 2*time.Hour),
		pred("D1", "needs_maintenance", 3*time.Hour),
	}

	d := fleet.Detail(device, preds)

	assert.Equal(t, domain.StatusAtRisk, d.Status)
	require.Len(t, d.Predictions, 4)
	require.Len(t, d.RecentPredictions, fleet.RecentPredictionsLimit)
	assert.Equal(t, "at_risk", d.RecentPredictions[0].PredictedStatus)
	assert.Equal(t, "healthy", d.Predictions[3].PredictedStatus)
}

func TestDetail_NoPredictions(t *testing.T) {
	d := fleet.Detail(domain.Device{DeviceID: "D1"}, nil)

	assert.Equal(t, domain.StatusNoData, d.Status)
	assert.Empty(t, d.Predictions)
	assert.Empty(t, d.RecentPredictions)
}
