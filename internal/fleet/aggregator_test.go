package fleet_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/fleet"
)

func TestAggregate_TwoDevicesScenario(t *testing.T) {
	devices := []domain.Device{{DeviceID: "D1"}, {DeviceID: "D2"}}
	preds := []domain.Prediction{
		pred("D1", "healthy", 0),
		pred("D2", "at_risk", time.Minute),
	}

	dist := fleet.Aggregate(devices, preds)

	assert.Equal(t, 1, dist.Counts[domain.StatusHealthy])
	assert.Equal(t, 1, dist.Counts[domain.StatusAtRisk])
	assert.Equal(t, 0, dist.Counts[domain.StatusNoData])
	assert.Equal(t, []string{"D2"}, dist.Members[domain.StatusAtRisk])
	assert.Equal(t, []string{"D1"}, dist.Members[domain.StatusHealthy])
}

func TestAggregate_NoDataAndUnknownAreSeparateBuckets(t *testing.T) {
	devices := []domain.Device{{DeviceID: "D1"}, {DeviceID: "D2"}, {DeviceID: "D3"}}
	preds := []domain.Prediction{
		pred("D2", "weird", 0),
		pred("GHOST", "at_risk", 0), // ссылается на отсутствующее устройство
	}

	dist := fleet.Aggregate(devices, preds)

	assert.Equal(t, 2, dist.Counts[domain.StatusNoData])
	assert.Equal(t, 1, dist.Counts[domain.StatusUnknown])
	assert.Equal(t, 0, dist.Counts[domain.StatusHealthy])
	assert.Equal(t, 0, dist.Counts[domain.StatusAtRisk])
	assert.Equal(t, []string{"D1", "D3"}, dist.Members[domain.StatusNoData])
	assert.Equal(t, 3, dist.Total())
}

func TestAggregate_CountsSumToDeviceCount(t *testing.T) {
	labels := []string{"healthy", "at_risk", "needs_maintenance", "???"}
	r := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 50; round++ {
		n := r.IntN(40)
		devices := make([]domain.Device, n)
		for i := range devices {
			devices[i] = domain.Device{DeviceID: fmt.Sprintf("D%d", r.IntN(30))} // дубликаты допустимы
		}
		preds := make([]domain.Prediction, r.IntN(100))
		for i := range preds {
			preds[i] = pred(fmt.Sprintf("D%d", r.IntN(35)), labels[r.IntN(len(labels))], time.Duration(r.IntN(20))*time.Minute)
		}

		dist := fleet.Aggregate(devices, preds)

		sum, members := 0, 0
		for _, s := range domain.AllStatuses {
			sum += dist.Counts[s]
			members += len(dist.Members[s])
			require.Len(t, dist.Members[s], dist.Counts[s])
		}
		require.Equal(t, n, sum)
		require.Equal(t, n, members)
	}
}

func TestAggregate_EmptyInputsHaveAllBuckets(t *testing.T) {
	dist := fleet.Aggregate(nil, nil)

	for _, s := range domain.AllStatuses {
		count, ok := dist.Counts[s]
		require.True(t, ok, "bucket %s missing", s)
		assert.Zero(t, count)
		assert.NotNil(t, dist.Members[s])
	}
}

func TestAggregateViews_AttachesLatestPrediction(t *testing.T) {
	devices := []domain.Device{{DeviceID: "D1"}, {DeviceID: "D2"}}
	preds := []domain.Prediction{pred("D1", "healthy", 0), pred("D1", "needs_maintenance", time.Hour)}

	_, views := fleet.AggregateViews(devices, fleet.NewPredictionIndex(preds))

	require.Len(t, views, 2)
	require.NotNil(t, views[0].Latest)
	assert.Equal(t, "needs_maintenance", views[0].Latest.PredictedStatus)
	assert.Equal(t, domain.StatusNeedsMaintenance, views[0].Status)
	assert.Nil(t, views[1].Latest)
	assert.Equal(t, domain.StatusNoData, views[1].Status)
}

func TestRiskMembers_UnionAndLimit(t *testing.T) {
	dist := domain.FleetDistribution{Members: map[domain.HealthStatus][]string{
		domain.StatusAtRisk:           {"A1", "A2"},
		domain.StatusNeedsMaintenance: {"M1", "M2", "M3"},
		domain.StatusHealthy:          {"H1"},
	}}

	assert.Equal(t, []string{"A1", "A2", "M1", "M2", "M3"}, fleet.RiskMembers(dist, 0))
	assert.Equal(t, []string{"A1", "A2", "M1"}, fleet.RiskMembers(dist, 3))
}

func TestDistributionAndCounters(t *testing.T) {
	devices := []domain.Device{{DeviceID: "D1"}, {DeviceID: "D2"}, {DeviceID: "D3"}}
	preds := []domain.Prediction{pred("D1", "at_risk", 0), pred("D2", "needs_maintenance", 0)}
	dist := fleet.Aggregate(devices, preds)

	slices := fleet.Distribution(dist)
	require.Len(t, slices, len(domain.AllStatuses))
	assert.Equal(t, "Healthy", slices[0].Label)
	assert.Equal(t, domain.StatusNoData, slices[4].Status)
	assert.Equal(t, 1, slices[4].Value)

	c := fleet.CountersOf(dist)
	assert.Equal(t, domain.Counters{TotalDevices: 3, DevicesAtRisk: 1, DevicesNeedsMaintenance: 1}, c)
}
