package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/fleet"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pred(deviceID, status string, offset time.Duration) domain.Prediction {
	return domain.Prediction{DeviceID: deviceID, PredictedStatus: status, Timestamp: t0.Add(offset)}
}

func TestResolve_NoPredictionsIsNoData(t *testing.T) {
	d := domain.Device{DeviceID: "D1"}

	assert.Equal(t, domain.StatusNoData, fleet.Resolve(d, nil))
	assert.Equal(t, domain.StatusNoData, fleet.Resolve(d, []domain.Prediction{pred("D2", "healthy", 0)}))
	assert.Equal(t, domain.StatusNoData, fleet.NewPredictionIndex(nil).Resolve("D1"))
}

func TestResolve_PicksMaxTimestampRegardlessOfOrder(t *testing.T) {
	d := domain.Device{DeviceID: "D1"}
	preds := []domain.Prediction{
		pred("D1", "healthy", time.Hour),
		pred("D1", "needs_maintenance", 3*time.Hour),
		pred("D2", "at_risk", 10*time.Hour),
		pred("D1", "at_risk", 2*time.Hour),
	}

	assert.Equal(t, domain.StatusNeedsMaintenance, fleet.Resolve(d, preds))
	assert.Equal(t, domain.StatusNeedsMaintenance, fleet.NewPredictionIndex(preds).Resolve("D1"))
}

func TestResolve_TieBreakIsFirstInInput(t *testing.T) {
	d := domain.Device{DeviceID: "D1"}
	preds := []domain.Prediction{
		pred("D1", "healthy", 0),
		pred("D1", "at_risk", time.Hour),
		pred("D1", "needs_maintenance", time.Hour),
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, domain.StatusAtRisk, fleet.Resolve(d, preds))
		require.Equal(t, domain.StatusAtRisk, fleet.NewPredictionIndex(preds).Resolve("D1"))
	}

	// Меняем порядок во входе: меняется и победитель
	preds[1], preds[2] = preds[2], preds[1]
	assert.Equal(t, domain.StatusNeedsMaintenance, fleet.Resolve(d, preds))
	assert.Equal(t, domain.StatusNeedsMaintenance, fleet.NewPredictionIndex(preds).Resolve("D1"))
}

func TestResolve_UnrecognizedLabelIsUnknown(t *testing.T) {
	d := domain.Device{DeviceID: "D1"}

	assert.Equal(t, domain.StatusUnknown, fleet.Resolve(d, []domain.Prediction{pred("D1", "exploded", 0)}))
	assert.Equal(t, domain.StatusUnknown, fleet.Resolve(d, []domain.Prediction{pred("D1", "", 0)}))
	assert.Equal(t, domain.StatusUnknown, fleet.Resolve(d, []domain.Prediction{pred("D1", "HEALTHY", 0)}))
}

func TestPredictionIndex_KeepsFeedOrderPerDevice(t *testing.T) {
	preds := []domain.Prediction{
		pred("D1", "healthy", 2*time.Hour),
		pred("D2", "at_risk", 0),
		pred("D1", "at_risk", time.Hour),
	}
	idx := fleet.NewPredictionIndex(preds)

	require.Len(t, idx["D1"], 2)
	assert.Equal(t, "healthy", idx["D1"][0].PredictedStatus)
	assert.Equal(t, "at_risk", idx["D1"][1].PredictedStatus)

	latest, ok := idx.Latest("D1")
	require.True(t, ok)
	assert.Equal(t, "healthy", latest.PredictedStatus)

	_, ok = idx.Latest("missing")
	assert.False(t, ok)
}
