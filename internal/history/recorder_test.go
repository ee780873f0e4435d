package history_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/domain"
	"github.com/xela07ax/medipredict-console/internal/engine"
	"github.com/xela07ax/medipredict-console/internal/history"
)

// fakeStorage: in-memory реализация StorageInterface.
type fakeStorage struct {
	mu      sync.Mutex
	batches [][]domain.FleetSnapshot
	fail    bool
	block   chan struct{}
}

func (f *fakeStorage) WriteBatch(ctx context.Context, snaps []domain.FleetSnapshot) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.batches = append(f.batches, append([]domain.FleetSnapshot(nil), snaps...))
	return nil
}

func (f *fakeStorage) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func snap(id string) domain.FleetSnapshot {
	return domain.FleetSnapshot{ID: id, TotalDevices: 1, Counts: map[domain.HealthStatus]int{domain.StatusHealthy: 1}}
}

func TestRecorder_StopFlushesEverything(t *testing.T) {
	store := &fakeStorage{}
	rec := history.NewRecorder(store, history.Options{BatchSize: 3, FlushInterval: time.Hour}, nil, zap.NewNop())
	rec.Start()

	for i := 0; i < 7; i++ {
		rec.Record(snap(string(rune('a' + i))))
	}
	rec.Stop()

	assert.Equal(t, 7, store.total())
	require.NotEmpty(t, store.batches)
	assert.Len(t, store.batches[0], 3)
}

func TestRecorder_FlushesOnTicker(t *testing.T) {
	store := &fakeStorage{}
	rec := history.NewRecorder(store, history.Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, nil, zap.NewNop())
	rec.Start()
	defer rec.Stop()

	rec.Record(snap("a"))

	assert.Eventually(t, func() bool { return store.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	store := &fakeStorage{block: make(chan struct{})}
	metrics := engine.NewMetrics(prometheus.NewRegistry())
	rec := history.NewRecorder(store, history.Options{BufferSize: 2, BatchSize: 1, FlushInterval: time.Hour}, metrics, zap.NewNop())
	rec.Start()

	// Первый снимок уходит воркеру и блокирует его в WriteBatch
	rec.Record(snap("a"))
	time.Sleep(20 * time.Millisecond)

	rec.Record(snap("b"))
	rec.Record(snap("c"))
	rec.Record(snap("d")) // буфер на 2 уже полон

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryDropped))

	close(store.block)
	rec.Stop()
	assert.Equal(t, 3, store.total())
}

func TestRecorder_RecordAfterStopIsIgnored(t *testing.T) {
	store := &fakeStorage{}
	rec := history.NewRecorder(store, history.Options{}, nil, zap.NewNop())
	rec.Start()
	rec.Stop()

	assert.NotPanics(t, func() { rec.Record(snap("late")) })
	assert.NotPanics(t, rec.Stop)
	assert.Equal(t, 0, store.total())
}

func TestRecorder_StorageFailureDoesNotStopWorker(t *testing.T) {
	store := &fakeStorage{fail: true}
	rec := history.NewRecorder(store, history.Options{BatchSize: 1, FlushInterval: time.Hour}, nil, zap.NewNop())
	rec.Start()

	rec.Record(snap("a"))
	time.Sleep(20 * time.Millisecond)
	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()
	rec.Record(snap("b"))
	rec.Stop()

	assert.Equal(t, 1, store.total())
}
