package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/medipredict-console/internal/console/handler"
	"github.com/xela07ax/medipredict-console/internal/console/service"
	"github.com/xela07ax/medipredict-console/internal/domain"
)

// fakeService реализует все интерфейсы хендлеров.
type fakeService struct {
	dash      *domain.Dashboard
	err       error
	state     domain.ViewState
	detail    *domain.DeviceDetail
	views     []domain.DeviceStatusView
	lastQuery string
	lastLimit int
	history   []domain.FleetSnapshot
}

func (f *fakeService) Dashboard(context.Context) (*domain.Dashboard, error) { return f.dash, f.err }
func (f *fakeService) Refresh(context.Context) (*domain.Dashboard, error)   { return f.dash, f.err }
func (f *fakeService) State() domain.ViewState                              { return f.state }

func (f *fakeService) Insights(context.Context) ([]domain.Insight, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dash.Insights, nil
}

func (f *fakeService) Devices(_ context.Context, q string) ([]domain.DeviceStatusView, error) {
	f.lastQuery = q
	return f.views, f.err
}

func (f *fakeService) DeviceDetail(_ context.Context, id string) (*domain.DeviceDetail, error) {
	if f.detail == nil || f.detail.Device.DeviceID != id {
		return nil, fmt.Errorf("%w: %s", service.ErrDeviceNotFound, id)
	}
	return f.detail, nil
}

func (f *fakeService) Summary(context.Context) (*domain.SummaryReport, error) {
	return &domain.SummaryReport{TotalDevices: 4}, f.err
}

func (f *fakeService) History(_ context.Context, limit int) ([]domain.FleetSnapshot, error) {
	f.lastLimit = limit
	return f.history, f.err
}

func router(f *fakeService) http.Handler {
	logger := zap.NewNop()
	dash := handler.NewDashboardHandler(f, logger)
	dev := handler.NewDeviceHandler(f, logger)
	rep := handler.NewReportHandler(f, logger)

	r := chi.NewRouter()
	r.Get("/api/v1/dashboard", dash.Get)
	r.Get("/api/v1/insights", dash.GetInsights)
	r.Get("/api/v1/devices", dev.List)
	r.Get("/api/v1/devices/{id}", dev.Get)
	r.Get("/api/v1/reports/summary", rep.Summary)
	r.Get("/api/v1/fleet/history", rep.History)
	return r
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDashboard_Ready(t *testing.T) {
	dash := &domain.Dashboard{Counters: domain.Counters{TotalDevices: 2}, Insights: []domain.Insight{{DeviceID: "D2"}}}
	f := &fakeService{dash: dash, state: domain.ViewState{Phase: domain.PhaseReady, Dashboard: dash}}

	rec := do(t, router(f), "/api/v1/dashboard")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["phase"])
	assert.EqualValues(t, 2, body["dashboard"].(map[string]any)["counters"].(map[string]any)["total_devices"])
}

func TestDashboard_ErroredIs503WithState(t *testing.T) {
	f := &fakeService{
		err:   service.ErrAllSourcesUnavailable,
		state: domain.ViewState{Phase: domain.PhaseErrored, Err: service.ErrAllSourcesUnavailable.Error(), UpdatedAt: time.Now()},
	}

	rec := do(t, router(f), "/api/v1/dashboard?refresh=true")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"errored"`)
}

func TestInsights(t *testing.T) {
	f := &fakeService{dash: &domain.Dashboard{Insights: []domain.Insight{{DeviceID: "D2", DeviceName: "MRI"}}}}

	rec := do(t, router(f), "/api/v1/insights")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"device_name":"MRI"`)
}

func TestDevices_PassesQuery(t *testing.T) {
	f := &fakeService{views: []domain.DeviceStatusView{{Device: domain.Device{DeviceID: "D1"}, Status: domain.StatusNoData}}}

	rec := do(t, router(f), "/api/v1/devices?q=pump")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pump", f.lastQuery)
	assert.Contains(t, rec.Body.String(), `"status":"no_data"`)
}

func TestDeviceDetail_NotFoundIs404(t *testing.T) {
	f := &fakeService{}

	rec := do(t, router(f), "/api/v1/devices/ghost")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghost")
}

func TestDeviceDetail_OK(t *testing.T) {
	f := &fakeService{detail: &domain.DeviceDetail{Device: domain.Device{DeviceID: "D1"}, Status: domain.StatusHealthy}}

	rec := do(t, router(f), "/api/v1/devices/D1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHistory_Limit(t *testing.T) {
	f := &fakeService{history: []domain.FleetSnapshot{{ID: "s1"}}}
	h := router(f)

	rec := do(t, h, "/api/v1/fleet/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, f.lastLimit)

	do(t, h, "/api/v1/fleet/history?limit=100000")
	assert.Equal(t, 1000, f.lastLimit)

	rec = do(t, h, "/api/v1/fleet/history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_DisabledIs503(t *testing.T) {
	f := &fakeService{err: service.ErrHistoryDisabled}

	rec := do(t, router(f), "/api/v1/fleet/history")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummary_InternalErrorIs500(t *testing.T) {
	f := &fakeService{err: fmt.Errorf("unexpected")}

	rec := do(t, router(f), "/api/v1/reports/summary")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrors_ContextMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"client went away", context.Canceled, 499},
		{"wrapped deadline", fmt.Errorf("upstream: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeService{err: tt.err}

			rec := do(t, router(f), "/api/v1/reports/summary")

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDashboard_CancelledRequestIsNotErrored(t *testing.T) {
	f := &fakeService{
		err:   context.Canceled,
		state: domain.ViewState{Phase: domain.PhaseLoading},
	}

	rec := do(t, router(f), "/api/v1/dashboard")

	assert.Equal(t, 499, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"phase":"errored"`)
}
