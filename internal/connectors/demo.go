package connectors

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// DemoSource: встроенный парк для локального запуска без удаленного API
// (upstream.mode=demo). Данные детерминированы seed'ом, задержки случайные.
type DemoSource struct {
	devices     []domain.Device
	predictions []domain.Prediction
	maxLatency  time.Duration
}

var demoCatalog = []struct{ name, kind, vendor string }{
	{"MRI Scanner", "imaging", "Siemens"},
	{"Ultrasound Machine", "imaging", "GE Healthcare"},
	{"Infusion Pump", "therapy", "Baxter"},
	{"Patient Monitor", "monitoring", "Philips"},
	{"Ventilator", "life_support", "Draeger"},
	{"CT Scanner", "imaging", "Canon Medical"},
	{"Defibrillator", "emergency", "ZOLL"},
	{"ECG Machine", "diagnostics", "Mindray"},
}

var demoLabels = []string{"healthy", "healthy", "healthy", "at_risk", "needs_maintenance"}

func NewDemoSource(seed uint64, size int, now time.Time) *DemoSource {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	src := &DemoSource{maxLatency: 250 * time.Millisecond}

	for i := 0; i < size; i++ {
		item := demoCatalog[i%len(demoCatalog)]
		installed := now.AddDate(-1-r.IntN(5), -r.IntN(12), 0).UTC()
		serviced := now.AddDate(0, -r.IntN(10), -r.IntN(28)).UTC()
		d := domain.Device{
			DeviceID:            fmt.Sprintf("DEV-%05d", i+1),
			Name:                item.name,
			Type:                item.kind,
			Manufacturer:        item.vendor,
			Model:               fmt.Sprintf("%s-%d", item.kind[:2], 100+r.IntN(900)),
			SerialNumber:        fmt.Sprintf("SN%08d", r.IntN(1e8)),
			InstallationDate:    &installed,
			LastMaintenanceDate: &serviced,
		}
		src.devices = append(src.devices, d)

		// Часть парка без прогнозов: это NoData
		if r.IntN(10) == 0 {
			continue
		}
		for k := 0; k < 1+r.IntN(4); k++ {
			src.predictions = append(src.predictions, domain.Prediction{
				ID:              int64(len(src.predictions) + 1),
				DeviceID:        d.DeviceID,
				PredictedStatus: demoLabels[r.IntN(len(demoLabels))],
				ConfidenceScore: 0.5 + r.Float64()/2,
				Timestamp:       now.Add(-time.Duration(r.IntN(180*24)) * time.Hour).UTC(),
			})
		}
	}
	return src
}

// WithLatency задает верхнюю границу случайной задержки ответа, 0: без задержки.
func (s *DemoSource) WithLatency(max time.Duration) *DemoSource {
	s.maxLatency = max
	return s
}

func (s *DemoSource) wait(ctx context.Context) error {
	if s.maxLatency <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(rand.Int64N(int64(s.maxLatency)))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DemoSource) ListDevices(ctx context.Context) ([]domain.Device, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return append([]domain.Device(nil), s.devices...), nil
}

func (s *DemoSource) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return append([]domain.Prediction(nil), s.predictions...), nil
}

func (s *DemoSource) ListPredictionsForDevice(ctx context.Context, deviceID string) ([]domain.Prediction, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	var out []domain.Prediction
	for _, p := range s.predictions {
		if p.DeviceID == deviceID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Explain отдает вклады то списком, то мапой: как живой сервис разных версий.
// Каждое седьмое устройство "падает", чтобы было видно частичную деградацию.
func (s *DemoSource) Explain(ctx context.Context, deviceID string) (*domain.Explanation, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	var n int
	if _, err := fmt.Sscanf(deviceID, "DEV-%d", &n); err != nil {
		return nil, nil
	}
	if n%7 == 0 {
		return nil, fmt.Errorf("explain service internal error")
	}

	items := []domain.FeatureContribution{
		{Feature: "vibration", Contribution: 0.12 * float64(n%5+1)},
		{Feature: "temperature", Contribution: 0.08 * float64(n%3+1)},
		{Feature: "error_count", Contribution: -0.05 * float64(n%4+1)},
		{Feature: "usage_hours", Contribution: 0.03 * float64(n%6+1)},
		{Feature: "pressure", Contribution: 0.02},
	}
	shape := domain.ShapeList
	if n%2 == 0 {
		shape = domain.ShapeMap
	}

	return &domain.Explanation{
		DeviceID:        deviceID,
		PredictedStatus: "at_risk",
		Confidence:      0.6 + float64(n%4)/10,
		Contributions:   domain.FeatureContributions{Shape: shape, Items: items},
		Explanation:     "Elevated vibration and temperature compared to the fleet baseline.",
		Recommendations: []string{"Schedule inspection", "Check cooling system"},
	}, nil
}
