package connectors

import (
	"strings"
	"time"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// FastAPI отдает datetime без зоны, поэтому разбираем время сами и считаем его UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseTimePtr(v *string) *time.Time {
	if v == nil {
		return nil
	}
	t, ok := parseTime(*v)
	if !ok {
		return nil
	}
	return &t
}

type wireDevice struct {
	DeviceID            string  `json:"device_id"`
	Name                string  `json:"name"`
	Type                string  `json:"type"`
	Manufacturer        string  `json:"manufacturer"`
	Model               string  `json:"model"`
	SerialNumber        string  `json:"serial_number"`
	InstallationDate    *string `json:"installation_date"`
	LastMaintenanceDate *string `json:"last_maintenance_date"`
	UpdatedAt           *string `json:"updated_at"`
	// status из реестра игнорируем: статус всегда вычисляется из прогнозов
}

func (w wireDevice) toDomain() domain.Device {
	return domain.Device{
		DeviceID:            w.DeviceID,
		Name:                w.Name,
		Type:                w.Type,
		Manufacturer:        w.Manufacturer,
		Model:               w.Model,
		SerialNumber:        w.SerialNumber,
		InstallationDate:    parseTimePtr(w.InstallationDate),
		LastMaintenanceDate: parseTimePtr(w.LastMaintenanceDate),
		UpdatedAt:           parseTimePtr(w.UpdatedAt),
	}
}

type wirePrediction struct {
	ID                  int64   `json:"id"`
	DeviceID            string  `json:"device_id"`
	PredictedStatus     string  `json:"predicted_status"`
	ConfidenceScore     float64 `json:"confidence_score"`
	Recommendation      *string `json:"recommendation"`
	PredictionTimestamp string  `json:"prediction_timestamp"`
}

// toDomain. Неразбираемое время остается нулевым, такой прогноз уйдет в конец сортировки.
func (w wirePrediction) toDomain() domain.Prediction {
	ts, _ := parseTime(w.PredictionTimestamp)
	p := domain.Prediction{
		ID:              w.ID,
		DeviceID:        w.DeviceID,
		PredictedStatus: w.PredictedStatus,
		ConfidenceScore: w.ConfidenceScore,
		Timestamp:       ts,
	}
	if w.Recommendation != nil {
		p.Recommendation = *w.Recommendation
	}
	return p
}

type wireExplanation struct {
	DeviceID        string                      `json:"device_id"`
	PredictedStatus string                      `json:"predicted_status"`
	Prediction      string                      `json:"prediction"`
	Confidence      *float64                    `json:"confidence"`
	ConfidenceScore *float64                    `json:"confidence_score"`
	Contributions   domain.FeatureContributions `json:"feature_contributions"`
	Explanation     string                      `json:"explanation"`
	Recommendations []string                    `json:"recommendations"`
	Recommendation  string                      `json:"recommendation"`
	Timestamp       *string                     `json:"timestamp"`
}

func (w wireExplanation) toDomain(deviceID string) *domain.Explanation {
	e := &domain.Explanation{
		DeviceID:        w.DeviceID,
		PredictedStatus: w.PredictedStatus,
		Contributions:   w.Contributions,
		Explanation:     w.Explanation,
		Recommendations: w.Recommendations,
		Timestamp:       parseTimePtr(w.Timestamp),
	}
	if e.DeviceID == "" {
		e.DeviceID = deviceID
	}
	if e.PredictedStatus == "" {
		e.PredictedStatus = w.Prediction
	}
	switch {
	case w.Confidence != nil:
		e.Confidence = *w.Confidence
	case w.ConfidenceScore != nil:
		e.Confidence = *w.ConfidenceScore
	}
	if len(e.Recommendations) == 0 && w.Recommendation != "" {
		e.Recommendations = []string{w.Recommendation}
	}
	return e
}
