package domain

import "time"

// Prediction: исторический результат ML-классификации для одного устройства.
// DeviceID не проверяется ссылочно: устройство может отсутствовать в реестре.
type Prediction struct {
	ID              int64     `json:"id,omitempty"`
	DeviceID        string    `json:"device_id"`
	PredictedStatus string    `json:"predicted_status"` // Сырой лейбл, открытое множество
	ConfidenceScore float64   `json:"confidence_score"` // [0,1]
	Recommendation  string    `json:"recommendation,omitempty"`
	Timestamp       time.Time `json:"prediction_timestamp"`
}

// Status переводит сырой лейбл в категорию.
func (p Prediction) Status() HealthStatus {
	return ParseStatus(p.PredictedStatus)
}
