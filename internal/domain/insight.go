package domain

// Insight: обогащенная запись по устройству в зоне риска.
// Имя берется из реестра устройств, остальное: из сервиса объяснений.
type Insight struct {
	DeviceID        string                `json:"device_id"`
	DeviceName      string                `json:"device_name"`
	PredictedStatus string                `json:"predicted_status,omitempty"`
	Confidence      float64               `json:"confidence"`
	TopFactors      []FeatureContribution `json:"top_factors"`
	Explanation     string                `json:"explanation,omitempty"`
	Recommendations []string              `json:"recommendations"`
}
