package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// FeatureContribution: вклад одного признака в прогноз.
type FeatureContribution struct {
	Feature      string   `json:"feature"`
	Contribution float64  `json:"contribution"`
	Value        *float64 `json:"value,omitempty"`
}

// ContributionShape запоминает, в каком виде вклады пришли от сервиса объяснений.
type ContributionShape string

const (
	ShapeNone ContributionShape = ""
	ShapeList ContributionShape = "list"
	ShapeMap  ContributionShape = "map"
)

// FeatureContributions нормализует оба формата ответа (список записей или
// мапа feature -> contribution) в один упорядоченный список сразу при декодировании.
// Дальше по коду форма не проверяется.
type FeatureContributions struct {
	Shape ContributionShape
	Items []FeatureContribution
}

func (fc *FeatureContributions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*fc = FeatureContributions{}
		return nil
	}

	switch data[0] {
	case '[':
		var items []FeatureContribution
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("feature contributions list: %w", err)
		}
		*fc = FeatureContributions{Shape: ShapeList, Items: items}
		return nil
	case '{':
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("feature contributions map: %w", err)
		}
		*fc = FeatureContributions{Shape: ShapeMap, Items: contributionsFromMap(m)}
		return nil
	default:
		return fmt.Errorf("feature contributions: unsupported json shape %q", string(data[:1]))
	}
}

// MarshalJSON всегда отдает список.
func (fc FeatureContributions) MarshalJSON() ([]byte, error) {
	if fc.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(fc.Items)
}

// У мапы нет порядка, поэтому сразу сортируем по модулю вклада, при равенстве: по имени.
func contributionsFromMap(m map[string]float64) []FeatureContribution {
	items := make([]FeatureContribution, 0, len(m))
	for feature, c := range m {
		items = append(items, FeatureContribution{Feature: feature, Contribution: c})
	}
	sort.Slice(items, func(i, j int) bool {
		ai, aj := math.Abs(items[i].Contribution), math.Abs(items[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return items[i].Feature < items[j].Feature
	})
	return items
}

// Explanation: ответ сервиса объяснений для одного устройства.
type Explanation struct {
	DeviceID        string               `json:"device_id"`
	PredictedStatus string               `json:"predicted_status"`
	Confidence      float64              `json:"confidence"`
	Contributions   FeatureContributions `json:"feature_contributions"`
	Explanation     string               `json:"explanation"`
	Recommendations []string             `json:"recommendations"`
	Timestamp       *time.Time           `json:"timestamp,omitempty"`
}
