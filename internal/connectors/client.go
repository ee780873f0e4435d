package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/xela07ax/medipredict-console/internal/domain"
)

// MediPredictClient: адаптер трех эндпоинтов чтения удаленного API.
// Все ошибки возвращаются как есть, решение о деградации принимает сервис.
type MediPredictClient struct {
	directory Fetcher // устройства и прогнозы
	explainer Fetcher // сервис объяснений, может иметь свой предохранитель
	listLimit int
}

func NewMediPredictClient(directory, explainer Fetcher, listLimit int) *MediPredictClient {
	if explainer == nil {
		explainer = directory
	}
	if listLimit <= 0 {
		listLimit = 1000
	}
	return &MediPredictClient{directory: directory, explainer: explainer, listLimit: listLimit}
}

func (c *MediPredictClient) ListDevices(ctx context.Context) ([]domain.Device, error) {
	var wire []wireDevice
	if err := c.getJSON(ctx, c.directory, fmt.Sprintf("/api/devices/?skip=0&limit=%d", c.listLimit), &wire); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	devices := make([]domain.Device, 0, len(wire))
	for _, w := range wire {
		devices = append(devices, w.toDomain())
	}
	return devices, nil
}

func (c *MediPredictClient) ListPredictions(ctx context.Context) ([]domain.Prediction, error) {
	var wire []wirePrediction
	if err := c.getJSON(ctx, c.directory, fmt.Sprintf("/api/predictions/?skip=0&limit=%d", c.listLimit), &wire); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return toPredictions(wire), nil
}

func (c *MediPredictClient) ListPredictionsForDevice(ctx context.Context, deviceID string) ([]domain.Prediction, error) {
	var wire []wirePrediction
	path := fmt.Sprintf("/api/predictions/device/%s?skip=0&limit=%d", url.PathEscape(deviceID), c.listLimit)
	if err := c.getJSON(ctx, c.directory, path, &wire); err != nil {
		return nil, fmt.Errorf("list predictions for %s: %w", deviceID, err)
	}
	return toPredictions(wire), nil
}

// Explain возвращает (nil, nil), если для устройства нет данных (404).
func (c *MediPredictClient) Explain(ctx context.Context, deviceID string) (*domain.Explanation, error) {
	var wire wireExplanation
	err := c.getJSON(ctx, c.explainer, "/api/ml/explain/"+url.PathEscape(deviceID), &wire)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("explain %s: %w", deviceID, err)
	}
	return wire.toDomain(deviceID), nil
}

func (c *MediPredictClient) getJSON(ctx context.Context, f Fetcher, path string, dst any) error {
	body, err := f.Fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func toPredictions(wire []wirePrediction) []domain.Prediction {
	preds := make([]domain.Prediction, 0, len(wire))
	for _, w := range wire {
		preds = append(preds, w.toDomain())
	}
	return preds
}

// DecodeExplanation разбирает JSON объяснения (используется gRPC-адаптером).
func DecodeExplanation(data []byte, deviceID string) (*domain.Explanation, error) {
	var wire wireExplanation
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode explanation: %w", err)
	}
	return wire.toDomain(deviceID), nil
}
