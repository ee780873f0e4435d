package domain

import "time"

// FleetSnapshot: распределение парка на момент успешного прохода агрегации.
// Пишется в историю асинхронно.
type FleetSnapshot struct {
	ID           string               `json:"id"`
	TakenAt      time.Time            `json:"taken_at"`
	TotalDevices int                  `json:"total_devices"`
	Counts       map[HealthStatus]int `json:"counts"`
	Degraded     bool                 `json:"degraded"`
}
