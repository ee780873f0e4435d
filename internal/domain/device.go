package domain

import "time"

// Device: запись из реестра устройств удаленного API.
// Статус здесь намеренно отсутствует: он всегда вычисляется из прогнозов.
type Device struct {
	DeviceID            string     `json:"device_id"` // Стабильный уникальный идентификатор
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Manufacturer        string     `json:"manufacturer"`
	Model               string     `json:"model"`
	SerialNumber        string     `json:"serial_number"`
	InstallationDate    *time.Time `json:"installation_date,omitempty"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// UnknownDeviceName подставляется, когда прогноз ссылается на устройство,
// которого нет в текущем реестре.
const UnknownDeviceName = "Unknown Device"

// DisplayName возвращает имя для отображения с фолбэком на идентификатор.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.DeviceID != "" {
		return d.DeviceID
	}
	return UnknownDeviceName
}
