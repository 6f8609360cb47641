package models

// Monitor status codes. The numeric values are part of the public API and
// of queued notification payloads, do not renumber.
const (
	MonitorStatusDown        = 0
	MonitorStatusUp          = 1
	MonitorStatusPending     = 2
	MonitorStatusMaintenance = 3
)

// MonitorModel is a monitored component shown on a status page.
type MonitorModel struct {
	Base
	StatusPageID string `json:"status_page_id" gorm:"type:char(36);index;not null"`
	Name         string `json:"name"           gorm:"not null"`
	Status       int    `json:"status"`
	Active       bool   `json:"active"`
}

func (MonitorModel) TableName() string { return "monitors" }

// MonitorStatusLabel maps a status code to its display label.
// Unrecognized codes map to "Unknown".
func MonitorStatusLabel(status int) string {
	switch status {
	case MonitorStatusDown:
		return "Down"
	case MonitorStatusUp:
		return "Up"
	case MonitorStatusPending:
		return "Pending"
	case MonitorStatusMaintenance:
		return "Maintenance"
	default:
		return "Unknown"
	}
}

// MonitorStatusColor maps a status code to its display color.
func MonitorStatusColor(status int) string {
	switch status {
	case MonitorStatusDown:
		return "#dc3545"
	case MonitorStatusUp:
		return "#28a745"
	case MonitorStatusPending:
		return "#ffc107"
	case MonitorStatusMaintenance:
		return "#1747f5"
	default:
		return "#6c757d"
	}
}
