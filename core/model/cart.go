package model

import "time"

// CartStatus is the operational state of a cart.
type CartStatus string

const (
	StatusActive      CartStatus = "active"
	StatusInactive    CartStatus = "inactive"
	StatusMaintenance CartStatus = "maintenance"
)

// Valid reports whether the status is one of the known values.
func (s CartStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance:
		return true
	}
	return false
}

// Position is a geographic coordinate pair.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Cart represents one fleet vehicle and its projected current state.
// The projected fields (Position, Battery, LastReportAt) mirror the most
// recent LocationReport accepted for the cart; they are written only through
// the ingestion coordinator or the explicit admin overrides.
type Cart struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"` // human-assigned, unique across the fleet
	Model           string     `json:"model"`
	Status          CartStatus `json:"status"`
	Battery         float64    `json:"battery"` // percentage, 0-100
	Position        *Position  `json:"position,omitempty"`
	LastReportAt    time.Time  `json:"last_report_at,omitempty"`
	LastMaintenance time.Time  `json:"last_maintenance,omitempty"`
}

// Eligible reports whether the cart qualifies for assignment given the
// battery floor. The floor is exclusive: a cart sitting exactly at the
// minimum is not eligible.
func (c Cart) Eligible(minBattery float64) bool {
	return c.Status == StatusActive && c.Battery > minBattery
}
