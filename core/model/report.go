package model

import "time"

// LocationReport is one immutable position/battery observation for a cart.
// Reports are only ever appended and deleted, never mutated.
type LocationReport struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cart_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Battery   float64   `json:"battery"` // percentage at time of report
	Timestamp time.Time `json:"timestamp"`
}

// AnnotatedReport pairs a report with the identifying attributes of its cart,
// for fleet-wide listings.
type AnnotatedReport struct {
	LocationReport
	CartIdentifier string `json:"cart_identifier"`
	CartModel      string `json:"cart_model"`
}

// ValidBattery reports whether b is a usable battery percentage.
func ValidBattery(b float64) bool {
	return b >= 0 && b <= 100
}
