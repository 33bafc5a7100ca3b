package telemetry

import (
	"time"

	"github.com/kilianp07/fleettrack/core/model"
)

// Report sources.
const (
	SourceManual = "manual" // authenticated operator entry
	SourceDevice = "device" // unauthenticated reporting device
)

// ReportEvent describes one accepted location report.
type ReportEvent struct {
	Report            model.LocationReport
	CartIdentifier    string
	Source            string
	ProjectionUpdated bool
}

// AssignmentEvent describes one assignment request outcome.
type AssignmentEvent struct {
	CartID         string
	CartIdentifier string
	Battery        float64
	MinBattery     float64
	Assigned       bool
	Time           time.Time
}

// Sink records fleet events. Implementations must be safe for concurrent
// use; recording failures are reported but never block ingestion.
type Sink interface {
	RecordReport(ev ReportEvent) error
	RecordAssignment(ev AssignmentEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordReport(ReportEvent) error         { return nil }
func (NopSink) RecordAssignment(AssignmentEvent) error { return nil }
