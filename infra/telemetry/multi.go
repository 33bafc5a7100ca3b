package telemetry

import (
	"errors"

	coretelemetry "github.com/kilianp07/fleettrack/core/telemetry"
)

// MultiSink fans events out to several sinks.
type MultiSink struct {
	sinks []coretelemetry.Sink
}

// NewMultiSink combines the given sinks into one.
func NewMultiSink(sinks ...coretelemetry.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordReport(ev coretelemetry.ReportEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordReport(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAssignment(ev coretelemetry.AssignmentEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordAssignment(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
