package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coretelemetry "github.com/kilianp07/fleettrack/core/telemetry"
)

// PromSink records fleet events in Prometheus metrics.
type PromSink struct {
	reports     *prometheus.CounterVec
	assignments *prometheus.CounterVec
	battery     *prometheus.GaugeVec
}

// NewPromSink registers fleet metrics on the provided Prometheus registerer.
// If reg is nil, the default registerer is used. If the collectors are
// already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_reports_total",
		Help: "Total number of accepted location reports",
	}, []string{"cart", "source", "projection_updated"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_assignments_total",
		Help: "Total number of assignment requests",
	}, []string{"assigned"})
	battery := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_cart_battery_percent",
		Help: "Last reported battery percentage per cart",
	}, []string{"cart"})

	if err := reg.Register(reports); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			reports = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(battery); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			battery = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{reports: reports, assignments: assignments, battery: battery}, nil
}

// RecordReport increments the report counter and tracks the cart battery.
func (s *PromSink) RecordReport(ev coretelemetry.ReportEvent) error {
	s.reports.WithLabelValues(ev.CartIdentifier, ev.Source, strconv.FormatBool(ev.ProjectionUpdated)).Inc()
	if ev.ProjectionUpdated {
		s.battery.WithLabelValues(ev.CartIdentifier).Set(ev.Report.Battery)
	}
	return nil
}

// RecordAssignment increments the assignment counter.
func (s *PromSink) RecordAssignment(ev coretelemetry.AssignmentEvent) error {
	s.assignments.WithLabelValues(strconv.FormatBool(ev.Assigned)).Inc()
	return nil
}
