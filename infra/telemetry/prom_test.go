package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/fleettrack/core/model"
	coretelemetry "github.com/kilianp07/fleettrack/core/telemetry"
)

func TestPromSink_RecordReport(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coretelemetry.ReportEvent{
		Report:            model.LocationReport{ID: "r1", Battery: 75, Timestamp: time.Now()},
		CartIdentifier:    "CART-01",
		Source:            coretelemetry.SourceDevice,
		ProjectionUpdated: true,
	}
	if err := sink.RecordReport(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP fleet_reports_total Total number of accepted location reports
# TYPE fleet_reports_total counter
fleet_reports_total{cart="CART-01",projection_updated="true",source="device"} 1
`
	if err := testutil.CollectAndCompare(sink.reports, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	gauge := `
# HELP fleet_cart_battery_percent Last reported battery percentage per cart
# TYPE fleet_cart_battery_percent gauge
fleet_cart_battery_percent{cart="CART-01"} 75
`
	if err := testutil.CollectAndCompare(sink.battery, strings.NewReader(gauge)); err != nil {
		t.Errorf("unexpected battery gauge: %v", err)
	}
}

func TestPromSink_RecordAssignment(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordAssignment(coretelemetry.AssignmentEvent{Assigned: true, Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordAssignment(coretelemetry.AssignmentEvent{Assigned: false, Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP fleet_assignments_total Total number of assignment requests
# TYPE fleet_assignments_total counter
fleet_assignments_total{assigned="false"} 1
fleet_assignments_total{assigned="true"} 1
`
	if err := testutil.CollectAndCompare(sink.assignments, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second create should reuse collectors: %v", err)
	}
}
