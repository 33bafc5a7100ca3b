package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coretelemetry "github.com/kilianp07/fleettrack/core/telemetry"
	"github.com/kilianp07/fleettrack/infra/logger"
)

// InfluxSink writes accepted reports and assignment outcomes to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing telemetry backend never
// blocks ingestion.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coretelemetry.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coretelemetry.NopSink{}
	}
	return sink
}

// RecordReport writes the report as a cart_location point.
func (s *InfluxSink) RecordReport(ev coretelemetry.ReportEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cart_location").
		AddTag("cart", ev.CartIdentifier).
		AddTag("source", ev.Source).
		AddTag("projection_updated", strconv.FormatBool(ev.ProjectionUpdated)).
		AddField("latitude", ev.Report.Latitude).
		AddField("longitude", ev.Report.Longitude).
		AddField("battery", ev.Report.Battery).
		SetTime(ev.Report.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment writes the assignment outcome as a cart_assignment point.
func (s *InfluxSink) RecordAssignment(ev coretelemetry.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cart_assignment").
		AddTag("assigned", strconv.FormatBool(ev.Assigned)).
		AddTag("cart", ev.CartIdentifier).
		AddField("battery", ev.Battery).
		AddField("min_battery", ev.MinBattery).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
