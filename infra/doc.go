// Package infra contains technical adapters such as the sqlite store, the
// MQTT ingestor and telemetry exporters. These packages should depend only
// on the interfaces defined in the core packages.
package infra
