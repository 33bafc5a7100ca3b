package config

import "fmt"

// HTTPConfig holds the REST API listener settings.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// AuthConfig carries the bearer token guarding protected API routes. An
// empty token disables the guard.
type AuthConfig struct {
	Token string `json:"token"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend selects the store type: "sqlite" or "memory".
	Backend string `json:"backend"`
	// Path is the database file location for the sqlite backend.
	Path string `json:"path"`
}

func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		c.Path = "fleet.db"
	}
}

func (c StorageConfig) Validate() error {
	if c.Backend != "sqlite" && c.Backend != "memory" {
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	return nil
}

// MetricsConfig enables the telemetry sinks.
type MetricsConfig struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}

// AssignmentConfig tunes the cart selector.
type AssignmentConfig struct {
	// MinBattery is the exclusive battery floor for eligibility.
	MinBattery float64 `json:"min_battery"`
}

func (c *AssignmentConfig) SetDefaults() {
	if c.MinBattery == 0 {
		c.MinBattery = 10
	}
}

func (c AssignmentConfig) Validate() error {
	if c.MinBattery < 0 || c.MinBattery > 100 {
		return fmt.Errorf("min_battery must be within [0,100], got %v", c.MinBattery)
	}
	return nil
}
