package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/telemetry"
	"github.com/kilianp07/fleettrack/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Topic      string `json:"topic"` // subscription filter, identifier as last level
	QoS        byte   `json:"qos"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "fleettrack-ingestor"
	}
	if c.Topic == "" {
		c.Topic = "fleet/location/+"
	}
}

// devicePayload is the JSON shape reporting devices publish.
type devicePayload struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Battery   *float64   `json:"battery,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Ingestor subscribes to device location topics and feeds each message to
// the ingestion coordinator in device mode. The cart identifier is the last
// topic level, so devices are trusted only for the identifier they publish
// under, same as the public HTTP endpoint.
type Ingestor struct {
	cli   paho.Client
	cfg   Config
	coord *ingest.Coordinator
	log   logger.Logger
}

// NewIngestor connects to the broker and returns a ready-to-start Ingestor.
func NewIngestor(cfg Config, coord *ingest.Coordinator) (*Ingestor, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	cli := paho.NewClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", tok.Error())
	}
	return &Ingestor{cli: cli, cfg: cfg, coord: coord, log: logger.New("mqtt-ingestor")}, nil
}

// Start subscribes to the location topic and blocks until ctx is canceled.
func (i *Ingestor) Start(ctx context.Context) error {
	if tok := i.cli.Subscribe(i.cfg.Topic, i.cfg.QoS, i.onMessage); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", i.cfg.Topic, tok.Error())
	}
	i.log.Infof("subscribed to %s", i.cfg.Topic)
	<-ctx.Done()
	i.cli.Disconnect(250)
	return nil
}

func (i *Ingestor) onMessage(_ paho.Client, msg paho.Message) {
	parts := strings.Split(msg.Topic(), "/")
	identifier := parts[len(parts)-1]
	var p devicePayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		i.log.Errorf("decode payload on %s: %v", msg.Topic(), err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := i.coord.Report(ctx, ingest.ReportRequest{
		Identifier: identifier,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		Battery:    p.Battery,
		Timestamp:  p.Timestamp,
		Source:     telemetry.SourceDevice,
	}); err != nil {
		i.log.Errorf("report from %s rejected: %v", identifier, err)
	}
}

// NewClientOptions builds paho options from the config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
