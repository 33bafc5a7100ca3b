package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/fleettrack/api"
	"github.com/kilianp07/fleettrack/config"
	"github.com/kilianp07/fleettrack/core/assign"
	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/ledger"
	coretelemetry "github.com/kilianp07/fleettrack/core/telemetry"
	"github.com/kilianp07/fleettrack/infra/logger"
	"github.com/kilianp07/fleettrack/infra/mqtt"
	"github.com/kilianp07/fleettrack/infra/storage"
	"github.com/kilianp07/fleettrack/infra/telemetry"
	"github.com/kilianp07/fleettrack/internal/eventbus"
)

// Service orchestrates the fleet core, its stores and the transports.
type Service struct {
	Directory   fleet.Directory
	Ledger      ledger.Store
	Coordinator *ingest.Coordinator
	Selector    *assign.Selector

	cfg *config.Config
	bus eventbus.EventBus[coretelemetry.ReportEvent]
	log logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var directory fleet.Directory
	var store ledger.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		directory, store = db, db
	case "memory":
		mem := fleet.NewMemoryDirectory()
		directory, store = mem, ledger.NewMemoryStore(mem)
	default:
		return nil, fmt.Errorf("unknown storage backend %s", cfg.Storage.Backend)
	}

	var sinks []coretelemetry.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := telemetry.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := telemetry.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coretelemetry.Sink = coretelemetry.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = telemetry.NewMultiSink(sinks...)
	}

	bus := eventbus.New[coretelemetry.ReportEvent]()
	coordinator := ingest.NewCoordinator(directory, store, sink, bus, logger.New("ingest"))
	selector := assign.NewSelector(directory, sink, logger.New("assign"))

	return &Service{
		Directory:   directory,
		Ledger:      store,
		Coordinator: coordinator,
		Selector:    selector,
		cfg:         cfg,
		bus:         bus,
		log:         logg,
	}, nil
}

// Run starts the transports and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	srv := api.NewServer(s.Directory, s.Ledger, s.Coordinator, s.Selector, s.cfg.Assignment.MinBattery, logger.New("api"))
	httpSrv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: srv.Router(s.cfg.Auth.Token)}

	go s.auditEvents(ctx)

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := telemetry.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.MQTT.Enabled {
		ing, err := mqtt.NewIngestor(s.cfg.MQTT, s.Coordinator)
		if err != nil {
			return fmt.Errorf("mqtt ingestor: %w", err)
		}
		go func() {
			if err := ing.Start(ctx); err != nil {
				s.log.Errorf("mqtt ingestor: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// auditEvents drains the event bus and writes an audit line per accepted
// report.
func (s *Service) auditEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			s.log.Infof("report %s cart=%s source=%s projection_updated=%t",
				ev.Report.ID, ev.CartIdentifier, ev.Source, ev.ProjectionUpdated)
		}
	}
}

// Close releases the stores and the event bus.
func (s *Service) Close() error {
	s.bus.Close()
	return s.Ledger.Close()
}
