package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ledger"
	"github.com/kilianp07/fleettrack/core/logger"
	"github.com/kilianp07/fleettrack/core/model"
	"github.com/kilianp07/fleettrack/core/telemetry"
	"github.com/kilianp07/fleettrack/internal/eventbus"
)

// ReportRequest carries one incoming location report. Exactly one of CartID
// (trusted callers) or Identifier (reporting devices) selects the cart.
// Latitude and longitude are mandatory; Battery and Timestamp are optional
// and default to the cart's last-known battery and the coordinator's
// receipt time.
type ReportRequest struct {
	CartID     string
	Identifier string
	Latitude   *float64
	Longitude  *float64
	Battery    *float64
	Timestamp  *time.Time
	Source     string
}

// atomicStore is implemented by stores that can append a report and apply
// its projection in one storage transaction. When the ledger provides it,
// the coordinator uses it so a crash cannot commit the ledger row without
// its projection effect.
type atomicStore interface {
	AppendAndProject(ctx context.Context, rep model.LocationReport, p fleet.Projection) (bool, error)
}

// Coordinator validates and applies location reports: every accepted report
// is appended to the ledger, and the cart projection is advanced only when
// the report is strictly newer than the projected state. Append and
// projection update happen under a per-cart lock so readers never observe
// one without the other.
type Coordinator struct {
	directory fleet.Directory
	ledger    ledger.Store
	sink      telemetry.Sink
	bus       eventbus.EventBus[telemetry.ReportEvent]
	log       logger.Logger
	locks     cmap.ConcurrentMap[string, *sync.Mutex]
	now       func() time.Time
}

// NewCoordinator wires a Coordinator. sink and bus may be nil.
func NewCoordinator(directory fleet.Directory, store ledger.Store, sink telemetry.Sink, bus eventbus.EventBus[telemetry.ReportEvent], log logger.Logger) *Coordinator {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Coordinator{
		directory: directory,
		ledger:    store,
		sink:      sink,
		bus:       bus,
		log:       log,
		locks:     cmap.New[*sync.Mutex](),
		now:       time.Now,
	}
}

// Report validates req, appends the report to the ledger and conditionally
// advances the cart projection. The returned report includes the defaulted
// battery and timestamp.
func (c *Coordinator) Report(ctx context.Context, req ReportRequest) (model.LocationReport, error) {
	cart, err := c.resolve(ctx, req)
	if err != nil {
		return model.LocationReport{}, err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return model.LocationReport{}, fmt.Errorf("%w: latitude and longitude are required", model.ErrInvalidInput)
	}
	if req.Battery != nil && !model.ValidBattery(*req.Battery) {
		return model.LocationReport{}, fmt.Errorf("%w: battery %v out of range", model.ErrInvalidInput, *req.Battery)
	}

	mu := c.lockFor(cart.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock: the defaulted battery must come from the
	// projection the append is serialized against.
	cart, err = c.directory.Get(ctx, cart.ID)
	if err != nil {
		return model.LocationReport{}, err
	}

	battery := cart.Battery
	if req.Battery != nil {
		battery = *req.Battery
	}
	ts := c.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	rep := model.LocationReport{
		ID:        uuid.NewString(),
		CartID:    cart.ID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Battery:   battery,
		Timestamp: ts,
	}

	// History is never discarded: the append is unconditional even when
	// the report is stale relative to the projection.
	proj := fleet.Projection{
		Latitude:  rep.Latitude,
		Longitude: rep.Longitude,
		Battery:   rep.Battery,
		Timestamp: rep.Timestamp,
	}
	var applied bool
	if tx, ok := c.ledger.(atomicStore); ok {
		applied, err = tx.AppendAndProject(ctx, rep, proj)
		if err != nil {
			return model.LocationReport{}, fmt.Errorf("record report: %w", err)
		}
	} else {
		if err := c.ledger.Append(ctx, rep); err != nil {
			return model.LocationReport{}, fmt.Errorf("append report: %w", err)
		}
		applied, err = c.directory.ApplyProjection(ctx, cart.ID, proj)
		if err != nil {
			return model.LocationReport{}, fmt.Errorf("apply projection: %w", err)
		}
	}

	ev := telemetry.ReportEvent{
		Report:            rep,
		CartIdentifier:    cart.Identifier,
		Source:            req.Source,
		ProjectionUpdated: applied,
	}
	if err := c.sink.RecordReport(ev); err != nil {
		c.log.Errorf("record report event: %v", err)
	}
	if c.bus != nil {
		c.bus.Publish(ev)
	}
	c.log.Debugw("report accepted", map[string]any{
		"cart":               cart.Identifier,
		"report_id":          rep.ID,
		"projection_updated": applied,
	})
	return rep, nil
}

// DeleteReport removes one report from the ledger and recomputes the cart
// projection from the remaining reports, falling back to provisioning
// defaults (no position, no report timestamp) when none remain.
func (c *Coordinator) DeleteReport(ctx context.Context, id string) error {
	rep, err := c.ledger.Delete(ctx, id)
	if err != nil {
		return err
	}

	mu := c.lockFor(rep.CartID)
	mu.Lock()
	defer mu.Unlock()

	latest, ok, err := c.ledger.Latest(ctx, rep.CartID)
	if err != nil {
		return fmt.Errorf("recompute projection: %w", err)
	}
	var p *fleet.Projection
	if ok {
		p = &fleet.Projection{
			Latitude:  latest.Latitude,
			Longitude: latest.Longitude,
			Battery:   latest.Battery,
			Timestamp: latest.Timestamp,
		}
	}
	if err := c.directory.OverwriteProjection(ctx, rep.CartID, p); err != nil {
		return fmt.Errorf("recompute projection: %w", err)
	}
	return nil
}

func (c *Coordinator) resolve(ctx context.Context, req ReportRequest) (model.Cart, error) {
	if req.CartID != "" {
		return c.directory.Get(ctx, req.CartID)
	}
	if req.Identifier != "" {
		return c.directory.GetByIdentifier(ctx, req.Identifier)
	}
	return model.Cart{}, fmt.Errorf("%w: cart reference is required", model.ErrInvalidInput)
}

func (c *Coordinator) lockFor(cartID string) *sync.Mutex {
	mu := &sync.Mutex{}
	if !c.locks.SetIfAbsent(cartID, mu) {
		mu, _ = c.locks.Get(cartID)
	}
	return mu
}
