package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleettrack/core/model"
)

// Projection is the candidate current-state tuple derived from one
// LocationReport. ApplyProjection folds it into the cart with a
// max-by-timestamp rule, so applying projections in any order or more than
// once converges to the same cart state.
type Projection struct {
	Latitude  float64
	Longitude float64
	Battery   float64
	Timestamp time.Time
}

// Filter narrows List results. Zero values mean "no constraint".
// MinBattery is inclusive; the strict floor used for assignment is applied
// by the selector, not here.
type Filter struct {
	Status     model.CartStatus
	MinBattery float64
}

// Directory owns the set of carts and their projected state. Projected
// fields change only through ApplyProjection and OverwriteProjection; the
// Set* methods are explicit admin overrides.
type Directory interface {
	Create(ctx context.Context, cart model.Cart) error
	Get(ctx context.Context, id string) (model.Cart, error)
	GetByIdentifier(ctx context.Context, identifier string) (model.Cart, error)
	List(ctx context.Context, f Filter) ([]model.Cart, error)

	// ApplyProjection overwrites the cart's projected state only when
	// p.Timestamp is strictly greater than the currently projected
	// timestamp. It returns whether the projection was applied.
	ApplyProjection(ctx context.Context, cartID string, p Projection) (bool, error)

	// OverwriteProjection replaces the projected state unconditionally.
	// A nil projection clears position and report timestamp, used when the
	// last report of a cart has been deleted.
	OverwriteProjection(ctx context.Context, cartID string, p *Projection) error

	SetStatus(ctx context.Context, cartID string, status model.CartStatus) error
	SetBattery(ctx context.Context, cartID string, battery float64) error
}

// NewCart builds a cart with provisioning defaults: active, full battery,
// no position.
func NewCart(identifier, cartModel string) model.Cart {
	return model.Cart{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Model:      cartModel,
		Status:     model.StatusActive,
		Battery:    100,
	}
}

func matches(c model.Cart, f Filter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.MinBattery > 0 && c.Battery < f.MinBattery {
		return false
	}
	return true
}

func apply(c *model.Cart, p Projection) {
	c.Position = &model.Position{Latitude: p.Latitude, Longitude: p.Longitude}
	c.Battery = p.Battery
	c.LastReportAt = p.Timestamp
}
