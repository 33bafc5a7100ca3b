package ledger

import (
	"context"

	"github.com/kilianp07/fleettrack/core/model"
)

// Store persists the append-only sequence of location reports. Reports are
// never updated in place; the only mutations are Append and Delete.
type Store interface {
	Append(ctx context.Context, rep model.LocationReport) error

	// History returns the cart's reports ordered by timestamp descending.
	History(ctx context.Context, cartID string) ([]model.LocationReport, error)

	// All returns every report across the fleet, newest first, annotated
	// with the owning cart's identifier and model.
	All(ctx context.Context) ([]model.AnnotatedReport, error)

	// Latest returns the report with the greatest timestamp for the cart,
	// or false when the cart has no reports.
	Latest(ctx context.Context, cartID string) (model.LocationReport, bool, error)

	// Delete removes one report and returns it, so the caller can repair
	// the cart projection it may have fed.
	Delete(ctx context.Context, id string) (model.LocationReport, error)

	Close() error
}
