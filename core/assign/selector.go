package assign

import (
	"context"
	"time"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/logger"
	"github.com/kilianp07/fleettrack/core/model"
	"github.com/kilianp07/fleettrack/core/telemetry"
)

// DefaultMinBattery is the battery floor used when the caller does not
// supply one.
const DefaultMinBattery = 10

// Selector picks one cart for a requesting user. Selection is read-only:
// the chosen cart is not reserved, and concurrent callers may be handed the
// same cart.
type Selector struct {
	directory fleet.Directory
	sink      telemetry.Sink
	log       logger.Logger
	now       func() time.Time
}

// NewSelector wires a Selector. sink may be nil.
func NewSelector(directory fleet.Directory, sink telemetry.Sink, log logger.Logger) *Selector {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Selector{directory: directory, sink: sink, log: log, now: time.Now}
}

// Assign returns the active cart with the highest battery strictly above
// minBattery. Ties are broken by the lexicographically smallest identifier,
// so the result is reproducible for a given fleet snapshot. The boolean is
// false when no cart is eligible; that is an empty result, not an error.
func (s *Selector) Assign(ctx context.Context, minBattery float64) (model.Cart, bool, error) {
	carts, err := s.directory.List(ctx, fleet.Filter{Status: model.StatusActive})
	if err != nil {
		return model.Cart{}, false, err
	}
	var best model.Cart
	found := false
	for _, c := range carts {
		if !c.Eligible(minBattery) {
			continue
		}
		if !found || better(c, best) {
			best = c
			found = true
		}
	}

	ev := telemetry.AssignmentEvent{
		MinBattery: minBattery,
		Assigned:   found,
		Time:       s.now(),
	}
	if found {
		ev.CartID = best.ID
		ev.CartIdentifier = best.Identifier
		ev.Battery = best.Battery
	}
	if err := s.sink.RecordAssignment(ev); err != nil {
		s.log.Errorf("record assignment event: %v", err)
	}
	if !found {
		s.log.Debugf("no cart eligible above battery floor %v", minBattery)
		return model.Cart{}, false, nil
	}
	return best, true, nil
}

func better(a, b model.Cart) bool {
	if a.Battery != b.Battery {
		return a.Battery > b.Battery
	}
	return a.Identifier < b.Identifier
}
