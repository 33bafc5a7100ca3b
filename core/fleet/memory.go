package fleet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/kilianp07/fleettrack/core/model"
)

// MemoryDirectory keeps the fleet in process memory. Each cart carries its
// own lock so the conditional projection update is an atomic
// read-modify-write scoped to one cart.
type MemoryDirectory struct {
	carts cmap.ConcurrentMap[string, *cartEntry]
	byIdn cmap.ConcurrentMap[string, string] // identifier -> cart id
}

type cartEntry struct {
	mu   sync.Mutex
	cart model.Cart
}

// NewMemoryDirectory returns an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		carts: cmap.New[*cartEntry](),
		byIdn: cmap.New[string](),
	}
}

func (d *MemoryDirectory) Create(_ context.Context, cart model.Cart) error {
	if cart.ID == "" || cart.Identifier == "" {
		return fmt.Errorf("%w: cart id and identifier are required", model.ErrInvalidInput)
	}
	if !d.byIdn.SetIfAbsent(cart.Identifier, cart.ID) {
		return fmt.Errorf("%w: identifier %q already in use", model.ErrInvalidInput, cart.Identifier)
	}
	d.carts.Set(cart.ID, &cartEntry{cart: cart})
	return nil
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (model.Cart, error) {
	e, ok := d.carts.Get(id)
	if !ok {
		return model.Cart{}, model.ErrCartNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart, nil
}

func (d *MemoryDirectory) GetByIdentifier(ctx context.Context, identifier string) (model.Cart, error) {
	id, ok := d.byIdn.Get(identifier)
	if !ok {
		return model.Cart{}, model.ErrCartNotFound
	}
	return d.Get(ctx, id)
}

func (d *MemoryDirectory) List(_ context.Context, f Filter) ([]model.Cart, error) {
	res := make([]model.Cart, 0, d.carts.Count())
	for item := range d.carts.IterBuffered() {
		item.Val.mu.Lock()
		c := item.Val.cart
		item.Val.mu.Unlock()
		if matches(c, f) {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Identifier < res[j].Identifier })
	return res, nil
}

func (d *MemoryDirectory) ApplyProjection(_ context.Context, cartID string, p Projection) (bool, error) {
	e, ok := d.carts.Get(cartID)
	if !ok {
		return false, model.ErrCartNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cart.LastReportAt.Before(p.Timestamp) {
		return false, nil
	}
	apply(&e.cart, p)
	return true, nil
}

func (d *MemoryDirectory) OverwriteProjection(_ context.Context, cartID string, p *Projection) error {
	e, ok := d.carts.Get(cartID)
	if !ok {
		return model.ErrCartNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p == nil {
		e.cart.Position = nil
		e.cart.LastReportAt = time.Time{}
		return nil
	}
	apply(&e.cart, *p)
	return nil
}

func (d *MemoryDirectory) SetStatus(_ context.Context, cartID string, status model.CartStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}
	e, ok := d.carts.Get(cartID)
	if !ok {
		return model.ErrCartNotFound
	}
	e.mu.Lock()
	e.cart.Status = status
	e.mu.Unlock()
	return nil
}

func (d *MemoryDirectory) SetBattery(_ context.Context, cartID string, battery float64) error {
	if !model.ValidBattery(battery) {
		return fmt.Errorf("%w: battery %v out of range", model.ErrInvalidInput, battery)
	}
	e, ok := d.carts.Get(cartID)
	if !ok {
		return model.ErrCartNotFound
	}
	e.mu.Lock()
	e.cart.Battery = battery
	e.mu.Unlock()
	return nil
}
