package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/model"
)

// MemoryStore keeps reports in process memory. It backs the "memory"
// storage backend and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	reports   []model.LocationReport
	directory fleet.Directory // for annotating fleet-wide listings
}

// NewMemoryStore returns an empty in-memory ledger. The directory is used
// to annotate All results with cart attributes.
func NewMemoryStore(directory fleet.Directory) *MemoryStore {
	return &MemoryStore{directory: directory}
}

func (s *MemoryStore) Append(_ context.Context, rep model.LocationReport) error {
	s.mu.Lock()
	s.reports = append(s.reports, rep)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) History(_ context.Context, cartID string) ([]model.LocationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.LocationReport
	for _, r := range s.reports {
		if r.CartID == cartID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	return res, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]model.AnnotatedReport, error) {
	s.mu.RLock()
	reports := make([]model.LocationReport, len(s.reports))
	copy(reports, s.reports)
	s.mu.RUnlock()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Timestamp.After(reports[j].Timestamp) })
	res := make([]model.AnnotatedReport, 0, len(reports))
	carts := map[string]model.Cart{}
	for _, r := range reports {
		c, ok := carts[r.CartID]
		if !ok {
			var err error
			c, err = s.directory.Get(ctx, r.CartID)
			if err != nil {
				return nil, err
			}
			carts[r.CartID] = c
		}
		res = append(res, model.AnnotatedReport{
			LocationReport: r,
			CartIdentifier: c.Identifier,
			CartModel:      c.Model,
		})
	}
	return res, nil
}

func (s *MemoryStore) Latest(_ context.Context, cartID string) (model.LocationReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best model.LocationReport
	found := false
	for _, r := range s.reports {
		if r.CartID != cartID {
			continue
		}
		if !found || r.Timestamp.After(best.Timestamp) {
			best = r
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (model.LocationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return r, nil
		}
	}
	return model.LocationReport{}, model.ErrReportNotFound
}

func (s *MemoryStore) Close() error { return nil }
