package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kilianp07/fleettrack/core/model"
)

type assignmentResponse struct {
	Assigned bool        `json:"assigned"`
	Cart     *model.Cart `json:"cart,omitempty"`
}

// requestAssignment picks one eligible cart. The configured floor applies
// unless the request carries its own; an empty fleet is a normal empty
// result, not an error.
func (s *Server) requestAssignment(w http.ResponseWriter, r *http.Request) {
	minBattery := s.minBattery
	if v := r.URL.Query().Get("min_battery"); v != "" {
		mb, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: min_battery: %v", model.ErrInvalidInput, err))
			return
		}
		minBattery = mb
	}
	cart, ok, err := s.selector.Assign(r.Context(), minBattery)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := assignmentResponse{Assigned: ok}
	if ok {
		resp.Cart = &cart
	}
	writeJSON(w, http.StatusOK, resp)
}
