package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleettrack/core/assign"
	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/ledger"
	"github.com/kilianp07/fleettrack/core/logger"
)

// Server exposes the fleet core over HTTP. The device report endpoint is
// public; everything else sits behind the bearer-token guard.
type Server struct {
	directory   fleet.Directory
	ledger      ledger.Store
	coordinator *ingest.Coordinator
	selector    *assign.Selector
	minBattery  float64
	log         logger.Logger
}

// NewServer wires the handler set. minBattery is the configured assignment
// floor used when a request does not carry its own.
func NewServer(directory fleet.Directory, store ledger.Store, coordinator *ingest.Coordinator, selector *assign.Selector, minBattery float64, log logger.Logger) *Server {
	return &Server{
		directory:   directory,
		ledger:      store,
		coordinator: coordinator,
		selector:    selector,
		minBattery:  minBattery,
		log:         log,
	}
}

// Router builds the route table. token guards the protected routes; an
// empty token disables the guard.
func (s *Server) Router(token string) http.Handler {
	r := mux.NewRouter()

	// Public device ingestion, identifier + position only.
	r.HandleFunc("/api/reports/device", s.createDeviceReport).Methods(http.MethodPost)

	p := r.PathPrefix("/api").Subrouter()
	p.Use(requireToken(token))
	p.HandleFunc("/reports", s.createReport).Methods(http.MethodPost)
	p.HandleFunc("/reports", s.listReports).Methods(http.MethodGet)
	p.HandleFunc("/reports/cart/{cartId}", s.cartHistory).Methods(http.MethodGet)
	p.HandleFunc("/reports/{id}", s.deleteReport).Methods(http.MethodDelete)
	p.HandleFunc("/carts", s.createCart).Methods(http.MethodPost)
	p.HandleFunc("/carts", s.listCarts).Methods(http.MethodGet)
	p.HandleFunc("/carts/{id}", s.getCart).Methods(http.MethodGet)
	p.HandleFunc("/carts/{id}/status", s.setCartStatus).Methods(http.MethodPut)
	p.HandleFunc("/carts/{id}/battery", s.setCartBattery).Methods(http.MethodPut)
	p.HandleFunc("/assignments", s.requestAssignment).Methods(http.MethodPost)

	return r
}
