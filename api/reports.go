package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/model"
	"github.com/kilianp07/fleettrack/core/telemetry"
)

// reportRequest is the JSON body for report creation. The manual endpoint
// accepts either cart_id or identifier; the device endpoint only the
// identifier.
type reportRequest struct {
	CartID     string     `json:"cart_id,omitempty"`
	Identifier string     `json:"identifier,omitempty"`
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Battery    *float64   `json:"battery,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	rep, err := s.coordinator.Report(r.Context(), ingest.ReportRequest{
		CartID:     req.CartID,
		Identifier: req.Identifier,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Battery:    req.Battery,
		Timestamp:  req.Timestamp,
		Source:     telemetry.SourceManual,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// createDeviceReport is the public entry for reporting devices: no token,
// cart selected by external identifier only.
func (s *Server) createDeviceReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if req.Identifier == "" {
		writeError(w, fmt.Errorf("%w: identifier is required", model.ErrInvalidInput))
		return
	}
	rep, err := s.coordinator.Report(r.Context(), ingest.ReportRequest{
		Identifier: req.Identifier,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Battery:    req.Battery,
		Timestamp:  req.Timestamp,
		Source:     telemetry.SourceDevice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.ledger.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []model.AnnotatedReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) cartHistory(w http.ResponseWriter, r *http.Request) {
	cartID := mux.Vars(r)["cartId"]
	if _, err := s.directory.Get(r.Context(), cartID); err != nil {
		writeError(w, err)
		return
	}
	reports, err := s.ledger.History(r.Context(), cartID)
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []model.LocationReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.coordinator.DeleteReport(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.log.Infof("report %s deleted", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
