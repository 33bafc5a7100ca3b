package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/model"
)

type createCartRequest struct {
	Identifier string `json:"identifier"`
	Model      string `json:"model"`
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	if req.Identifier == "" || req.Model == "" {
		writeError(w, fmt.Errorf("%w: identifier and model are required", model.ErrInvalidInput))
		return
	}
	cart := fleet.NewCart(req.Identifier, req.Model)
	if err := s.directory.Create(r.Context(), cart); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

func (s *Server) listCarts(w http.ResponseWriter, r *http.Request) {
	f := fleet.Filter{Status: model.CartStatus(r.URL.Query().Get("status"))}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, f.Status))
		return
	}
	if v := r.URL.Query().Get("min_battery"); v != "" {
		mb, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: min_battery: %v", model.ErrInvalidInput, err))
			return
		}
		f.MinBattery = mb
	}
	carts, err := s.directory.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if carts == nil {
		carts = []model.Cart{}
	}
	writeJSON(w, http.StatusOK, carts)
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.directory.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) setCartStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.CartStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.directory.SetStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.directory.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) setCartBattery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Battery float64 `json:"battery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", model.ErrInvalidInput, err))
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.directory.SetBattery(r.Context(), id, req.Battery); err != nil {
		writeError(w, err)
		return
	}
	cart, err := s.directory.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
