package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-replay/internal/broadcast"
	"github.com/ukydev/fleet-replay/internal/simulation"
)

// SimulationHandler serves the simulation query and command API.
type SimulationHandler struct {
	sim *simulation.Service
	hub *broadcast.Hub
}

// NewSimulationHandler creates a handler. hub may be nil when no streaming is offered.
func NewSimulationHandler(sim *simulation.Service, hub *broadcast.Hub) *SimulationHandler {
	return &SimulationHandler{sim: sim, hub: hub}
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports liveness.
func (h *SimulationHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// Start restarts the replay from the first trip of every class.
func (h *SimulationHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.sim.ResetAll()
	writeJSON(w, http.StatusOK, messageResponse{Status: "started", Message: "Simulation started"})
}

// Stop rewinds the replay; the next tick starts over.
func (h *SimulationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.sim.ResetAll()
	writeJSON(w, http.StatusOK, messageResponse{Status: "stopped", Message: "Simulation stopped"})
}

// Reset rewinds every class and clears speed multipliers.
func (h *SimulationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.sim.ResetAll()
	writeJSON(w, http.StatusOK, messageResponse{Status: "reset", Message: "Simulation reset"})
}

// Statistics returns per-class catalog totals.
func (h *SimulationHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sim.Statistics())
}

// Trips lists the trips of the vehicle's class, optionally limited by ?limit=.
func (h *SimulationHandler) Trips(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = &n
	}
	trips, err := h.sim.Trips(r.Context(), chi.URLParam(r, "vin"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// CurrentPosition returns the trip currently replayed for the vehicle's class.
func (h *SimulationHandler) CurrentPosition(w http.ResponseWriter, r *http.Request) {
	trip, err := h.sim.CurrentTrip(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// CurrentPath returns the waypoint labels of the current trip.
func (h *SimulationHandler) CurrentPath(w http.ResponseWriter, r *http.Request) {
	path, err := h.sim.CurrentPath(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, path)
}

// Snapshot computes the vehicle's telemetry without advancing the replay.
func (h *SimulationHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sim.Snapshot(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Recommendations returns the battery and speed advisory of the vehicle.
func (h *SimulationHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sim.Advise(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type speedResponse struct {
	VIN             string  `json:"vin"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
}

// SetSpeed stores ?multiplier= for the vehicle. Out of range values are clamped.
func (h *SimulationHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	vin := chi.URLParam(r, "vin")
	raw := r.URL.Query().Get("multiplier")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		http.Error(w, "multiplier must be a number", http.StatusBadRequest)
		return
	}
	stored, err := h.sim.SetSpeedMultiplier(r.Context(), vin, value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, speedResponse{VIN: vin, SpeedMultiplier: stored})
}

type vinValidationResponse struct {
	VIN   string `json:"vin"`
	Valid bool   `json:"valid"`
}

// ValidateVIN reports whether a VIN is well formed and still free.
func (h *SimulationHandler) ValidateVIN(w http.ResponseWriter, r *http.Request) {
	vin := chi.URLParam(r, "vin")
	ok, err := h.sim.ValidateVIN(r.Context(), vin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vinValidationResponse{VIN: vin, Valid: ok})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, simulation.ErrNotFound), errors.Is(err, simulation.ErrNoTrips):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.WithError(err).Error("Simulation request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
