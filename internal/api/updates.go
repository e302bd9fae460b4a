package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smartbin-core/internal/state"
)

// Manual state updates. They go through the same updater as MQTT telemetry
// with HTTP origin, so rejected input comes back as a 400 instead of being
// dropped.

type levelRequest struct {
	BinID        string     `json:"bin_id"`
	LevelPercent *float64   `json:"level_percent"`
	Timestamp    *time.Time `json:"timestamp"`
}

type statusRequest struct {
	Status       string     `json:"status"`
	ClientIDMQTT string     `json:"client_id_mqtt"`
	Timestamp    *time.Time `json:"timestamp"`
}

type colorRequest struct {
	Classification string     `json:"classification"`
	Confidence     float64    `json:"confidence"`
	RGB            []int      `json:"rgb"`
	Timestamp      *time.Time `json:"timestamp"`
}

type proximityRequest struct {
	DistanceCM *float64   `json:"distance_cm"`
	Trigger    bool       `json:"trigger"`
	Timestamp  *time.Time `json:"timestamp"`
}

// handleUpdateBinLevel sets a bin's fill level.
func (s *Server) handleUpdateBinLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BinID == "" || req.LevelPercent == nil {
		writeBadRequest(w, "bin_id and level_percent are required")
		return
	}

	ctx := r.Context()
	err := s.updater.UpdateLevel(ctx, state.OriginHTTP, state.LevelUpdate{
		BinID:        req.BinID,
		LevelPercent: req.LevelPercent,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update bin level")
		return
	}

	b, err := s.coordinator.GetBin(ctx, req.BinID)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get bin")
		return
	}
	writeJSON(w, http.StatusOK, newBinView(*b))
}

// handleUpdateDeviceStatus sets a device's connectivity status and
// optionally binds its correlation id.
func (s *Server) handleUpdateDeviceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" && req.ClientIDMQTT == "" {
		writeBadRequest(w, "status or client_id_mqtt is required")
		return
	}

	id := chi.URLParam(r, "id")
	err := s.updater.UpdateStatus(r.Context(), state.OriginHTTP, state.StatusUpdate{
		DeviceID:     id,
		Status:       req.Status,
		ClientIDMQTT: req.ClientIDMQTT,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update device status")
		return
	}
	s.writeDevice(w, r, id)
}

// handleUpdateDeviceColor replaces a device's latest color observation.
func (s *Server) handleUpdateDeviceColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	err := s.updater.UpdateColor(r.Context(), state.OriginHTTP, state.ColorUpdate{
		DeviceID:       id,
		Classification: req.Classification,
		Confidence:     req.Confidence,
		RGB:            req.RGB,
		Timestamp:      req.Timestamp,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update device color")
		return
	}
	s.writeDevice(w, r, id)
}

// handleUpdateDeviceProximity replaces a device's latest proximity reading.
func (s *Server) handleUpdateDeviceProximity(w http.ResponseWriter, r *http.Request) {
	var req proximityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	err := s.updater.UpdateProximity(r.Context(), state.OriginHTTP, state.ProximityUpdate{
		DeviceID:   id,
		DistanceCM: req.DistanceCM,
		Trigger:    req.Trigger,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update device proximity")
		return
	}
	s.writeDevice(w, r, id)
}

// writeDevice responds with the current state of a device after an update.
func (s *Server) writeDevice(w http.ResponseWriter, r *http.Request, id string) {
	d, _, err := s.coordinator.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
