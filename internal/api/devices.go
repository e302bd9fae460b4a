package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/lifecycle"
)

// createDeviceRequest is the body of POST /devices.
type createDeviceRequest struct {
	Name         string      `json:"name"`
	AreaID       string      `json:"area_id"`
	Model        string      `json:"model"`
	ClientIDMQTT string      `json:"client_id_mqtt"`
	Meta         device.Meta `json:"meta"`
}

// updateDeviceRequest is the body of PUT /devices/{id}.
type updateDeviceRequest struct {
	Name *string     `json:"name"`
	Meta device.Meta `json:"meta"`
}

// handleListDevices returns all devices.
//
// Query parameters:
//   - area_id: filter by owning area (ID or slug)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.coordinator.ListDevices(r.Context(), r.URL.Query().Get("area_id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list devices")
		return
	}
	writeDevices(w, devices)
}

// handleCreateDevice creates a device and one bin per compartment type.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AreaID == "" {
		writeBadRequest(w, "area_id is required")
		return
	}

	d, bins, err := s.coordinator.CreateDevice(r.Context(), lifecycle.NewDevice{
		Name:         req.Name,
		AreaRef:      req.AreaID,
		Model:        req.Model,
		ClientIDMQTT: req.ClientIDMQTT,
		Meta:         req.Meta,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "failed to create device")
		return
	}
	writeJSON(w, http.StatusCreated, deviceView{Device: d, BinDetails: newBinViews(bins)})
}

// handleGetDevice returns a single device with its bins.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, bins, err := s.coordinator.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, deviceView{Device: d, BinDetails: newBinViews(bins)})
}

// handleUpdateDevice renames a device and/or merges its metadata.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.Meta == nil {
		writeBadRequest(w, "name or meta is required")
		return
	}

	ctx := r.Context()
	var d *device.Device
	var err error
	if req.Name != nil {
		if d, err = s.coordinator.RenameDevice(ctx, id, *req.Name); err != nil {
			s.writeDomainError(w, r, err, "failed to update device")
			return
		}
	}
	if req.Meta != nil {
		if d, err = s.coordinator.UpdateDeviceMeta(ctx, id, req.Meta); err != nil {
			s.writeDomainError(w, r, err, "failed to update device")
			return
		}
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice deletes a device and its bins and detaches it from its
// area.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.DeleteDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to delete device")
		return
	}
	writeJSON(w, http.StatusOK, cascadeResponse(result))
}

// handleListDeviceBins returns the bins of one device.
func (s *Server) handleListDeviceBins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	// Distinguish an unknown device from one without bins.
	if _, _, err := s.coordinator.GetDevice(ctx, id); err != nil {
		s.writeDomainError(w, r, err, "failed to list device bins")
		return
	}
	bins, err := s.coordinator.ListBins(ctx, id)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list device bins")
		return
	}
	views := newBinViews(bins)
	writeJSON(w, http.StatusOK, map[string]any{"bins": views, "count": len(views)})
}
