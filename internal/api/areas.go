package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smartbin-core/internal/location"
)

// areaRequest is the body of POST and PUT /areas.
type areaRequest struct {
	Name *string       `json:"name"`
	Meta location.Meta `json:"meta"`
}

// handleListAreas returns all areas.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.coordinator.ListAreas(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list areas")
		return
	}
	if areas == nil {
		areas = []location.Area{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "count": len(areas)})
}

// handleCreateArea creates a new area. The slug is derived from the name.
func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil {
		writeBadRequest(w, "name is required")
		return
	}

	area, err := s.coordinator.CreateArea(r.Context(), *req.Name, req.Meta)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to create area")
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

// handleGetArea returns a single area by ID or slug.
func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	area, err := s.coordinator.GetArea(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get area")
		return
	}
	writeJSON(w, http.StatusOK, area)
}

// handleUpdateArea renames an area and/or merges its metadata.
func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")

	var req areaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.Meta == nil {
		writeBadRequest(w, "name or meta is required")
		return
	}

	ctx := r.Context()
	var area *location.Area
	var err error
	if req.Name != nil {
		if area, err = s.coordinator.RenameArea(ctx, ref, *req.Name); err != nil {
			s.writeDomainError(w, r, err, "failed to update area")
			return
		}
	}
	if req.Meta != nil {
		if area, err = s.coordinator.UpdateAreaMeta(ctx, ref, req.Meta); err != nil {
			s.writeDomainError(w, r, err, "failed to update area")
			return
		}
	}
	writeJSON(w, http.StatusOK, area)
}

// handleDeleteArea deletes an area with all its devices and bins.
//
// The cascade is not transactional. A partial failure still returns 200 with
// the counts of what was removed plus the collected errors.
func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.DeleteArea(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to delete area")
		return
	}
	writeJSON(w, http.StatusOK, cascadeResponse(result))
}

// handleListAreaDevices returns the devices owned by an area.
func (s *Server) handleListAreaDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.coordinator.ListAreaDevices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list area devices")
		return
	}
	writeDevices(w, devices)
}
