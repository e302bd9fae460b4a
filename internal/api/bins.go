package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListBins returns all bins with their fill category.
//
// Query parameters:
//   - device_id: filter by owning device
func (s *Server) handleListBins(w http.ResponseWriter, r *http.Request) {
	bins, err := s.coordinator.ListBins(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to list bins")
		return
	}
	views := newBinViews(bins)
	writeJSON(w, http.StatusOK, map[string]any{"bins": views, "count": len(views)})
}

// handleGetBin returns one bin with its fill category.
func (s *Server) handleGetBin(w http.ResponseWriter, r *http.Request) {
	b, err := s.coordinator.GetBin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get bin")
		return
	}
	writeJSON(w, http.StatusOK, newBinView(*b))
}

// handleDeleteBin detaches a bin from its device and deletes it.
func (s *Server) handleDeleteBin(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.DeleteBin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "failed to delete bin")
		return
	}
	writeJSON(w, http.StatusOK, cascadeResponse(result))
}
