package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/smartbin-core/internal/audit"
)

// handleListAuditLogs returns paginated lifecycle audit entries.
//
// Query parameters:
//   - action: create or delete
//   - entity_type: area, device or bin
//   - entity_id: a specific entity
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	var ok bool
	if filter.Limit, ok = intQuery(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intQuery(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intQuery parses an optional integer query parameter. An empty value is 0.
func intQuery(w http.ResponseWriter, v, name string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeBadRequest(w, name+" must be an integer")
		return 0, false
	}
	return n, true
}
