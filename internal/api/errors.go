package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/location"
	"github.com/nerrad567/smartbin-core/internal/state"
	"github.com/nerrad567/smartbin-core/internal/telemetry"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeInternal   = "internal_error"
	ErrCodeValidation = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

var (
	validationErrors = []error{
		state.ErrInvalidLevel,
		state.ErrInvalidStatus,
		state.ErrInvalidColor,
		state.ErrInvalidProximity,
		device.ErrInvalidName,
		device.ErrInvalidBinType,
		device.ErrInvalidMeta,
		location.ErrInvalidName,
		location.ErrInvalidMeta,
	}
	notFoundErrors = []error{
		location.ErrAreaNotFound,
		device.ErrDeviceNotFound,
		device.ErrBinNotFound,
		telemetry.ErrUnregistered,
	}
	conflictErrors = []error{
		location.ErrAreaExists,
		device.ErrDeviceExists,
		device.ErrBinExists,
		device.ErrCorrelationIDInUse,
	}
)

// statusForError maps a domain error to an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case isAny(err, validationErrors):
		return http.StatusBadRequest, ErrCodeValidation
	case isAny(err, notFoundErrors):
		return http.StatusNotFound, ErrCodeNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeDomainError writes the error response for err. Internal errors are
// logged and reported with the fallback message so storage details do not
// leak to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(fallback,
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeError(w, status, code, fallback)
		return
	}
	writeError(w, status, code, err.Error())
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
