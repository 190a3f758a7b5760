package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amparo-saude/amparo-core/internal/care"
	"github.com/amparo-saude/amparo-core/internal/device"
	"github.com/amparo-saude/amparo-core/internal/event"
	"github.com/amparo-saude/amparo-core/internal/pairing"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
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

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// respondError logs unexpected failures and maps the error onto an
// HTTP status. Domain sentinels are client mistakes and stay out of the
// error log.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if !isDomainSentinel(err) {
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	}
	writeDomainError(w, err)
}

// isDomainSentinel reports whether the error maps to a 4xx response.
func isDomainSentinel(err error) bool {
	for _, sentinel := range []error{
		device.ErrNotFound,
		device.ErrSerialRequired,
		care.ErrAssistidoNotFound,
		pairing.ErrNotLinked,
		pairing.ErrPairCodeRequired,
		pairing.ErrPairCodeInvalid,
		pairing.ErrAlreadyPaired,
		pairing.ErrNotPaired,
		event.ErrDeviceUnpaired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// writeDomainError maps domain sentinels onto HTTP statuses. Unmapped
// errors become a generic 500; the caller is expected to have logged
// them.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "device not found")
	case errors.Is(err, care.ErrAssistidoNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "assistido not found")
	case errors.Is(err, device.ErrSerialRequired):
		writeBadRequest(w, "serial is required")
	case errors.Is(err, pairing.ErrNotLinked):
		writeForbidden(w, "caregiver not linked to assistido")
	case errors.Is(err, pairing.ErrPairCodeRequired):
		writeBadRequest(w, "pair code required")
	case errors.Is(err, pairing.ErrPairCodeInvalid):
		writeForbidden(w, "pair code invalid or expired")
	case errors.Is(err, pairing.ErrAlreadyPaired):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device already paired")
	case errors.Is(err, pairing.ErrNotPaired):
		writeBadRequest(w, "device not paired")
	case errors.Is(err, event.ErrDeviceUnpaired):
		writeBadRequest(w, "device not paired")
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
