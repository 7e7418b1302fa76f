package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"contas/internal/core"
)

// envelope is the JSON wrapper around every API response.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Total: total})
}

func respondMessage(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func respondError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), envelope{Success: false, Error: err.Error()})
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrGroupConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrMissingPaymentDate),
		errors.Is(err, core.ErrUnexpectedPaymentDate),
		errors.Is(err, core.ErrInvalidInstallment),
		errors.Is(err, core.ErrGroupTooSmall),
		errors.Is(err, core.ErrCountOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
