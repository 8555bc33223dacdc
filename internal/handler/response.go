package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/sr-companion/internal/apperror"
)

// envelope is the uniform response shape every API endpoint uses. Success
// responses carry data and optionally a message; failures carry error and
// code. The frontend switches on success and dispatches on code.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// respond sends a success envelope.
func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondMessage sends a success envelope with a message and no data.
func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

// writeError translates a domain error into an HTTP status and the
// failure envelope. Unknown errors stay opaque: their details go to logs,
// never to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusBadGateway
		case errors.Is(err, apperror.ErrConnExhausted), errors.Is(err, apperror.ErrSync):
			status = http.StatusInternalServerError
		}
		// Server-side failures keep their cause out of the envelope but
		// in the logs.
		if status >= http.StatusInternalServerError {
			if cause := appErr.Cause(); cause != nil {
				slog.Error("request failed",
					slog.String("code", appErr.Code),
					slog.String("cause", cause.Error()),
				)
			}
		}
		writeJSON(w, status, envelope{Error: appErr.Message, Code: appErr.Code})
		return
	}

	slog.Error("unhandled error reached the HTTP boundary", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, envelope{
		Error: "an internal error occurred",
		Code:  "INTERNAL_ERROR",
	})
}

// decodeBody parses a JSON request body into dst. allowEmpty lets an
// empty body through as the zero value for endpoints whose service layer
// does its own emptiness check with a more specific error code.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return apperror.ValidationFailed("body", "INVALID_BODY", "request body must be valid JSON")
}
