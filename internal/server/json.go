package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/snonux/ankiform/internal/ankiconnect"
	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/processor"
	"codeberg.org/snonux/ankiform/internal/submit"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an application error to an HTTP status.
func statusFor(err error) int {
	var (
		remote   *ankiconnect.RemoteApplicationError
		conn     *ankiconnect.ConnectivityError
		timeout  *ankiconnect.TimeoutError
		protocol *ankiconnect.ProtocolViolationError
		encoding *media.EncodingError
	)
	switch {
	case errors.Is(err, submit.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, processor.ErrInvalidSettings),
		errors.Is(err, processor.ErrEmptyWord),
		errors.Is(err, assist.ErrNoWord):
		return http.StatusBadRequest
	case errors.As(err, &encoding):
		return http.StatusUnprocessableEntity
	case errors.As(err, &remote):
		return http.StatusUnprocessableEntity
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &conn), errors.As(err, &protocol):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(err.Error()))
}
