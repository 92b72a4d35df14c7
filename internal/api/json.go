package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chronicle/internal/apperr"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 10 << 20

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

// statusOf maps an engine error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidPath), errors.Is(err, apperr.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Client errors carry the error text;
// server errors are logged and answered with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := statusOf(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
	case http.StatusBadGateway:
		logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("upstream failure"))
	default:
		logger.Debug(op+" rejected", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody(err.Error()))
	}
}

// decodeJSON reads a JSON body into dst and validates it. An empty body
// decodes to the zero request, which is then validated as such.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst validation.Validatable) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", apperr.ErrInvalidQuery)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidQuery)
	}
	return nil
}
