// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mandir-fund/internal/util"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 16 << 10

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Helper function to send JSON responses.
func respondWithJSON(w http.ResponseWriter, logger *zerolog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses. Persistence and other unexpected
// failures are logged and answered with a generic message.
func respondWithError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	body := ErrorResponse{Error: "Failed to process donation. Please try again."}

	var ve *util.ValidationError
	switch {
	case errors.As(err, &ve):
		statusCode = http.StatusUnprocessableEntity
		body = ErrorResponse{Error: "validation failed", Fields: ve.Fields}
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		body.Error = err.Error()
	case util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		body.Error = "Resource not found"
	case util.IsError(err, util.ErrInvalidState):
		statusCode = http.StatusConflict
		body.Error = err.Error()
	default:
		logger.Error().Err(err).Msg("Unhandled service error")
	}

	respondWithJSON(w, logger, statusCode, body)
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", util.ErrInvalidInput)
	}
	return nil
}
