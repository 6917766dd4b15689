package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/photoshare/internal/domain"
)

// messageResponse is the envelope for errors and plain acknowledgements.
type messageResponse struct {
	Message string `json:"message"`
}

// internalErrorMessage is the only detail exposed for unexpected failures.
const internalErrorMessage = "internal server error"

var errInvalidBody = domain.NewDomainError(domain.ErrValidation, "invalid request body", "")

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes a {"message": ...} response.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps err to the error envelope. Domain failures of every kind
// are answered with 400 and their message; anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	if domain.IsDomainError(err) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeMessage(w, http.StatusInternalServerError, internalErrorMessage)
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return domain.NewDomainError(domain.ErrValidation, "request body too large", "")
	}
	return errInvalidBody
}
