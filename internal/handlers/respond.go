package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"expense-ledger/internal/auth"
	"expense-ledger/internal/log"
	"expense-ledger/internal/models"
	"expense-ledger/internal/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps an error onto a status code. Server-side failures are logged
// and their details kept out of the response.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "password"})
	case errors.Is(err, storage.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		writeMessage(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrUnavailable):
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Store unavailable", log.FieldError, err)
		writeMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeMessage(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}
