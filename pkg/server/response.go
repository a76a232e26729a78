package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with status and sensible headers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError logs err and answers with the status of its category. fallback
// is the message used for uncategorized failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := logging.From(r.Context())

	switch {
	case errors.Is(err, model.ErrInvalidInput):
		logger.Warn("invalid request", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, model.ErrExtraction):
		logger.Warn("failed to read upload", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "Failed to read file")
	case errors.Is(err, model.ErrEmptyDocument):
		logger.Warn("upload has no text", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "Could not extract text from file")
	case errors.Is(err, model.ErrChecklistNotFound):
		logger.Info("checklist not found", "error", err)
		writeErrorMessage(w, http.StatusNotFound, "Checklist not found")
	case errors.Is(err, model.ErrConfiguration):
		logger.Error("provider is not configured", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "AI provider is not configured")
	default:
		logger.Error("request failed", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, fallback)
	}
}
