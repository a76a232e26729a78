package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/virasto/pkg/model"
)

func (s *Server) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseChecklistID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid checklist id")
			return
		}
		writeError(w, r, err, "Failed to load checklist")
		return
	}

	checklist, err := s.uc.GetChecklist(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "Failed to load checklist")
		return
	}

	writeJSON(w, http.StatusOK, checklist)
}
