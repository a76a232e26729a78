package server

import (
	"encoding/json"
	"iter"
	"net/http"

	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
)

type askRequest struct {
	Query   string          `json:"query"`
	History []model.Message `json:"history"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.From(r.Context()).Warn("failed to decode ask request", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "No data provided")
		return
	}

	conv, err := model.NewConversation(req.History, req.Query)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "No query provided")
		return
	}

	if s.askMode == AskModeSingle {
		s.answerSingle(w, r, conv)
		return
	}
	s.answerStream(w, r, conv)
}

func (s *Server) answerSingle(w http.ResponseWriter, r *http.Request, conv *model.Conversation) {
	result, err := s.uc.Ask(r.Context(), conv)
	if err != nil {
		writeError(w, r, err, "AI request failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// answerStream relays events as they arrive. A failure before the first
// event is answered with a JSON error; once streaming has started a broken
// provider stream closes the response without the [DONE] marker.
func (s *Server) answerStream(w http.ResponseWriter, r *http.Request, conv *model.Conversation) {
	ctx := r.Context()
	logger := logging.From(ctx)

	events, err := s.uc.AskStream(ctx, conv)
	if err != nil {
		writeError(w, r, err, "AI request failed")
		return
	}

	next, stop := iter.Pull2(events)
	defer stop()

	ev, err, ok := next()
	if ok && err != nil {
		writeError(w, r, err, "AI request failed")
		return
	}

	out := newEventWriter(w)
	count := 0
	for ; ok; ev, err, ok = next() {
		if err != nil {
			logger.Error("stream aborted", "error", err, "events", count)
			return
		}
		if err := out.send(ev); err != nil {
			logger.Warn("client went away", "error", err, "events", count)
			return
		}
		count++
	}

	logger.Debug("stream completed", "events", count)
}
