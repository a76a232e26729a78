package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
)

const sseDone = "[DONE]"

// eventWriter writes server-sent events, flushing after every frame.
type eventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) send(ev *model.StreamEvent) error {
	payload := []byte(sseDone)
	if ev.Kind != model.StreamEventDone {
		data, err := json.Marshal(ev)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal stream event", goerr.V("kind", ev.Kind.String()))
		}
		payload = data
	}

	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return goerr.Wrap(err, "failed to write stream event")
	}
	if err := e.rc.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush stream event")
	}
	return nil
}
