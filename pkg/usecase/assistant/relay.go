package assistant

import (
	"iter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"google.golang.org/genai"
)

// relay reshapes provider stream chunks into client events. It pulls one
// chunk at a time and hands every derived event to the consumer before
// asking for the next chunk. A clean end of the upstream yields exactly one
// done event; an upstream error is yielded as the last element and no done
// event follows.
func relay(upstream iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[*model.StreamEvent, error] {
	return func(yield func(*model.StreamEvent, error) bool) {
		for chunk, err := range upstream {
			if err != nil {
				yield(nil, goerr.Wrap(err, "provider stream aborted"))
				return
			}

			candidate := firstCandidate(chunk)
			if text := candidateText(candidate, ""); text != "" {
				if !yield(model.NewTextEvent(text), nil) {
					return
				}
			}

			if citations := extractCitations(candidate); len(citations) > 0 {
				if !yield(model.NewCitationsEvent(citations), nil) {
					return
				}
			}
		}

		yield(model.NewDoneEvent(), nil)
	}
}
