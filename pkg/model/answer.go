package model

import "encoding/json"

// Citation is a web source reported by provider grounding metadata.
type Citation struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// AnswerResult is the normalized single-shot answer.
type AnswerResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

const NoResponseAnswer = "No response generated."

type StreamEventKind int

const (
	StreamEventText StreamEventKind = iota + 1
	StreamEventCitations
	StreamEventDone
)

func (k StreamEventKind) String() string {
	switch k {
	case StreamEventText:
		return "text"
	case StreamEventCitations:
		return "citations"
	case StreamEventDone:
		return "done"
	default:
		return "unknown"
	}
}

// StreamEvent is one client-facing event of a streamed answer. Exactly one of
// Text or Citations is meaningful, depending on Kind.
type StreamEvent struct {
	Kind      StreamEventKind
	Text      string
	Citations []Citation
}

func NewTextEvent(text string) *StreamEvent {
	return &StreamEvent{Kind: StreamEventText, Text: text}
}

func NewCitationsEvent(citations []Citation) *StreamEvent {
	return &StreamEvent{Kind: StreamEventCitations, Citations: citations}
}

func NewDoneEvent() *StreamEvent {
	return &StreamEvent{Kind: StreamEventDone}
}

// MarshalJSON encodes the event payload as sent in an SSE data frame.
// The done event has no JSON payload on the wire; it is encoded as
// {"done":true} for other consumers.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case StreamEventText:
		return json.Marshal(struct {
			Text string `json:"text"`
		}{Text: e.Text})
	case StreamEventCitations:
		citations := e.Citations
		if citations == nil {
			citations = []Citation{}
		}
		return json.Marshal(struct {
			Citations []Citation `json:"citations"`
		}{Citations: citations})
	default:
		return json.Marshal(struct {
			Done bool `json:"done"`
		}{Done: true})
	}
}
