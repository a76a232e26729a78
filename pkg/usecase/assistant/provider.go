package assistant

import (
	"github.com/m-mizutani/virasto/pkg/model"
	"google.golang.org/genai"
)

// Mode selects how the provider is invoked.
type Mode string

const (
	ModeChatStream Mode = "chat-stream"
	ModeChatSingle Mode = "chat-single"
	ModeAnalyze    Mode = "analyze"
)

// generateConfig builds the provider request options for a mode. Every mode
// carries the system instruction and Google Search grounding.
func (u *UseCase) generateConfig(mode Mode) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(u.instruction, ""),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	switch mode {
	case ModeChatStream, ModeChatSingle:
		config.ResponseModalities = []string{string(genai.ModalityText)}
	case ModeAnalyze:
		config.ResponseMIMEType = "application/json"
	}

	return config
}

// toContents converts a conversation to provider contents, oldest first.
// Messages with no text are dropped since the provider rejects empty parts.
func toContents(conv *model.Conversation) []*genai.Content {
	msgs := conv.Messages()
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Content == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(msg.Role)))
	}
	return contents
}
