package assistant

import (
	"context"
	"iter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
)

// Ask answers a conversation in one provider call.
func (u *UseCase) Ask(ctx context.Context, conv *model.Conversation) (*model.AnswerResult, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	resp, err := u.gemini.GenerateContent(ctx, toContents(conv), u.generateConfig(ModeChatSingle))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ask provider", goerr.V("history_length", len(conv.History)))
	}

	result := normalizeResponse(resp)
	logging.From(ctx).Debug("answer generated",
		"answer_length", len(result.Answer),
		"citations", len(result.Citations),
	)
	return result, nil
}

// AskStream starts a streamed answer. Configuration errors are returned
// before any event is produced; later provider failures surface as the
// error element of the sequence.
func (u *UseCase) AskStream(ctx context.Context, conv *model.Conversation) (iter.Seq2[*model.StreamEvent, error], error) {
	upstream, err := u.gemini.GenerateContentStream(ctx, toContents(conv), u.generateConfig(ModeChatStream))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start provider stream", goerr.V("history_length", len(conv.History)))
	}

	return relay(upstream), nil
}
