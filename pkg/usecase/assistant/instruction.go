package assistant

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/m-mizutani/virasto/pkg/utils/logging"
)

const DefaultSystemInstruction = `You are a helpful assistant that explains public services, permits and bureaucratic procedures in plain language.
Check facts against current official sources using web search and cite them.
If you are not sure about something, say so and point to the authority that can confirm it.`

// LoadSystemInstruction reads the system instruction once at startup. A
// missing or empty file is not fatal: the default instruction is used and a
// warning is logged.
func LoadSystemInstruction(ctx context.Context, path string) string {
	logger := logging.From(ctx)
	if path == "" {
		logger.Warn("system prompt path is not set, using default instruction")
		return DefaultSystemInstruction
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("system prompt file not found, using default instruction", "path", path)
		} else {
			logger.Warn("failed to read system prompt, using default instruction", "path", path, "error", err)
		}
		return DefaultSystemInstruction
	}

	instruction := strings.TrimSpace(string(data))
	if instruction == "" {
		logger.Warn("system prompt file is empty, using default instruction", "path", path)
		return DefaultSystemInstruction
	}

	logger.Info("loaded system prompt", "path", path, "bytes", len(instruction))
	return instruction
}
