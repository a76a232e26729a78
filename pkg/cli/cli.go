package cli

import (
	"context"

	"github.com/m-mizutani/virasto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "virasto",
		Usage: "Assistant for public service questions and document review",
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			checklistCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
