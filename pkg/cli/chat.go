package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/usecase/assistant"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	var flags []cli.Flag
	flags = append(flags, loggingFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)
	flags = append(flags, assistantFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Ask questions interactively in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Chat session started. Type 'exit' to quit.\n")

			session := &chatSession{uc: uc, w: w}
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				query := strings.TrimSpace(line)
				if query == "exit" || query == "quit" {
					break
				}
				if query == "" {
					continue
				}

				if err := session.send(ctx, query); err != nil {
					fmt.Fprintf(w, "\nerror: %s\n", err.Error())
				}
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

// chatSession keeps the conversation history of the terminal client. A turn
// is added to the history only when the answer stream completed.
type chatSession struct {
	uc      *assistant.UseCase
	w       io.Writer
	history []model.Message
}

func (s *chatSession) send(ctx context.Context, query string) error {
	conv, err := model.NewConversation(s.history, query)
	if err != nil {
		return err
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.w))
	spin.Suffix = " thinking..."
	spin.Start()
	stopSpin := func() {
		if spin.Active() {
			spin.Stop()
		}
	}
	defer stopSpin()

	events, err := s.uc.AskStream(ctx, conv)
	if err != nil {
		return err
	}

	var (
		answer    strings.Builder
		citations []model.Citation
	)
	for ev, err := range events {
		stopSpin()
		if err != nil {
			return err
		}

		switch ev.Kind {
		case model.StreamEventText:
			answer.WriteString(ev.Text)
			fmt.Fprint(s.w, ev.Text)
		case model.StreamEventCitations:
			citations = append(citations, ev.Citations...)
		case model.StreamEventDone:
			fmt.Fprintln(s.w)
			printCitations(s.w, citations)
			s.history = append(s.history,
				model.NewMessage(string(model.RoleUser), query),
				model.NewMessage(string(model.RoleModel), answer.String()),
			)
		}
	}

	return nil
}

func printCitations(w io.Writer, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}

	fmt.Fprintf(w, "\nSources:\n")
	seen := map[string]bool{}
	for _, c := range citations {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		fmt.Fprintf(w, "  - %s <%s>\n", c.Source, c.URL)
	}
}
