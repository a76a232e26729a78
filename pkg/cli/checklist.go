package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/repository"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func checklistCommand() *cli.Command {
	return &cli.Command{
		Name:  "checklist",
		Usage: "Inspect stored checklists",
		Commands: []*cli.Command{
			checklistGetCommand(),
		},
	}
}

func checklistGetCommand() *cli.Command {
	var (
		cfg    config
		format string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (yaml, json)",
			Value:       "yaml",
			Destination: &format,
		},
	}
	flags = append(flags, loggingFlags(&cfg)...)
	flags = append(flags, storeFlags(&cfg)...)

	return &cli.Command{
		Name:      "get",
		Usage:     "Print a stored checklist",
		ArgsUsage: "<checklist-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			if c.Args().Len() != 1 {
				return goerr.New("exactly one checklist id is required")
			}
			id, err := model.ParseChecklistID(c.Args().First())
			if err != nil {
				return err
			}

			store, cleanup, err := cfg.newChecklistStore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			if store == nil {
				return goerr.New("checklist store is disabled, set --store")
			}

			return printChecklist(ctx, c.Root().Writer, store, id, format)
		},
	}
}

type checklistOutput struct {
	ID    model.ChecklistID `json:"id" yaml:"id"`
	Items []string          `json:"items" yaml:"items"`
}

func printChecklist(ctx context.Context, w io.Writer, store repository.ChecklistStore, id model.ChecklistID, format string) error {
	items, err := store.GetChecklist(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get checklist", goerr.V("id", id))
	}
	out := checklistOutput{ID: id, Items: items}

	switch format {
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return goerr.Wrap(err, "failed to marshal checklist")
		}
		fmt.Fprintf(w, "%s\n", string(data))

	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return goerr.Wrap(err, "failed to encode checklist")
		}
		if err := enc.Close(); err != nil {
			return goerr.Wrap(err, "failed to flush checklist")
		}

	default:
		return goerr.New("unknown output format", goerr.V("format", format))
	}

	return nil
}
