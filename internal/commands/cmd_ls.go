package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/marker/pkg/iojson"
)

type LsCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
	kind       string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List all annotations in the workspace",
		UsageText: "marker ls [--json] [--kind KIND]",
		Description: `Runs a full scan and displays a table of every discovered annotation
with its kind, location, author, and message.

Use --json for LLM-friendly output with one JSON object per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "kind",
				Usage:       "only show annotations of this kind (e.g. TODO)",
				Destination: &cmd.kind,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	if err := scanToCompletion(ctx, cmd.flags.Service); err != nil {
		return err
	}

	anns := cmd.flags.Service.All()
	if cmd.kind != "" {
		filtered := anns[:0]
		for _, a := range anns {
			if a.Kind == cmd.kind {
				filtered = append(filtered, a)
			}
		}
		anns = filtered
	}

	if len(anns) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No annotations found\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, a := range anns {
			if err := iojson.WriteLine(out, a); err != nil {
				return fmt.Errorf("encode annotation: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tLOCATION\tAUTHOR\tMESSAGE")

	for _, a := range anns {
		author := a.Author
		if author == "" {
			author = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\n", a.Kind, a.File, a.Line+1, author, a.Message)
	}

	return w.Flush()
}
