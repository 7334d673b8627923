package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/marker/internal/scanner"
	"github.com/colonyops/marker/pkg/iojson"
)

type ScanCmd struct {
	flags *Flags

	// flags
	jsonOutput bool
}

// NewScanCmd creates a new scan command
func NewScanCmd(flags *Flags) *ScanCmd {
	return &ScanCmd{flags: flags}
}

// Register adds the scan command to the application
func (cmd *ScanCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "scan",
		Usage:     "Scan the workspace and print a summary",
		UsageText: "marker scan [--json]",
		Description: `Runs a full annotation scan to completion and prints per-kind counts.

Use --json for a machine-readable summary.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output summary as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

// scanSummary is the JSON output format for marker scan --json.
type scanSummary struct {
	Files       int            `json:"files_scanned"`
	Annotations int            `json:"annotations"`
	ByKind      map[string]int `json:"by_kind"`
}

func (cmd *ScanCmd) run(ctx context.Context, c *cli.Command) error {
	if err := scanToCompletion(ctx, cmd.flags.Service); err != nil {
		return err
	}

	svc := cmd.flags.Service
	summary := scanSummary{
		Files:       svc.Status().FilesProcessed,
		Annotations: svc.TotalCount(),
		ByKind:      map[string]int{},
	}
	for _, a := range svc.All() {
		summary.ByKind[a.Kind]++
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, summary)
	}

	fmt.Fprintf(out, "Scanned %d files, found %d annotations\n", summary.Files, summary.Annotations)
	for kind, n := range summary.ByKind {
		fmt.Fprintf(out, "  %-6s %d\n", kind, n)
	}

	return nil
}

// scanToCompletion runs a scan and blocks until the background phase
// finishes. Used by the headless commands; the TUI consumes batches
// incrementally instead.
func scanToCompletion(ctx context.Context, svc *scanner.Service) error {
	done := make(chan scanner.Status, 1)
	unsubscribe := svc.SubscribeStatus(func(st scanner.Status) {
		if st.State == scanner.StateComplete || st.State == scanner.StateFailed {
			select {
			case done <- st:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := svc.InitializeScan(ctx); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if !svc.InProgress() {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
