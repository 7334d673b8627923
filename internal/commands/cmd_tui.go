package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/marker/internal/scanner"
	"github.com/colonyops/marker/internal/tui"
)

type TuiCmd struct {
	flags *Flags
}

// NewTuiCmd creates the interactive card browser command.
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{flags: flags}
}

// Run starts the card browser. A filesystem watcher keeps the index
// repaired while the browser is open; watcher setup failure degrades to
// a static index rather than aborting.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	watcher := scanner.NewWatcher(cmd.flags.Config.Root, cmd.flags.Service, log.Logger)
	if watcher != nil {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Warn().Err(err).Msg("close watcher")
			}
		}()
	}

	model := tui.New(cmd.flags.Service, cmd.flags.Config, log.Logger)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
