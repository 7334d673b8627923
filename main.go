package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/marker/internal/commands"
	"github.com/colonyops/marker/internal/core/blame"
	"github.com/colonyops/marker/internal/core/config"
	"github.com/colonyops/marker/internal/core/styles"
	"github.com/colonyops/marker/internal/core/workspace"
	"github.com/colonyops/marker/internal/scanner"
	"github.com/colonyops/marker/pkg/executil"
	"github.com/colonyops/marker/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "marker",
		Usage:     "Swipe through your codebase's TODO comments",
		UsageText: "marker [global options] command [command options]",
		Description: `Marker scans a workspace for inline annotation comments (TODO, FIXME,
HACK, ...) and presents them one card at a time. Jump to an annotation
in your editor or delete it from the source without leaving the browser.

Run 'marker' with no arguments to open the interactive card browser.
Run 'marker ls' for a scriptable listing of every annotation.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("MARKER_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("MARKER_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("MARKER_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "root",
				Aliases:     []string{"C"},
				Usage:       "workspace root to scan",
				Sources:     cli.EnvVars("MARKER_ROOT"),
				Value:       ".",
				Destination: &flags.Root,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			root, err := filepath.Abs(flags.Root)
			if err != nil {
				return ctx, fmt.Errorf("resolve root: %w", err)
			}

			cfg, err := config.Load(flags.ConfigPath, root)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}

			if cfg.Debug {
				log.Logger = log.Logger.Level(zerolog.DebugLevel)
			}

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			ws, err := workspace.NewDir(root)
			if err != nil {
				return ctx, err
			}

			var resolver scanner.AuthorResolver
			if cfg.AuthorLookupEnabled() {
				resolver = blame.NewResolver(cfg.GitPath, &executil.RealExecutor{})
			}

			flags.Config = cfg
			flags.Service = scanner.NewService(cfg, ws, resolver, log.Logger)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if flags.Service != nil {
				flags.Service.Close()
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags)

	app = commands.NewScanCmd(flags).Register(app)
	app = commands.NewLsCmd(flags).Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'marker --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
