// Package cli implements the shipset command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/ariel-frischer/shipset/internal/build"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/git"
	"github.com/ariel-frischer/shipset/internal/logging"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Command groups shown in help output
const (
	GroupSetup   = "setup"
	GroupRelease = "release"
)

var (
	debugFlag        bool
	dryRunFlag       bool
	changesetDirFlag string
	noColorFlag      bool
)

var rootCmd = &cobra.Command{
	Use:   "shipset",
	Short: "Version and publish packages across ecosystems from changesets",
	Long: `shipset turns changesets into releases.

A changeset is a small Markdown file under .changes/ naming the packages a
change affects and how much each should be bumped. shipset computes the
next version of every affected package, rewrites its manifest (Cargo.toml,
package.json, pyproject.toml, CMakeLists.txt), prepends a changelog section
that links each change to its commit and pull request, and publishes the
packages with dependencies ahead of their dependents.`,
	Example: `  # Set up the changeset directory for the current repository
  shipset init

  # Record a change
  shipset add --name fast-ingest --package core=minor:feat --summary "Stream ingest batches."

  # Preview, apply and publish
  shipset status
  shipset version
  shipset publish --release`,
	Version:       build.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureOutput()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupSetup, Title: "Setup:"},
		&cobra.Group{ID: GroupRelease, Title: "Release:"},
	)
	rootCmd.SetVersionTemplate("shipset {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	pf.BoolVar(&dryRunFlag, "dry-run", false, "Compute and log changes without writing files or running commands")
	pf.StringVar(&changesetDirFlag, "changeset-dir", "", "Changeset directory (default: discovered .changesets or .changes)")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

func configureOutput() {
	if noColorFlag {
		color.NoColor = true
	}
	logging.Configure(logging.ProfileRuntime,
		logging.WithDebug(debugFlag),
		logging.WithNoColor(noColorFlag),
	)
	git.SetDebugLogger(func(format string, args ...any) {
		log.Debug().Msgf(format, args...)
	})
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		shiperrors.PrintError(err)
	}
	return ExitCode(err)
}
