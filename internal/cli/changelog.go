package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/changelog"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/workflow"
	"github.com/spf13/cobra"
)

var changelogPlainFlag bool

var changelogCmd = &cobra.Command{
	Use:   "changelog <package> [version]",
	Short: "Show a package's changelog section",
	Long: `Show one version section of a package's CHANGELOG.md.

By default the newest section is shown. Pass a version to see that one;
the v prefix is optional.`,
	Example: `  shipset changelog core            # Newest section
  shipset changelog core 1.2.0      # Section for 1.2.0
  shipset changelog core v1.2.0     # Same
  shipset changelog core --plain    # Markdown without colors`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runChangelog,
}

func init() {
	changelogCmd.GroupID = GroupRelease
	changelogCmd.Flags().BoolVar(&changelogPlainFlag, "plain", false, "Plain Markdown output (no colors)")
	rootCmd.AddCommand(changelogCmd)
}

func runChangelog(cmd *cobra.Command, args []string) error {
	p, err := loadProject(false)
	if err != nil {
		return err
	}
	pkg, ok := p.cfg.Package(args[0])
	if !ok {
		return shiperrors.NewInvalidConfig(p.cfg.Path(), fmt.Sprintf("unknown package %q", args[0]))
	}

	path := filepath.Join(p.root, filepath.FromSlash(pkg.Path), workflow.ChangelogFile)
	doc, err := changelog.ReadDocument(path)
	if err != nil {
		return err
	}

	var section *changelog.Changelog
	if len(args) == 2 {
		section, err = doc.Version(args[1])
	} else {
		section, err = doc.Latest()
	}
	if err != nil {
		var notFound *changelog.VersionNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Version %q not found.\n\nAvailable versions:\n", args[1])
			for _, v := range notFound.AvailableVersions {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", v)
			}
			return NewExitError(ExitInvalidInput)
		}
		return err
	}

	opts := changelog.FormatOptions{Plain: changelogPlainFlag || noColorFlag}
	return changelog.FormatTerminal(section, cmd.OutOrStdout(), opts)
}
