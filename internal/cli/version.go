package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Bump package versions and changelogs from pending changesets",
	Long: `Apply the pending changesets.

For every package named by a changeset, in dependency order, this command:
  1. Rewrites the version in the package manifest
  2. Prepends a section to the package's CHANGELOG.md
  3. Runs the resolver's post-version commands

The consumed changesets are deleted afterwards. With --dry-run the new
versions are computed and logged but nothing is written.

This is not the binary's own version; use 'shipset --version' for that.`,
	Example: `  shipset version
  shipset version --dry-run`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	versionCmd.GroupID = GroupRelease
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	p, err := loadProject(true)
	if err != nil {
		return err
	}
	synth, err := p.synthesizer()
	if err != nil {
		return err
	}

	plan, err := p.run(synth).Version(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(plan) == 0 {
		fmt.Fprintln(out, "No changesets found, nothing to version.")
		return nil
	}
	verb := "Bumped"
	if dryRunFlag {
		verb = "Would bump"
	}
	names := plan.Names()
	width := nameWidth(names)
	for _, name := range names {
		bump := plan[name]
		fmt.Fprintf(out, "%s %s %s → %s\n", verb, padName(name, width), cYellow(bump.From), cGreen(bump.To))
	}
	return nil
}
