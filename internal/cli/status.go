package cli

import (
	"fmt"

	"github.com/ariel-frischer/shipset/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changesets and the versions they produce",
	Long: `Show the pending changesets and, for every package they name, the
current version and the version 'shipset version' would produce.

Packages are listed in publish order: dependencies before dependents.
Configured release assets are listed below their package. Nothing is
written.`,
	Example: `  shipset status
  shipset status --changeset-dir path/to/.changes`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.GroupID = GroupRelease
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := loadProject(true)
	if err != nil {
		return err
	}
	plan, order, err := p.run(nil).Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printBranch(cmd, p)
	fmt.Fprintf(out, "%s pending changeset(s)\n\n", cBold(len(p.changesets)))
	if len(plan) == 0 {
		fmt.Fprintln(out, "No packages will be bumped.")
		return nil
	}

	fmt.Fprintln(out, "Packages to bump:")
	width := nameWidth(plan.Names())
	for _, np := range order {
		bump, ok := plan[np.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %s %s → %s %s\n",
			padName(np.Name, width), cYellow(bump.From), cGreen(bump.To), cDim("("+bump.Level.String()+")"))
		if err := printAssets(cmd, p.root, np.Config); err != nil {
			return err
		}
	}
	return nil
}

func printAssets(cmd *cobra.Command, root string, pkg config.PackageConfig) error {
	assets, err := pkg.ResolveAssets(root)
	if err != nil {
		return err
	}
	for _, a := range assets {
		fmt.Fprintf(cmd.OutOrStdout(), "    %s %s %s\n", cDim("asset"), a.Name, cDim(a.Path))
	}
	return nil
}

// printBranch reports the checked-out branch and whether the configured
// release branch exists yet. Outside a repository nothing is printed.
func printBranch(cmd *cobra.Command, p *project) {
	if p.repo == nil {
		return
	}
	branch, err := p.repo.CurrentBranch()
	if err != nil {
		log.Debug().Err(err).Msg("no current branch")
		return
	}
	if branch == "" {
		branch = "(detached)"
	}
	release := p.cfg.Branches.Release
	exists, err := p.repo.BranchExists(release)
	if err != nil {
		log.Debug().Err(err).Str("branch", release).Msg("checking release branch")
	}
	state := "not created"
	if exists {
		state = "exists"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "On branch %s %s\n", cBold(branch),
		cDim(fmt.Sprintf("(base %s, release %s %s)", p.cfg.Branches.Base, release, state)))
}
