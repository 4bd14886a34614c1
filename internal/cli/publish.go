package cli

import (
	"fmt"
	"os"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/github"
	"github.com/ariel-frischer/shipset/internal/workflow"
	"github.com/spf13/cobra"
)

var publishReleaseFlag bool

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish every package at its current version",
	Long: `Run each resolver's prepublish and publish commands for every configured
package, dependencies first. Private packages are skipped, and a package
whose version the registry pre-check reports as already published is
skipped as well.

With --release a GitHub release tagged <package>-v<version> is created for
every published package, using its changelog section as the release notes.
The repository comes from GITHUB_REPOSITORY or the origin remote and the
token from GITHUB_TOKEN. Releases that already exist are left alone.`,
	Example: `  shipset publish
  shipset publish --dry-run
  GITHUB_TOKEN=... shipset publish --release`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.GroupID = GroupRelease
	publishCmd.Flags().BoolVar(&publishReleaseFlag, "release", false, "Create a GitHub release for every published package")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	p, err := loadProject(false)
	if err != nil {
		return err
	}

	var opts workflow.PublishOptions
	if publishReleaseFlag {
		releaser, err := releaserFor(p)
		if err != nil {
			return err
		}
		opts.Releaser = releaser
	}

	results, err := p.run(nil).Publish(cmd.Context(), opts)
	printPublished(cmd, results)
	return err
}

func releaserFor(p *project) (*github.Client, error) {
	client, err := p.hostingClient()
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, shiperrors.NewInvalidConfig("", "--release needs GITHUB_REPOSITORY or an origin remote")
	}
	if os.Getenv(github.EnvToken) == "" {
		return nil, shiperrors.NewInvalidConfig("", "--release needs GITHUB_TOKEN")
	}
	return client, nil
}

func printPublished(cmd *cobra.Command, results []workflow.Published) {
	out := cmd.OutOrStdout()
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Package
	}
	width := nameWidth(names)
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintf(out, "%s %s\n", padName(r.Package, width), cDim("private, skipped"))
		case r.Release != "":
			fmt.Fprintf(out, "%s %s %s\n", padName(r.Package, width), cGreen(r.Version), cDim("release "+r.Release))
		default:
			fmt.Fprintf(out, "%s %s\n", padName(r.Package, width), cGreen(r.Version))
		}
	}
}
