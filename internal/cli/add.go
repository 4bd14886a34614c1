package cli

import (
	"fmt"
	"strings"

	"github.com/ariel-frischer/shipset/internal/changeset"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/spf13/cobra"
)

var (
	addNameFlag     string
	addPackageFlags []string
	addSummaryFlag  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a changeset",
	Long: `Write a new changeset file to the changeset directory.

Each --package takes name=level[:tag], where level is major, minor or patch
and the optional tag selects the changelog group (see [tags] in the config).
The name is lowercased and characters that are unsafe in file names are
replaced by '-'.`,
	Example: `  shipset add --name fast-ingest --package core=minor:feat --summary "Stream ingest batches."
  shipset add --name "Fix CLI crash" -p cli=patch:fix -p core=patch -m "Fix a crash on empty input."`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.GroupID = GroupSetup
	addCmd.Flags().StringVar(&addNameFlag, "name", "", "Changeset name (required)")
	addCmd.Flags().StringArrayVarP(&addPackageFlags, "package", "p", nil, "Package bump as name=level[:tag] (repeatable)")
	addCmd.Flags().StringVarP(&addSummaryFlag, "summary", "m", "", "Summary shown in the changelog")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	p, err := loadProject(false)
	if err != nil {
		return err
	}

	name := changeset.SanitizeName(addNameFlag)
	if name == "" {
		return shiperrors.NewInvalidChangeset("", "--name is required")
	}
	if changeset.Exists(p.changesetDir, name) {
		return shiperrors.NewInvalidChangeset(p.changesetDir, fmt.Sprintf("changeset %q already exists", name))
	}
	if len(addPackageFlags) == 0 {
		return shiperrors.NewInvalidChangeset(name, "at least one --package is required")
	}

	cs := changeset.New(name, p.changesetDir)
	for _, raw := range addPackageFlags {
		entry, err := parsePackageFlag(raw)
		if err != nil {
			return err
		}
		if !p.cfg.HasPackage(entry.Name) {
			return shiperrors.NewInvalidChangeset(name, fmt.Sprintf("package %q is not declared in the configuration", entry.Name))
		}
		if _, dup := cs.Package(entry.Name); dup {
			return shiperrors.NewInvalidChangeset(name, fmt.Sprintf("package %q given more than once", entry.Name))
		}
		cs.AddPackage(entry.Name, entry.Level, entry.Tag)
	}
	cs.Summary = strings.TrimSpace(addSummaryFlag)

	if dryRunFlag {
		content, err := cs.Render()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Would write %s.md:\n\n%s", name, content)
		return nil
	}
	if err := cs.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cGreen("✓"), cs.Path)
	return nil
}

// parsePackageFlag parses one name=level[:tag] value.
func parsePackageFlag(raw string) (changeset.ChangePackage, error) {
	name, mark, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(mark) == "" {
		return changeset.ChangePackage{}, shiperrors.NewInvalidChangeset("", fmt.Sprintf("--package %q: expected name=level[:tag]", raw))
	}
	level, tag, err := changeset.ParseMark(mark)
	if err != nil {
		return changeset.ChangePackage{}, shiperrors.NewInvalidChangeset("", fmt.Sprintf("--package %q: %v", raw, err))
	}
	return changeset.ChangePackage{Name: name, Level: level, Tag: tag}, nil
}
