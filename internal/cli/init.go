package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/resolver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// defaultChangesetDir is created by init when --changeset-dir is not given.
const defaultChangesetDir = ".changes"

var (
	initFormatFlag string
	initForceFlag  bool
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create the changeset directory and configuration",
	Long: `Create .changes/ with a configuration listing every package found in the
repository, default changelog tags and default publish commands.

Packages are discovered with each ecosystem's workspace rules: Cargo
workspaces, npm/pnpm workspaces, uv workspaces (or packages/, libs/, apps/)
and CMake add_subdirectory() projects.

An existing configuration is left unchanged unless --force is given.`,
	Example: `  shipset init
  shipset init path/to/repo
  shipset init --format json
  shipset init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.GroupID = GroupSetup
	initCmd.Flags().StringVar(&initFormatFlag, "format", "toml", "Config file format (toml or json)")
	initCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return shiperrors.NewIO(root, err)
	}
	if initFormatFlag != "toml" && initFormatFlag != "json" {
		return shiperrors.NewInvalidConfig("", fmt.Sprintf("unsupported format %q (expected toml or json)", initFormatFlag))
	}

	dir := filepath.Join(root, defaultChangesetDir)
	if changesetDirFlag != "" {
		if dir, err = filepath.Abs(changesetDirFlag); err != nil {
			return shiperrors.NewIO(changesetDirFlag, err)
		}
	}
	if existing, err := config.FindConfigFile(dir); err == nil && !initForceFlag {
		return shiperrors.NewInvalidConfig(existing, "configuration already exists (use --force to overwrite)")
	}

	cfg, err := discoverPackages(root)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config."+initFormatFlag)
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	if err := writeReadme(dir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", cGreen("✓"), path)
	names := make([]string, 0, len(cfg.Packages))
	for _, np := range cfg.PackageList() {
		names = append(names, np.Name)
	}
	width := nameWidth(names)
	for _, np := range cfg.PackageList() {
		fmt.Fprintf(out, "  %s %s %s\n", padName(np.Name, width), np.Config.Resolver, cDim(np.Config.Path))
	}
	if len(names) == 0 {
		fmt.Fprintln(out, cYellow("No packages found; add them under [packages] in the config."))
	}
	return nil
}

// discoverPackages builds a configuration from every resolver's workspace
// discovery. A name found by more than one ecosystem keeps the first.
func discoverPackages(root string) (*config.Config, error) {
	cfg := &config.Config{
		Branches:  config.BranchesConfig{Base: "main", Release: "release"},
		Tags:      config.DefaultTags(),
		Packages:  make(map[string]config.PackageConfig),
		Resolvers: make(map[string]config.ResolverConfig),
	}

	for _, kind := range config.ResolverKinds() {
		r, err := resolver.New(kind)
		if err != nil {
			return nil, err
		}
		pkgs, err := r.ResolveAll(root)
		if err != nil {
			return nil, err
		}
		added := 0
		for _, pkg := range pkgs {
			if existing, dup := cfg.Packages[pkg.Name]; dup {
				log.Warn().Str("package", pkg.Name).Str("path", pkg.Path).
					Str("kept", existing.Path).Msg("duplicate package name, skipping")
				continue
			}
			cfg.Packages[pkg.Name] = config.PackageConfig{Path: pkg.Path, Resolver: kind}
			added++
		}
		if added > 0 {
			cfg.Resolvers[string(kind)] = config.DefaultResolverConfig(kind)
		}
		log.Debug().Str("resolver", string(kind)).Int("packages", added).Msg("discovered packages")
	}
	return cfg, nil
}

func writeReadme(dir string) error {
	path := filepath.Join(dir, "README.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(config.GetChangesetReadme()), 0o644); err != nil {
		return shiperrors.NewIO(path, err)
	}
	return nil
}
