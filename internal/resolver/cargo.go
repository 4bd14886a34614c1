package resolver

import (
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	cargoManifest = "Cargo.toml"
	cargoLock     = "Cargo.lock"
)

type cargoToml struct {
	Package           *cargoPackage              `toml:"package"`
	Workspace         *cargoWorkspace            `toml:"workspace"`
	Dependencies      map[string]any             `toml:"dependencies"`
	DevDependencies   map[string]any             `toml:"dev-dependencies"`
	BuildDependencies map[string]any             `toml:"build-dependencies"`
	Target            map[string]cargoTargetDeps `toml:"target"`
}

type cargoPackage struct {
	Name string `toml:"name"`
	// Version is a string or {workspace = true}.
	Version any `toml:"version"`
	// Publish is false, or a list of allowed registries.
	Publish any `toml:"publish"`
}

type cargoWorkspace struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
	Package struct {
		Version string `toml:"version"`
	} `toml:"package"`
}

type cargoTargetDeps struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// CargoResolver handles Rust crates described by Cargo.toml.
type CargoResolver struct {
	publisher
}

func (r *CargoResolver) Kind() config.ResolverKind { return config.ResolverRust }

func readCargoToml(path string) (*cargoToml, []byte, error) {
	data, err := readManifest(path)
	if err != nil {
		return nil, nil, err
	}
	var manifest cargoToml
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, nil, shiperrors.NewParseError(path, err)
	}
	return &manifest, data, nil
}

// inheritsVersion reports whether the crate takes its version from the workspace.
func (p *cargoPackage) inheritsVersion() bool {
	m, ok := p.Version.(map[string]any)
	if !ok {
		return false
	}
	inherit, _ := m["workspace"].(bool)
	return inherit
}

func (p *cargoPackage) private() bool {
	switch v := p.Publish.(type) {
	case bool:
		return !v
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func (r *CargoResolver) Resolve(root string, pkg config.PackageConfig) (*ResolvedPackage, error) {
	path := filepath.Join(packageDir(root, pkg.Path), cargoManifest)
	manifest, _, err := readCargoToml(path)
	if err != nil {
		return nil, err
	}
	if manifest.Package == nil {
		return nil, shiperrors.NewInvalidConfig(path, "missing [package] table")
	}
	if manifest.Package.Name == "" {
		return nil, shiperrors.NewInvalidConfig(path, "missing package name")
	}

	resolved := &ResolvedPackage{
		Name:    manifest.Package.Name,
		Version: "0.0.0",
		Path:    cleanPackagePath(pkg.Path),
		Private: manifest.Package.private(),
	}
	switch {
	case manifest.Package.inheritsVersion():
		ws, err := cargoWorkspaceVersion(root)
		if err != nil {
			return nil, err
		}
		resolved.Version = ws
		resolved.VersionSource = cargoManifest
	default:
		if v, ok := manifest.Package.Version.(string); ok && v != "" {
			resolved.Version = v
		}
	}
	return resolved, nil
}

func cargoWorkspaceVersion(root string) (string, error) {
	path := filepath.Join(root, cargoManifest)
	manifest, _, err := readCargoToml(path)
	if err != nil {
		return "", err
	}
	if manifest.Workspace == nil || manifest.Workspace.Package.Version == "" {
		return "", shiperrors.NewInvalidConfig(path, "crate inherits its version but [workspace.package] has none")
	}
	return manifest.Workspace.Package.Version, nil
}

func (r *CargoResolver) ResolveAll(root string) ([]*ResolvedPackage, error) {
	path := filepath.Join(root, cargoManifest)
	if !fileExists(path) {
		log.Warn().Str("root", root).Msg("Cargo.toml not found, no rust packages discovered")
		return nil, nil
	}
	manifest, _, err := readCargoToml(path)
	if err != nil {
		return nil, err
	}

	var dirs []string
	if manifest.Package != nil {
		dirs = append(dirs, ".")
	}
	if manifest.Workspace != nil {
		dirs = append(dirs, expandMembers(root, manifest.Workspace.Members, manifest.Workspace.Exclude, cargoManifest)...)
	}
	return resolveDirs(r, root, dirs), nil
}

func (r *CargoResolver) Bump(root string, pkg *ResolvedPackage, newVersion string, dryRun bool) error {
	if dryRun {
		log.Info().Str("package", pkg.Name).Str("from", pkg.Version).Str("to", newVersion).Msg("dry run: would bump Cargo.toml")
		return nil
	}

	path := filepath.Join(packageDir(root, pkg.Path), cargoManifest)
	manifest, data, err := readCargoToml(path)
	if err != nil {
		return err
	}
	if manifest.Package == nil {
		return shiperrors.NewInvalidConfig(path, "missing [package] table")
	}

	target, table := path, "package"
	if manifest.Package.inheritsVersion() {
		target, table = filepath.Join(root, cargoManifest), "workspace.package"
		current, err := cargoWorkspaceVersion(root)
		if err != nil {
			return err
		}
		// Crates sharing [workspace.package] are bumped to one version; the
		// first of them writes it.
		if current == newVersion {
			log.Debug().Str("package", pkg.Name).Str("file", target).Msg("workspace version already bumped")
			return r.bumpLock(root, pkg, newVersion)
		}
		if data, err = readManifest(target); err != nil {
			return err
		}
	}

	updated, ok := setTOMLString(data, table, "version", newVersion)
	if !ok {
		return shiperrors.NewParseErrorReason(target, "no version key in ["+table+"]")
	}
	if err := writeManifest(target, updated); err != nil {
		return err
	}
	log.Info().Str("package", pkg.Name).Str("version", newVersion).Str("file", target).Msg("bumped manifest")

	return r.bumpLock(root, pkg, newVersion)
}

// bumpLock updates the crate's entry in the nearest Cargo.lock, if any.
func (r *CargoResolver) bumpLock(root string, pkg *ResolvedPackage, newVersion string) error {
	for _, dir := range []string{packageDir(root, pkg.Path), root} {
		lock := filepath.Join(dir, cargoLock)
		if !fileExists(lock) {
			continue
		}
		data, err := readManifest(lock)
		if err != nil {
			return err
		}
		updated, ok := setCargoLockVersion(data, pkg.Name, pkg.Version, newVersion)
		if !ok {
			log.Debug().Str("package", pkg.Name).Str("file", lock).Msg("crate not found in lock file")
			return nil
		}
		return writeManifest(lock, updated)
	}
	return nil
}

func (r *CargoResolver) SortPackages(root string, packages []config.NamedPackage) ([]config.NamedPackage, error) {
	return sortByDependencies(packages, config.ResolverRust, nil, func(np config.NamedPackage) (dependencyInfo, error) {
		path := filepath.Join(packageDir(root, np.Config.Path), cargoManifest)
		manifest, _, err := readCargoToml(path)
		if err != nil {
			return dependencyInfo{}, shiperrors.WithPackage(err, np.Name)
		}
		info := dependencyInfo{deps: make(map[string]bool)}
		if manifest.Package != nil {
			info.name = manifest.Package.Name
		}
		tables := []map[string]any{manifest.Dependencies, manifest.DevDependencies, manifest.BuildDependencies}
		for _, t := range manifest.Target {
			tables = append(tables, t.Dependencies, t.DevDependencies, t.BuildDependencies)
		}
		for _, table := range tables {
			for key, spec := range table {
				info.deps[cargoDependencyName(key, spec)] = true
			}
		}
		return info, nil
	})
}

// cargoDependencyName honors `alias = { package = "real-name" }` renames.
func cargoDependencyName(key string, spec any) string {
	if m, ok := spec.(map[string]any); ok {
		if name, ok := m["package"].(string); ok && name != "" {
			return name
		}
	}
	return key
}

func cleanPackagePath(p string) string {
	if p == "" {
		return "."
	}
	return filepath.ToSlash(filepath.Clean(p))
}
