package resolver

import (
	"path/filepath"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

const (
	packageJSON   = "package.json"
	pnpmWorkspace = "pnpm-workspace.yaml"
)

var nodeDependencyFields = []string{
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
}

// NodeResolver handles npm-style packages described by package.json.
type NodeResolver struct {
	publisher
}

func (r *NodeResolver) Kind() config.ResolverKind { return config.ResolverNodejs }

func readPackageJSON(path string) ([]byte, error) {
	data, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, shiperrors.NewParseErrorReason(path, "invalid JSON")
	}
	return data, nil
}

func (r *NodeResolver) Resolve(root string, pkg config.PackageConfig) (*ResolvedPackage, error) {
	path := filepath.Join(packageDir(root, pkg.Path), packageJSON)
	data, err := readPackageJSON(path)
	if err != nil {
		return nil, err
	}

	name := gjson.GetBytes(data, "name").String()
	if name == "" {
		return nil, shiperrors.NewInvalidConfig(path, "missing package name")
	}
	version := gjson.GetBytes(data, "version").String()
	if version == "" {
		version = "0.0.0"
	}

	return &ResolvedPackage{
		Name:    name,
		Version: version,
		Path:    cleanPackagePath(pkg.Path),
		Private: gjson.GetBytes(data, "private").Bool(),
	}, nil
}

// workspacePatterns returns the membership globs, preferring
// pnpm-workspace.yaml over the package.json workspaces field.
func workspacePatterns(root string, data []byte) ([]string, bool, error) {
	pnpmPath := filepath.Join(root, pnpmWorkspace)
	if fileExists(pnpmPath) {
		raw, err := readManifest(pnpmPath)
		if err != nil {
			return nil, false, err
		}
		var ws struct {
			Packages []string `yaml:"packages"`
		}
		if err := yaml.Unmarshal(raw, &ws); err != nil {
			return nil, false, shiperrors.NewParseError(pnpmPath, err)
		}
		if len(ws.Packages) > 0 {
			return ws.Packages, true, nil
		}
	}

	field := gjson.GetBytes(data, "workspaces")
	if !field.Exists() {
		return nil, false, nil
	}
	if !field.IsArray() {
		field = field.Get("packages")
	}
	var patterns []string
	for _, p := range field.Array() {
		if s := p.String(); s != "" {
			patterns = append(patterns, s)
		}
	}
	return patterns, true, nil
}

func (r *NodeResolver) ResolveAll(root string) ([]*ResolvedPackage, error) {
	path := filepath.Join(root, packageJSON)
	if !fileExists(path) {
		log.Warn().Str("root", root).Msg("package.json not found, no nodejs packages discovered")
		return nil, nil
	}
	data, err := readPackageJSON(path)
	if err != nil {
		return nil, err
	}

	patterns, isWorkspace, err := workspacePatterns(root, data)
	if err != nil {
		return nil, err
	}
	if !isWorkspace {
		if gjson.GetBytes(data, "name").String() == "" {
			log.Warn().Str("root", root).Msg("root package.json has no name, no nodejs packages discovered")
			return nil, nil
		}
		return resolveDirs(r, root, []string{"."}), nil
	}
	return resolveDirs(r, root, expandMembers(root, patterns, nil, packageJSON)), nil
}

func (r *NodeResolver) Bump(root string, pkg *ResolvedPackage, newVersion string, dryRun bool) error {
	if dryRun {
		log.Info().Str("package", pkg.Name).Str("from", pkg.Version).Str("to", newVersion).Msg("dry run: would bump package.json")
		return nil
	}

	path := filepath.Join(packageDir(root, pkg.Path), packageJSON)
	data, err := readPackageJSON(path)
	if err != nil {
		return err
	}
	updated, err := sjson.SetBytes(data, "version", newVersion)
	if err != nil {
		return shiperrors.NewParseError(path, err)
	}
	if err := writeManifest(path, updated); err != nil {
		return err
	}
	log.Info().Str("package", pkg.Name).Str("version", newVersion).Str("file", path).Msg("bumped manifest")
	return nil
}

func (r *NodeResolver) SortPackages(root string, packages []config.NamedPackage) ([]config.NamedPackage, error) {
	return sortByDependencies(packages, config.ResolverNodejs, nil, func(np config.NamedPackage) (dependencyInfo, error) {
		path := filepath.Join(packageDir(root, np.Config.Path), packageJSON)
		data, err := readPackageJSON(path)
		if err != nil {
			return dependencyInfo{}, shiperrors.WithPackage(err, np.Name)
		}
		info := dependencyInfo{
			name: gjson.GetBytes(data, "name").String(),
			deps: make(map[string]bool),
		}
		for _, field := range nodeDependencyFields {
			gjson.GetBytes(data, field).ForEach(func(key, _ gjson.Result) bool {
				info.deps[key.String()] = true
				return true
			})
		}
		return info, nil
	})
}
