package resolver

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/version"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	cmakeManifest = "CMakeLists.txt"
	vcpkgManifest = "vcpkg.json"
)

var (
	cmakeProjectRe      = regexp.MustCompile(`(?im)^\s*project\s*\(\s*([A-Za-z0-9_.+-]+)`)
	cmakeVersionRe      = regexp.MustCompile(`(?im)(^\s*project\s*\([^)]*?\bVERSION\s+)([0-9]+(?:\.[0-9]+)*)`)
	cmakeSubdirectoryRe = regexp.MustCompile(`(?im)^\s*add_subdirectory\s*\(\s*"?([^\s")]+)"?`)
	cmakeFindPackageRe  = regexp.MustCompile(`(?im)^\s*find_package\s*\(\s*([A-Za-z0-9_.+-]+)`)
)

// vcpkgVersionFields are rewritten on bump when present.
var vcpkgVersionFields = []string{"version", "version-semver", "version-string"}

// CppResolver handles CMake projects declaring project(<name> VERSION x.y.z).
type CppResolver struct {
	publisher
}

func (r *CppResolver) Kind() config.ResolverKind { return config.ResolverCpp }

func (r *CppResolver) Resolve(root string, pkg config.PackageConfig) (*ResolvedPackage, error) {
	path := filepath.Join(packageDir(root, pkg.Path), cmakeManifest)
	data, err := readManifest(path)
	if err != nil {
		return nil, err
	}

	name := cmakeProjectRe.FindSubmatch(data)
	if name == nil {
		return nil, shiperrors.NewInvalidConfig(path, "no project() declaration")
	}
	ver := cmakeVersionRe.FindSubmatch(data)
	if ver == nil {
		return nil, shiperrors.NewParseErrorReason(path, "VERSION not found in project() declaration")
	}

	resolved := &ResolvedPackage{
		Name:    string(name[1]),
		Version: string(ver[2]),
		Path:    cleanPackagePath(pkg.Path),
	}

	// project() VERSION drops prerelease identifiers, so vcpkg.json holds
	// the full version when it agrees with CMake on the release part.
	full, err := vcpkgVersion(filepath.Join(packageDir(root, pkg.Path), vcpkgManifest))
	if err != nil {
		return nil, err
	}
	switch {
	case full != "" && cmakeVersion(full) == resolved.Version:
		resolved.Version = full
	case full != "":
		log.Warn().Str("package", resolved.Name).Str("cmake", resolved.Version).Str("vcpkg", full).
			Msg("vcpkg.json version disagrees with CMakeLists.txt, using CMake")
	}
	if pkg.Mode().Kind == version.PreRelease && resolved.Version != full {
		return nil, shiperrors.NewInvalidConfig(path,
			"prerelease version_mode needs a vcpkg.json version matching project() VERSION, which cannot hold prerelease identifiers")
	}
	return resolved, nil
}

// vcpkgVersion returns the first version field of a vcpkg manifest, or ""
// when there is no manifest.
func vcpkgVersion(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}
	data, err := readManifest(path)
	if err != nil {
		return "", err
	}
	for _, field := range vcpkgVersionFields {
		if v := gjson.GetBytes(data, field).String(); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// ResolveAll resolves the root project and any add_subdirectory() entries
// that declare a versioned project of their own.
func (r *CppResolver) ResolveAll(root string) ([]*ResolvedPackage, error) {
	manifest := filepath.Join(root, cmakeManifest)
	if !fileExists(manifest) {
		log.Warn().Str("root", root).Msg("CMakeLists.txt not found, no cpp packages discovered")
		return nil, nil
	}
	data, err := readManifest(manifest)
	if err != nil {
		return nil, err
	}

	var dirs []string
	if cmakeVersionRe.Match(data) {
		dirs = append(dirs, ".")
	}
	for _, m := range cmakeSubdirectoryRe.FindAllSubmatch(data, -1) {
		dir := path.Clean(filepath.ToSlash(string(m[1])))
		if strings.Contains(dir, "${") || !fileExists(filepath.Join(root, filepath.FromSlash(dir), cmakeManifest)) {
			continue
		}
		dirs = append(dirs, dir)
	}
	return resolveDirs(r, root, dirs), nil
}

func (r *CppResolver) Bump(root string, pkg *ResolvedPackage, newVersion string, dryRun bool) error {
	if dryRun {
		log.Info().Str("package", pkg.Name).Str("from", pkg.Version).Str("to", newVersion).Msg("dry run: would bump CMakeLists.txt")
		return nil
	}

	dir := packageDir(root, pkg.Path)
	cmakePath := filepath.Join(dir, cmakeManifest)
	data, err := readManifest(cmakePath)
	if err != nil {
		return err
	}
	loc := cmakeVersionRe.FindSubmatchIndex(data)
	if loc == nil {
		return shiperrors.NewParseErrorReason(cmakePath, "VERSION not found in project() declaration")
	}
	updated := make([]byte, 0, len(data)+len(newVersion))
	updated = append(updated, data[:loc[4]]...)
	updated = append(updated, cmakeVersion(newVersion)...)
	updated = append(updated, data[loc[5]:]...)
	if err := writeManifest(cmakePath, updated); err != nil {
		return err
	}
	log.Info().Str("package", pkg.Name).Str("version", newVersion).Str("file", cmakePath).Msg("bumped manifest")

	return bumpVcpkg(filepath.Join(dir, vcpkgManifest), newVersion)
}

// cmakeVersion strips prerelease and build metadata, which project()
// VERSION does not accept.
func cmakeVersion(v string) string {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		return v[:i]
	}
	return v
}

func bumpVcpkg(path, newVersion string) error {
	if !fileExists(path) {
		return nil
	}
	data, err := readManifest(path)
	if err != nil {
		return err
	}
	changed := false
	for _, field := range vcpkgVersionFields {
		if !gjson.GetBytes(data, field).Exists() {
			continue
		}
		if data, err = sjson.SetBytes(data, field, newVersion); err != nil {
			return shiperrors.NewParseError(path, err)
		}
		changed = true
	}
	if !changed {
		return nil
	}
	return writeManifest(path, data)
}

func (r *CppResolver) SortPackages(root string, packages []config.NamedPackage) ([]config.NamedPackage, error) {
	return sortByDependencies(packages, config.ResolverCpp, nil, func(np config.NamedPackage) (dependencyInfo, error) {
		dir := packageDir(root, np.Config.Path)
		data, err := readManifest(filepath.Join(dir, cmakeManifest))
		if err != nil {
			return dependencyInfo{}, shiperrors.WithPackage(err, np.Name)
		}
		info := dependencyInfo{deps: make(map[string]bool)}
		if m := cmakeProjectRe.FindSubmatch(data); m != nil {
			info.name = string(m[1])
		}
		for _, m := range cmakeFindPackageRe.FindAllSubmatch(data, -1) {
			info.deps[string(m[1])] = true
		}

		vcpkg := filepath.Join(dir, vcpkgManifest)
		if fileExists(vcpkg) {
			raw, err := readManifest(vcpkg)
			if err != nil {
				return dependencyInfo{}, err
			}
			gjson.GetBytes(raw, "dependencies").ForEach(func(_, dep gjson.Result) bool {
				name := dep.String()
				if dep.IsObject() {
					name = dep.Get("name").String()
				}
				if name != "" {
					info.deps[name] = true
				}
				return true
			})
		}
		return info, nil
	})
}
