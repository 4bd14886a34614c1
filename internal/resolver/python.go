package resolver

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/ariel-frischer/shipset/internal/config"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	pyprojectManifest = "pyproject.toml"
	setupCfgManifest  = "setup.cfg"

	privateClassifier = "Private :: Do Not Upload"
)

// pythonWorkspaceDirs are scanned when no uv workspace is declared.
var pythonWorkspaceDirs = []string{"packages/*", "libs/*", "apps/*"}

var (
	dunderVersionRe = regexp.MustCompile(`(?m)^(__version__\s*(?::\s*str\s*)?=\s*)(["'])([^"']+)(["'])`)
	pep508NameRe    = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)
	pep503Re        = regexp.MustCompile(`[-_.]+`)
	iniSectionRe    = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	iniKeyRe        = regexp.MustCompile(`^(\s*([A-Za-z0-9_.-]+)\s*[=:]\s*)(.*?)\s*$`)
)

type pyprojectToml struct {
	Project *pyprojectProject `toml:"project"`
	Tool    struct {
		Poetry *poetryProject `toml:"poetry"`
		Hatch  struct {
			Version struct {
				Path string `toml:"path"`
			} `toml:"version"`
		} `toml:"hatch"`
		UV struct {
			Workspace struct {
				Members []string `toml:"members"`
				Exclude []string `toml:"exclude"`
			} `toml:"workspace"`
		} `toml:"uv"`
	} `toml:"tool"`
}

type pyprojectProject struct {
	Name                 string              `toml:"name"`
	Version              string              `toml:"version"`
	Dynamic              []string            `toml:"dynamic"`
	Classifiers          []string            `toml:"classifiers"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
}

type poetryProject struct {
	Name         string         `toml:"name"`
	Version      string         `toml:"version"`
	Classifiers  []string       `toml:"classifiers"`
	Dependencies map[string]any `toml:"dependencies"`
	Group        map[string]struct {
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"group"`
}

// PythonResolver handles Python distributions described by pyproject.toml
// or setup.cfg.
type PythonResolver struct {
	publisher
}

func (r *PythonResolver) Kind() config.ResolverKind { return config.ResolverPython }

func readPyproject(path string) (*pyprojectToml, error) {
	data, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	var manifest pyprojectToml
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, shiperrors.NewParseError(path, err)
	}
	return &manifest, nil
}

func (r *PythonResolver) Resolve(root string, pkg config.PackageConfig) (*ResolvedPackage, error) {
	dir := packageDir(root, pkg.Path)
	pyproject := filepath.Join(dir, pyprojectManifest)
	setupCfg := filepath.Join(dir, setupCfgManifest)

	var resolved *ResolvedPackage
	var err error
	switch {
	case fileExists(pyproject):
		resolved, err = resolvePyproject(dir, pyproject)
		if err != nil && shiperrors.IsKind(err, shiperrors.InvalidConfig) && fileExists(setupCfg) {
			resolved, err = resolveSetupCfg(setupCfg)
		}
	case fileExists(setupCfg):
		resolved, err = resolveSetupCfg(setupCfg)
	default:
		return nil, shiperrors.NewNotFound(pyproject)
	}
	if err != nil {
		return nil, err
	}
	resolved.Path = cleanPackagePath(pkg.Path)
	return resolved, nil
}

func resolvePyproject(dir, path string) (*ResolvedPackage, error) {
	manifest, err := readPyproject(path)
	if err != nil {
		return nil, err
	}

	switch {
	case manifest.Project != nil:
		p := manifest.Project
		if p.Name == "" {
			return nil, shiperrors.NewInvalidConfig(path, "missing [project] name")
		}
		version := p.Version
		if slices.Contains(p.Dynamic, "version") {
			v, err := dynamicVersion(dir, p.Name, manifest.Tool.Hatch.Version.Path)
			if err != nil {
				log.Warn().Str("package", p.Name).Err(err).Msg("failed to read dynamic version, using 0.0.0")
			}
			version = v
		}
		if version == "" {
			version = "0.0.0"
		}
		return &ResolvedPackage{
			Name:    p.Name,
			Version: version,
			Private: slices.Contains(p.Classifiers, privateClassifier),
		}, nil

	case manifest.Tool.Poetry != nil:
		p := manifest.Tool.Poetry
		if p.Name == "" {
			return nil, shiperrors.NewInvalidConfig(path, "missing [tool.poetry] name")
		}
		version := p.Version
		if version == "" {
			version = "0.0.0"
		}
		return &ResolvedPackage{
			Name:    p.Name,
			Version: version,
			Private: slices.Contains(p.Classifiers, privateClassifier),
		}, nil

	default:
		return nil, shiperrors.NewInvalidConfig(path, "no [project] or [tool.poetry] metadata")
	}
}

func resolveSetupCfg(path string) (*ResolvedPackage, error) {
	data, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	meta := iniSection(data, "metadata")
	if meta["name"] == "" {
		return nil, shiperrors.NewInvalidConfig(path, "missing [metadata] name")
	}
	version := meta["version"]
	if version == "" {
		version = "0.0.0"
	}
	return &ResolvedPackage{
		Name:    meta["name"],
		Version: version,
		Private: strings.Contains(meta["classifiers"], privateClassifier),
	}, nil
}

// iniSection returns the keys of one section of an INI file. Indented
// continuation lines are appended to the previous value.
func iniSection(data []byte, section string) map[string]string {
	values := make(map[string]string)
	current, last := "", ""
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		if m := iniSectionRe.FindStringSubmatch(line); m != nil {
			current, last = strings.TrimSpace(m[1]), ""
			continue
		}
		if current != section {
			continue
		}
		if last != "" && (line[0] == ' ' || line[0] == '\t') {
			values[last] = strings.TrimSpace(values[last] + "\n" + trimmed)
			continue
		}
		if m := iniKeyRe.FindStringSubmatch(line); m != nil {
			last = strings.ToLower(m[2])
			values[last] = m[3]
		}
	}
	return values
}

// versionFileCandidates lists the files that may hold a static __version__.
func versionFileCandidates(dir, name, hatchPath string) []string {
	module := strings.ReplaceAll(name, "-", "_")
	var files []string
	for _, base := range []string{"__init__.py", "__version__.py", "_version.py"} {
		files = append(files,
			filepath.Join(dir, module, base),
			filepath.Join(dir, "src", module, base),
		)
	}
	if hatchPath != "" {
		files = append(files, filepath.Join(dir, filepath.FromSlash(hatchPath)))
	}
	return files
}

// dynamicVersion finds the version of a project that declares it dynamic:
// a static __version__ in the package sources, then a maturin Cargo.toml,
// then the hatch version file.
func dynamicVersion(dir, name, hatchPath string) (string, error) {
	candidates := versionFileCandidates(dir, name, "")
	for _, file := range candidates {
		if v := readDunderVersion(file); v != "" {
			log.Debug().Str("file", file).Str("version", v).Msg("read dynamic version")
			return v, nil
		}
	}

	if cargo := filepath.Join(dir, cargoManifest); fileExists(cargo) {
		if manifest, _, err := readCargoToml(cargo); err == nil && manifest.Package != nil {
			if v, ok := manifest.Package.Version.(string); ok && v != "" {
				return v, nil
			}
		}
	}

	if hatchPath != "" {
		if v := readDunderVersion(filepath.Join(dir, filepath.FromSlash(hatchPath))); v != "" {
			return v, nil
		}
	}

	return "", shiperrors.NewInvalidConfig(dir, "version is dynamic but no static __version__ was found")
}

func readDunderVersion(path string) string {
	if !fileExists(path) {
		return ""
	}
	data, err := readManifest(path)
	if err != nil {
		return ""
	}
	if m := dunderVersionRe.FindSubmatch(data); m != nil {
		return string(m[3])
	}
	return ""
}

func (r *PythonResolver) ResolveAll(root string) ([]*ResolvedPackage, error) {
	var dirs []string
	var members, excludes []string

	pyproject := filepath.Join(root, pyprojectManifest)
	if fileExists(pyproject) || fileExists(filepath.Join(root, setupCfgManifest)) {
		dirs = append(dirs, ".")
	}
	if fileExists(pyproject) {
		manifest, err := readPyproject(pyproject)
		if err != nil {
			log.Warn().Str("path", pyproject).Err(err).Msg("failed to read root pyproject.toml")
		} else {
			members = manifest.Tool.UV.Workspace.Members
			excludes = manifest.Tool.UV.Workspace.Exclude
		}
	}
	if len(members) == 0 {
		members = pythonWorkspaceDirs
	}

	dirs = append(dirs, expandMembers(root, members, excludes, pyprojectManifest, setupCfgManifest)...)
	packages := resolveDirs(r, root, dirs)
	if len(packages) == 0 {
		log.Warn().Str("root", root).Msg("no python packages discovered")
	}
	return packages, nil
}

// Bump rewrites every static version source of the package: pyproject.toml,
// setup.cfg, a hardcoded __version__ and a maturin Cargo.toml.
func (r *PythonResolver) Bump(root string, pkg *ResolvedPackage, newVersion string, dryRun bool) error {
	if dryRun {
		log.Info().Str("package", pkg.Name).Str("from", pkg.Version).Str("to", newVersion).Msg("dry run: would bump python package")
		return nil
	}

	dir := packageDir(root, pkg.Path)
	var updated []string

	editors := []struct {
		file string
		edit func([]byte) ([]byte, bool)
	}{
		{filepath.Join(dir, pyprojectManifest), func(data []byte) ([]byte, bool) {
			if out, ok := setTOMLString(data, "project", "version", newVersion); ok {
				return out, true
			}
			return setTOMLString(data, "tool.poetry", "version", newVersion)
		}},
		{filepath.Join(dir, setupCfgManifest), func(data []byte) ([]byte, bool) {
			return setINIValue(data, "metadata", "version", newVersion)
		}},
		{filepath.Join(dir, cargoManifest), func(data []byte) ([]byte, bool) {
			return setTOMLString(data, "package", "version", newVersion)
		}},
	}

	hatchPath := ""
	if manifest, err := readPyproject(filepath.Join(dir, pyprojectManifest)); err == nil {
		hatchPath = manifest.Tool.Hatch.Version.Path
	}
	for _, file := range versionFileCandidates(dir, pkg.Name, hatchPath) {
		editors = append(editors, struct {
			file string
			edit func([]byte) ([]byte, bool)
		}{file, func(data []byte) ([]byte, bool) {
			return setDunderVersion(data, newVersion)
		}})
	}

	for _, e := range editors {
		if !fileExists(e.file) {
			continue
		}
		data, err := readManifest(e.file)
		if err != nil {
			return err
		}
		out, ok := e.edit(data)
		if !ok {
			continue
		}
		if err := writeManifest(e.file, out); err != nil {
			return err
		}
		updated = append(updated, e.file)
	}

	if len(updated) == 0 {
		return shiperrors.NewParseErrorReason(dir, "no static version found to update").WithPackage(pkg.Name)
	}
	log.Info().Str("package", pkg.Name).Str("version", newVersion).Strs("files", updated).Msg("bumped manifest")
	return nil
}

func setDunderVersion(data []byte, version string) ([]byte, bool) {
	loc := dunderVersionRe.FindSubmatchIndex(data)
	if loc == nil {
		return data, false
	}
	var out bytes.Buffer
	out.Write(data[:loc[6]])
	out.WriteString(version)
	out.Write(data[loc[7]:])
	return out.Bytes(), true
}

// setINIValue replaces key inside [section], keeping the separator style.
func setINIValue(data []byte, section, key, value string) ([]byte, bool) {
	lines := bytes.Split(data, []byte("\n"))
	current := ""
	for i, line := range lines {
		s := strings.TrimSuffix(string(line), "\r")
		if m := iniSectionRe.FindStringSubmatch(s); m != nil {
			current = strings.TrimSpace(m[1])
			continue
		}
		if current != section {
			continue
		}
		if m := iniKeyRe.FindStringSubmatch(s); m != nil && strings.EqualFold(m[2], key) {
			suffix := ""
			if strings.HasSuffix(string(line), "\r") {
				suffix = "\r"
			}
			lines[i] = []byte(m[1] + value + suffix)
			return bytes.Join(lines, []byte("\n")), true
		}
	}
	return data, false
}

func (r *PythonResolver) SortPackages(root string, packages []config.NamedPackage) ([]config.NamedPackage, error) {
	return sortByDependencies(packages, config.ResolverPython, NormalizePythonName, func(np config.NamedPackage) (dependencyInfo, error) {
		info := dependencyInfo{deps: make(map[string]bool)}
		path := filepath.Join(packageDir(root, np.Config.Path), pyprojectManifest)
		if !fileExists(path) {
			return info, nil
		}
		manifest, err := readPyproject(path)
		if err != nil {
			log.Warn().Str("package", np.Name).Err(err).Msg("failed to read dependencies")
			return info, nil
		}

		if p := manifest.Project; p != nil {
			info.name = p.Name
			reqs := append([]string(nil), p.Dependencies...)
			for _, extra := range p.OptionalDependencies {
				reqs = append(reqs, extra...)
			}
			for _, req := range reqs {
				if m := pep508NameRe.FindStringSubmatch(req); m != nil {
					info.deps[m[1]] = true
				}
			}
		}
		if p := manifest.Tool.Poetry; p != nil {
			if info.name == "" {
				info.name = p.Name
			}
			tables := []map[string]any{p.Dependencies}
			for _, g := range p.Group {
				tables = append(tables, g.Dependencies)
			}
			for _, table := range tables {
				for dep := range table {
					if !strings.EqualFold(dep, "python") {
						info.deps[dep] = true
					}
				}
			}
		}
		return info, nil
	})
}

// NormalizePythonName applies PEP 503 name normalization.
func NormalizePythonName(name string) string {
	return strings.ToLower(pep503Re.ReplaceAllString(name, "-"))
}
