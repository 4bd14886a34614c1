// Package config locates and loads the shipset configuration that lives in
// the changeset directory. Configuration is loaded with priority: environment
// variables (SHIPSET_BRANCHES_*) > project config file > defaults. The config
// file may be TOML, JSON or YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/ariel-frischer/shipset/internal/version"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// keyDelim separates nested koanf keys. Package names may contain dots
// (Python distributions often do), so "." cannot be used.
const keyDelim = "::"

const envPrefix = "SHIPSET_"

// ResolverKind names the ecosystem a package belongs to.
type ResolverKind string

const (
	ResolverRust   ResolverKind = "rust"
	ResolverNodejs ResolverKind = "nodejs"
	ResolverPython ResolverKind = "python"
	ResolverCpp    ResolverKind = "cpp"
)

// ResolverKinds returns every supported kind in a stable order.
func ResolverKinds() []ResolverKind {
	return []ResolverKind{ResolverCpp, ResolverNodejs, ResolverPython, ResolverRust}
}

// Valid reports whether k is a supported kind.
func (k ResolverKind) Valid() bool {
	for _, kind := range ResolverKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Config is the parsed changeset-directory configuration.
type Config struct {
	Branches  BranchesConfig            `koanf:"branches" toml:"branches" json:"branches"`
	Tags      map[string]string         `koanf:"tags" toml:"tags" json:"tags"`
	Packages  map[string]PackageConfig  `koanf:"packages" toml:"packages" json:"packages"`
	Resolvers map[string]ResolverConfig `koanf:"resolver" toml:"resolver,omitempty" json:"resolver,omitempty"`

	path string
}

// BranchesConfig names the branches used by release automation.
type BranchesConfig struct {
	Base    string `koanf:"base" toml:"base" json:"base"`
	Release string `koanf:"release" toml:"release" json:"release"`
}

// PackageConfig binds a package name to its location and ecosystem.
type PackageConfig struct {
	Path     string       `koanf:"path" toml:"path" json:"path"`
	Resolver ResolverKind `koanf:"resolver" toml:"resolver" json:"resolver"`
	// VersionMode is "semantic" (default) or "prerelease".
	VersionMode   string `koanf:"version_mode" toml:"version_mode,omitempty" json:"version_mode,omitempty"`
	PrereleaseTag string `koanf:"prerelease_tag" toml:"prerelease_tag,omitempty" json:"prerelease_tag,omitempty"`
	// Assets entries are either a path string or a {path, name} table.
	Assets []any `koanf:"assets" toml:"assets,omitempty" json:"assets,omitempty"`
}

// NamedPackage pairs a package name with its configuration.
type NamedPackage struct {
	Name   string
	Config PackageConfig
}

const (
	VersionModeSemantic   = "semantic"
	VersionModePrerelease = "prerelease"
)

// Mode returns the version mode for the package.
func (p PackageConfig) Mode() version.Mode {
	if strings.EqualFold(p.VersionMode, VersionModePrerelease) {
		return version.PreReleaseMode(p.PrereleaseTag)
	}
	return version.SemanticMode()
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// Path is the config file to load. When empty it is located inside ChangesetDir.
	Path string
	// ChangesetDir is the changeset directory. When empty it is discovered from the working directory.
	ChangesetDir string
}

// Load locates and loads the configuration using the default discovery rules.
func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	path := opts.Path
	if path == "" {
		dir := opts.ChangesetDir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, shiperrors.NewIO(".", err)
			}
			dir, err = FindChangesetDir(wd)
			if err != nil {
				return nil, err
			}
		}
		var err error
		path, err = FindConfigFile(dir)
		if err != nil {
			return nil, err
		}
	}

	k := koanf.New(keyDelim)
	loadDefaults(k)

	if err := loadProjectConfig(k, path); err != nil {
		return nil, err
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}

	return finalizeConfig(k, path)
}

// loadDefaults applies default configuration values
func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		_ = k.Set(key, value)
	}
}

// loadProjectConfig loads the config file with the parser matching its extension.
func loadProjectConfig(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return shiperrors.NewIO(path, err)
	}

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return shiperrors.NewInvalidConfig(path, "unsupported config format (expected .toml, .json or .yaml)")
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return shiperrors.NewInvalidConfig(path, err.Error())
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.ProviderWithValue(envPrefix, keyDelim, envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// envTransform converts environment variable names to config keys.
// Only non-empty branch overrides are honored; other SHIPSET_ variables are ignored.
// Example: SHIPSET_BRANCHES_BASE -> branches::base
func envTransform(name, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok || section != "branches" {
		return "", nil
	}
	return section + keyDelim + field, value
}

// finalizeConfig unmarshals and validates the merged configuration
func finalizeConfig(k *koanf.Koanf, path string) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, shiperrors.NewInvalidConfig(path, err.Error())
	}
	cfg.path = path

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the changeset directory holding the configuration.
func (c *Config) Dir() string {
	if c.path == "" {
		return ""
	}
	return filepath.Dir(c.path)
}

// HasPackage reports whether a package is declared.
func (c *Config) HasPackage(name string) bool {
	_, ok := c.Packages[name]
	return ok
}

// Package returns a package's configuration.
func (c *Config) Package(name string) (PackageConfig, bool) {
	p, ok := c.Packages[name]
	return p, ok
}

// PackageList returns all packages ordered by name.
func (c *Config) PackageList() []NamedPackage {
	names := make([]string, 0, len(c.Packages))
	for name := range c.Packages {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]NamedPackage, 0, len(names))
	for _, name := range names {
		list = append(list, NamedPackage{Name: name, Config: c.Packages[name]})
	}
	return list
}

// ResolverConfig returns the command configuration for a resolver kind.
func (c *Config) ResolverConfig(kind ResolverKind) (ResolverConfig, bool) {
	rc, ok := c.Resolvers[string(kind)]
	return rc, ok
}

// UsedResolverKinds returns the kinds referenced by packages or resolver
// tables, in the stable order of ResolverKinds.
func (c *Config) UsedResolverKinds() []ResolverKind {
	used := make(map[ResolverKind]bool)
	for _, p := range c.Packages {
		used[p.Resolver] = true
	}
	for key := range c.Resolvers {
		used[ResolverKind(key)] = true
	}

	var kinds []ResolverKind
	for _, kind := range ResolverKinds() {
		if used[kind] {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// TagLabel returns the changelog heading for a changeset tag, or "" when the
// tag is empty or not configured.
func (c *Config) TagLabel(tag string) string {
	if tag == "" {
		return ""
	}
	return c.Tags[tag]
}
