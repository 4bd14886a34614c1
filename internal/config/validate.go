package config

import (
	"fmt"
	"sort"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// Validate checks semantic constraints that decoding cannot express.
// It returns the first problem found, reported against the config path.
func Validate(cfg *Config) error {
	path := cfg.path

	for _, np := range cfg.PackageList() {
		p := np.Config
		if strings.TrimSpace(np.Name) == "" {
			return shiperrors.NewInvalidConfig(path, "package name must not be empty")
		}
		if strings.TrimSpace(p.Path) == "" {
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("packages.%s: path is required", np.Name))
		}
		if !p.Resolver.Valid() {
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("packages.%s: unknown resolver %q (expected %s)",
				np.Name, p.Resolver, kindList()))
		}
		switch strings.ToLower(p.VersionMode) {
		case "", VersionModeSemantic, VersionModePrerelease:
		default:
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("packages.%s: unknown version_mode %q (expected semantic or prerelease)",
				np.Name, p.VersionMode))
		}
		if _, err := p.assetConfigs(); err != nil {
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("packages.%s: %v", np.Name, err))
		}
	}

	keys := make([]string, 0, len(cfg.Resolvers))
	for key := range cfg.Resolvers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !ResolverKind(key).Valid() {
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("resolver.%s: unknown resolver (expected %s)", key, kindList()))
		}
		rc := cfg.Resolvers[key]
		if rc.PreCheck != nil && strings.TrimSpace(rc.PreCheck.URL) == "" {
			return shiperrors.NewInvalidConfig(path, fmt.Sprintf("resolver.%s.pre-check: url is required", key))
		}
		phases := []struct {
			name string
			cmds []CommandConfig
		}{
			{"prepublish", rc.Prepublish},
			{"publish", rc.Publish},
			{"post-version", rc.PostVersion},
		}
		for _, phase := range phases {
			if err := validateCommands(phase.cmds); err != nil {
				return shiperrors.NewInvalidConfig(path, fmt.Sprintf("resolver.%s.%s: %v", key, phase.name, err))
			}
		}
	}
	return nil
}

func validateCommands(cmds []CommandConfig) error {
	for i, cmd := range cmds {
		if strings.TrimSpace(cmd.Command) == "" {
			return fmt.Errorf("[%d]: command is required", i)
		}
		if !cmd.Stdout.Valid() {
			return fmt.Errorf("[%d]: unknown stdout %q (expected inherit, pipe or null)", i, cmd.Stdout)
		}
		if !cmd.Stderr.Valid() {
			return fmt.Errorf("[%d]: unknown stderr %q (expected inherit, pipe or null)", i, cmd.Stderr)
		}
	}
	return nil
}

func kindList() string {
	kinds := ResolverKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
