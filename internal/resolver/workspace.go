package resolver

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ariel-frischer/shipset/internal/config"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// expandMembers resolves workspace membership globs to package directories
// (slash-separated, relative to root) that contain at least one of
// manifests. Patterns prefixed with "!" and the explicit excludes remove
// matches.
func expandMembers(root string, patterns, excludes []string, manifests ...string) []string {
	fsys := os.DirFS(root)

	var include []string
	exclude := append([]string(nil), excludes...)
	for _, p := range patterns {
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, neg)
			continue
		}
		include = append(include, p)
	}
	for i := range exclude {
		exclude[i] = cleanPattern(exclude[i])
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, p := range include {
		matches, err := doublestar.Glob(fsys, cleanPattern(p))
		if err != nil {
			log.Warn().Str("pattern", p).Err(err).Msg("invalid workspace pattern")
			continue
		}
		for _, m := range matches {
			if seen[m] || excluded(m, exclude) {
				continue
			}
			if !hasManifest(filepath.Join(root, filepath.FromSlash(m)), manifests) {
				continue
			}
			seen[m] = true
			dirs = append(dirs, m)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func cleanPattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	return path.Clean(p)
}

func excluded(dir string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, dir); ok {
			return true
		}
	}
	return false
}

func hasManifest(dir string, manifests []string) bool {
	for _, name := range manifests {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

// resolveDirs resolves each directory with r, logging and skipping failures.
func resolveDirs(r Resolver, root string, dirs []string) []*ResolvedPackage {
	var packages []*ResolvedPackage
	for _, dir := range dirs {
		pkg, err := r.Resolve(root, config.PackageConfig{Path: dir, Resolver: r.Kind()})
		if err != nil {
			log.Warn().Str("resolver", string(r.Kind())).Str("path", dir).Err(err).Msg("failed to resolve package, skipping")
			continue
		}
		packages = append(packages, pkg)
	}
	return packages
}

// packageDir returns the absolute directory of a package path.
func packageDir(root, pkgPath string) string {
	if pkgPath == "" {
		pkgPath = "."
	}
	return filepath.Join(root, filepath.FromSlash(pkgPath))
}
