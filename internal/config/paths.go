package config

import (
	"os"
	"path/filepath"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

const (
	// EnvChangesetPath overrides changeset directory discovery.
	EnvChangesetPath = "SHIPSET_CHANGESET_PATH"
	// EnvLegacyChangesetPath is honored when EnvChangesetPath is unset.
	EnvLegacyChangesetPath = "CHANGESET_PATH"
)

// ChangesetDirNames are the directory names searched for, in priority order.
var ChangesetDirNames = []string{".changesets", ".changes"}

// ConfigFileNames are the config file names searched for, in priority order.
var ConfigFileNames = []string{"config.toml", "config.json", "config.yaml"}

// FindChangesetDir returns the changeset directory for start. The env
// overrides win; otherwise the nearest directory named in ChangesetDirNames
// found walking up from start is used.
func FindChangesetDir(start string) (string, error) {
	for _, key := range []string{EnvChangesetPath, EnvLegacyChangesetPath} {
		if dir := os.Getenv(key); dir != "" {
			if !isDir(dir) {
				return "", shiperrors.NewNotFound(dir)
			}
			return filepath.Abs(dir)
		}
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", shiperrors.NewIO(start, err)
	}
	for dir := abs; ; {
		for _, name := range ChangesetDirNames {
			candidate := filepath.Join(dir, name)
			if isDir(candidate) {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", shiperrors.MissingChangesetDir(abs)
		}
		dir = parent
	}
}

// FindConfigFile returns the first config file present in dir.
func FindConfigFile(dir string) (string, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, nil
		}
	}
	return "", shiperrors.NewNotFound(filepath.Join(dir, ConfigFileNames[0]))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
