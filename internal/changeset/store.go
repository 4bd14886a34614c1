package changeset

import (
	"os"
	"path/filepath"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// LoadAll parses every changeset file directly inside dir, ordered by name.
// Any malformed file aborts the load.
func LoadAll(dir string, known PackageSet) ([]*Changeset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, shiperrors.NewIO(dir, err)
	}

	var changesets []*Changeset
	for _, entry := range entries {
		if entry.IsDir() || !isChangesetFile(entry.Name()) {
			continue
		}
		cs, err := FromFile(filepath.Join(dir, entry.Name()), known)
		if err != nil {
			return nil, err
		}
		changesets = append(changesets, cs)
	}
	return changesets, nil
}

func isChangesetFile(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), Ext) {
		return false
	}
	return !strings.EqualFold(name, "README.md")
}

const illegalNameChars = `<>:"/\| `

// SanitizeName lowercases a proposed changeset name and replaces characters
// that are unsafe in file names with '-'.
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if strings.ContainsRune(illegalNameChars, r) {
			sb.WriteRune('-')
			continue
		}
		sb.WriteString(strings.ToLower(string(r)))
	}
	return sb.String()
}

// Exists reports whether a changeset with the given name is already persisted in dir.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name+Ext))
	return err == nil
}
