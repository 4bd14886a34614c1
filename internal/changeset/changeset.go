package changeset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Separator is the line that splits front matter from the summary.
const Separator = "---"

// Ext is the file extension of persisted changesets.
const Ext = ".md"

// PackageSet reports whether a package name is declared in configuration.
type PackageSet interface {
	HasPackage(name string) bool
}

// Changeset is one pending change record.
type Changeset struct {
	Name     string
	Packages []ChangePackage
	Summary  string
	// RootPath is the changeset directory the record belongs to.
	RootPath string
	// Path is the backing file, empty for drafts that were never committed.
	Path string
}

// New creates an in-memory draft changeset.
func New(name, rootPath string) *Changeset {
	return &Changeset{Name: name, RootPath: rootPath}
}

// AddPackage appends a package entry.
func (c *Changeset) AddPackage(name string, level BumpLevel, tag string) {
	c.Packages = append(c.Packages, ChangePackage{Name: name, Level: level, Tag: tag})
}

// AddPackages appends the same level and tag for several packages.
func (c *Changeset) AddPackages(names []string, level BumpLevel, tag string) {
	for _, name := range names {
		c.AddPackage(name, level, tag)
	}
}

// Package returns the entry for a package name, if present.
func (c *Changeset) Package(name string) (ChangePackage, bool) {
	for _, p := range c.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return ChangePackage{}, false
}

// FromFile parses a changeset file. Every package in the front matter must be
// known to the given set.
func FromFile(path string, known PackageSet) (*Changeset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shiperrors.NewIO(path, err)
	}
	return Parse(path, data, known)
}

// Parse parses changeset content read from path.
func Parse(path string, data []byte, known PackageSet) (*Changeset, error) {
	front, summary, ok := split(string(data))
	if !ok {
		return nil, shiperrors.NewInvalidChangeset(path, "missing '---' separator")
	}

	packages, err := parseFrontMatter(path, front, known)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return nil, shiperrors.NewInvalidChangeset(path, "empty changeset name")
	}

	return &Changeset{
		Name:     name,
		Packages: packages,
		Summary:  summary,
		RootPath: filepath.Dir(path),
		Path:     path,
	}, nil
}

// split cuts content at the last line consisting solely of the separator.
func split(content string) (front, summary string, ok bool) {
	lines := strings.Split(content, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimRight(lines[i], " \t\r") == Separator {
			front = strings.Join(lines[:i], "\n")
			summary = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			return front, summary, true
		}
	}
	return "", "", false
}

func parseFrontMatter(path, front string, known PackageSet) ([]ChangePackage, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(front), &doc); err != nil {
		return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("front matter is not valid YAML: %v", err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, shiperrors.NewInvalidChangeset(path, "front matter is empty")
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, shiperrors.NewInvalidChangeset(path, "front matter must be a mapping of package to level")
	}
	if len(mapping.Content) == 0 {
		return nil, shiperrors.NewInvalidChangeset(path, "front matter lists no packages")
	}

	seen := make(map[string]bool, len(mapping.Content)/2)
	packages := make([]ChangePackage, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("line %d: package name must be a string", key.Line))
		}
		if value.Kind != yaml.ScalarNode {
			return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("package %q: level must be a string", key.Value))
		}

		name := key.Value
		if seen[name] {
			return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("package %q listed more than once", name))
		}
		seen[name] = true

		if known != nil && !known.HasPackage(name) {
			return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("package %q is not declared in config", name))
		}

		level, tag, err := ParseMark(value.Value)
		if err != nil {
			return nil, shiperrors.NewInvalidChangeset(path, fmt.Sprintf("package %q: %v", name, err))
		}
		packages = append(packages, ChangePackage{Name: name, Level: level, Tag: tag})
	}
	return packages, nil
}

// Render serializes the changeset to its file representation.
func (c *Changeset) Render() ([]byte, error) {
	if len(c.Packages) == 0 {
		return nil, fmt.Errorf("changeset %q has no packages", c.Name)
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range c.Packages {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Mark()},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	buf.WriteString(Separator)
	buf.WriteString("\n\n")
	buf.WriteString(strings.TrimSpace(c.Summary))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Commit writes the changeset to `<name>.md` under its root directory and
// records the resulting path.
func (c *Changeset) Commit() error {
	return c.CommitTo(c.RootPath)
}

// CommitTo writes the changeset to `<name>.md` under dir.
func (c *Changeset) CommitTo(dir string) error {
	if c.Name == "" {
		return shiperrors.NewInvalidChangeset(dir, "changeset name is empty")
	}
	content, err := c.Render()
	if err != nil {
		return shiperrors.NewInvalidChangeset(filepath.Join(dir, c.Name+Ext), err.Error())
	}

	path := filepath.Join(dir, c.Name+Ext)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return shiperrors.NewIO(path, err)
	}
	c.Path = path
	c.RootPath = dir
	log.Debug().Str("path", path).Int("packages", len(c.Packages)).Msg("committed changeset")
	return nil
}

// Clean deletes the backing file.
func (c *Changeset) Clean() error {
	path := c.Path
	if path == "" {
		path = filepath.Join(c.RootPath, c.Name+Ext)
	}
	if err := os.Remove(path); err != nil {
		return shiperrors.NewIO(path, err)
	}
	log.Debug().Str("path", path).Msg("removed changeset")
	c.Path = ""
	return nil
}
