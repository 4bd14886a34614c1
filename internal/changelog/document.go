package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// VersionNotFoundError is returned when a requested version doesn't exist.
type VersionNotFoundError struct {
	Path              string
	Version           string
	AvailableVersions []string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found in %s (available: %s)",
		e.Version, e.Path, strings.Join(e.AvailableVersions, ", "))
}

// Unwrap classifies the error as an invalid changelog.
func (e *VersionNotFoundError) Unwrap() error {
	return shiperrors.NewInvalidChangelog(e.Path, fmt.Sprintf("version %s not found", e.Version))
}

// Document is a parsed changelog file.
type Document struct {
	Path string
	// Preamble is any text between the header and the first section.
	Preamble string
	// Sections are the version sections, newest first.
	Sections []Changelog
}

// ReadDocument reads and parses the changelog at path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shiperrors.NewIO(path, err)
	}
	return ParseDocument(path, data)
}

// ParseDocument splits a changelog into its version sections. Sections are
// delimited by "## " headings below the "# Changelog" header.
func ParseDocument(path string, data []byte) (*Document, error) {
	lines := splitLines(string(data))
	start := headerIndex(lines)
	if start < 0 {
		return nil, shiperrors.NewInvalidChangelog(path, "missing \""+Header+"\" header")
	}

	doc := &Document{Path: path}
	var preamble []string
	var current *Changelog
	var body []string
	flush := func() {
		if current != nil {
			current.Body = strings.Join(trimBlankLines(body), "\n")
			doc.Sections = append(doc.Sections, *current)
		}
	}
	for _, line := range lines[start+1:] {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = &Changelog{Version: strings.TrimSpace(line[3:])}
			body = nil
			continue
		}
		if current == nil {
			preamble = append(preamble, line)
			continue
		}
		body = append(body, line)
	}
	flush()
	doc.Preamble = strings.Join(trimBlankLines(preamble), "\n")
	return doc, nil
}

// Latest returns the newest version section.
func (d *Document) Latest() (*Changelog, error) {
	if len(d.Sections) == 0 {
		return nil, shiperrors.NewInvalidChangelog(d.Path, "no version section found")
	}
	return &d.Sections[0], nil
}

// Version returns the section for version. Accepts both "v0.6.0" and
// "0.6.0".
func (d *Document) Version(version string) (*Changelog, error) {
	want := NormalizeVersion(version)
	for i := range d.Sections {
		if NormalizeVersion(d.Sections[i].Version) == want {
			return &d.Sections[i], nil
		}
	}
	return nil, &VersionNotFoundError{Path: d.Path, Version: version, AvailableVersions: d.ListVersions()}
}

// ListVersions returns the section headings in document order.
func (d *Document) ListVersions() []string {
	versions := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		versions[i] = s.Version
	}
	return versions
}

// ReadLatest returns the newest section of the changelog at path.
func ReadLatest(path string) (*Changelog, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return doc.Latest()
}

// Merge inserts section directly below the "# Changelog" header of
// existing, separated by one blank line on each side. Everything already
// below the header is kept as is.
func Merge(path string, existing []byte, section Changelog) ([]byte, error) {
	lines := splitLines(string(existing))
	start := headerIndex(lines)
	if start < 0 {
		return nil, shiperrors.NewInvalidChangelog(path, "missing \""+Header+"\" header")
	}

	var sb strings.Builder
	for _, line := range lines[:start+1] {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(section.Markdown(), "\n"))
	sb.WriteString("\n")

	rest := trimBlankLines(lines[start+1:])
	if len(rest) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(rest, "\n"))
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// NewDocument returns a fresh changelog holding only section.
func NewDocument(section Changelog) []byte {
	return []byte(Header + "\n\n" + strings.TrimRight(section.Markdown(), "\n") + "\n")
}

// MergeFile prepends section to the changelog at path, creating the file
// when it does not exist.
func MergeFile(path string, section Changelog) error {
	existing, err := os.ReadFile(path)
	var out []byte
	switch {
	case os.IsNotExist(err):
		out = NewDocument(section)
	case err != nil:
		return shiperrors.NewIO(path, err)
	default:
		if out, err = Merge(path, existing, section); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return shiperrors.NewIO(path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return shiperrors.NewIO(path, err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func headerIndex(lines []string) int {
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == Header {
			return i
		}
	}
	return -1
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
