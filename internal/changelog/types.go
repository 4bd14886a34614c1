package changelog

import (
	"strings"

	"github.com/ariel-frischer/shipset/internal/git"
	"github.com/ariel-frischer/shipset/internal/github"
)

// Header is the line every changelog document starts with.
const Header = "# Changelog"

// DefaultGroup collects lines whose changeset tag has no configured label.
const DefaultGroup = "Changes"

// Changelog is a single version section of a changelog document.
type Changelog struct {
	// Version is the heading text after "## ", for example "v1.2.0".
	Version string
	// Body is the content below the heading without surrounding blank lines.
	Body string
}

// Markdown returns the section including its heading.
func (c Changelog) Markdown() string {
	if c.Body == "" {
		return "## " + c.Version + "\n"
	}
	return "## " + c.Version + "\n\n" + c.Body + "\n"
}

// Group is a titled list of rendered changelog lines.
type Group struct {
	Title string
	Lines []string
}

// Attribution links a changeset to where it came from. Every field is
// optional.
type Attribution struct {
	Commit    *git.Commit
	CommitURL string
	PR        *github.PullRequest
}

// VersionHeading returns the heading text for a version, "v" prefixed.
func VersionHeading(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

// NormalizeVersion removes a leading "v" so "v0.6.0" and "0.6.0" compare equal.
func NormalizeVersion(version string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v")
}
