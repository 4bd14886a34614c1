// Package version computes next versions from changeset bump levels.
//
// Two modes exist. Semantic mode applies the highest requested bump to the
// major.minor.patch triple, or promotes a prerelease to its final release.
// PreRelease mode advances a named prerelease channel counter.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/ariel-frischer/shipset/internal/changeset"
	shiperrors "github.com/ariel-frischer/shipset/internal/errors"
)

// ModeKind selects how a bump level is applied.
type ModeKind int

const (
	Semantic ModeKind = iota
	PreRelease
)

// Mode is a version mode, with a channel tag for PreRelease.
type Mode struct {
	Kind ModeKind
	Tag  string
}

// SemanticMode returns the default mode.
func SemanticMode() Mode {
	return Mode{Kind: Semantic}
}

// PreReleaseMode returns a prerelease mode on the given channel.
func PreReleaseMode(tag string) Mode {
	return Mode{Kind: PreRelease, Tag: tag}
}

func (m Mode) String() string {
	if m.Kind == PreRelease {
		return fmt.Sprintf("prerelease(%s)", m.Tag)
	}
	return "semantic"
}

var identifierRe = regexp.MustCompile(`^[0-9A-Za-z-]+$`)

// Parse parses a version string as persisted in a manifest.
func Parse(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, shiperrors.NewInvalidVersion(s, err)
	}
	return v, nil
}

// GetBumpLevel returns the most severe level requested for pkg across all
// changesets, or Unchanged when none mention it.
func GetBumpLevel(changesets []*changeset.Changeset, pkg string) changeset.BumpLevel {
	level := changeset.Unchanged
	for _, cs := range changesets {
		for _, p := range cs.Packages {
			if p.Name == pkg && p.Level > level {
				level = p.Level
			}
		}
	}
	return level
}

// Bump applies level to v under mode. Unchanged is a no-op in both modes.
func Bump(v *semver.Version, level changeset.BumpLevel, mode Mode) (*semver.Version, error) {
	if level == changeset.Unchanged {
		return v, nil
	}
	switch mode.Kind {
	case PreRelease:
		return BumpPrerelease(v, mode.Tag)
	default:
		return BumpSemantic(v, level), nil
	}
}

// BumpString parses s and applies Bump, returning the canonical string.
func BumpString(s string, level changeset.BumpLevel, mode Mode) (string, error) {
	v, err := Parse(s)
	if err != nil {
		return "", err
	}
	next, err := Bump(v, level, mode)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}

// BumpSemantic increments the component named by level and zeroes the lower
// ones. A prerelease version is promoted to its release instead, whatever
// the level.
func BumpSemantic(v *semver.Version, level changeset.BumpLevel) *semver.Version {
	if v.Prerelease() != "" {
		return semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	}
	switch level {
	case changeset.Major:
		return semver.New(v.Major()+1, 0, 0, "", "")
	case changeset.Minor:
		return semver.New(v.Major(), v.Minor()+1, 0, "", "")
	case changeset.Patch:
		return semver.New(v.Major(), v.Minor(), v.Patch()+1, "", "")
	default:
		return v
	}
}

// BumpPrerelease advances the prerelease channel named tag.
//
//	1.2.3          -> 1.2.3-<tag>.0
//	1.2.3-<tag>.N  -> 1.2.3-<tag>.N+1
//	1.2.3-<tag>    -> 1.2.3-<tag>.1
//	1.2.3-other.N  -> 1.2.3-<tag>.0
func BumpPrerelease(v *semver.Version, tag string) (*semver.Version, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, shiperrors.NewInvalidPrereleaseTag(tag, "is empty")
	}
	if !identifierRe.MatchString(tag) {
		return nil, shiperrors.NewInvalidPrereleaseTag(tag, "may only contain alphanumerics and hyphens")
	}

	pre := nextPrerelease(v.Prerelease(), tag)
	return semver.New(v.Major(), v.Minor(), v.Patch(), pre, ""), nil
}

func nextPrerelease(current, tag string) string {
	if current == "" {
		return tag + ".0"
	}

	parts := strings.Split(current, ".")
	idx := -1
	for i, part := range parts {
		if part == tag {
			idx = i
			break
		}
	}
	if idx < 0 {
		return tag + ".0"
	}

	if idx+1 < len(parts) {
		if n, err := strconv.ParseUint(parts[idx+1], 10, 64); err == nil {
			parts[idx+1] = strconv.FormatUint(n+1, 10)
			return strings.Join(parts, ".")
		}
	}

	out := make([]string, 0, len(parts)+1)
	out = append(out, parts[:idx+1]...)
	out = append(out, "1")
	out = append(out, parts[idx+1:]...)
	return strings.Join(out, ".")
}
