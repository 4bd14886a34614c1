package changeset

import (
	"fmt"
	"strings"
)

// BumpLevel describes the version impact of a change.
// Levels are totally ordered so the most severe one can be selected with max.
type BumpLevel int

const (
	Unchanged BumpLevel = iota
	Patch
	Minor
	Major
)

// String returns the lowercase name used in changeset files.
func (l BumpLevel) String() string {
	switch l {
	case Unchanged:
		return "unchanged"
	case Patch:
		return "patch"
	case Minor:
		return "minor"
	case Major:
		return "major"
	default:
		return fmt.Sprintf("BumpLevel(%d)", int(l))
	}
}

// ParseLevel parses one of the three level words accepted in changeset files.
func ParseLevel(s string) (BumpLevel, error) {
	switch strings.TrimSpace(s) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	default:
		return Unchanged, fmt.Errorf("invalid bump level %q (expected major, minor or patch)", s)
	}
}

// ParseMark splits a `level[:tag]` token.
func ParseMark(mark string) (BumpLevel, string, error) {
	levelPart, tag, _ := strings.Cut(mark, ":")
	level, err := ParseLevel(levelPart)
	if err != nil {
		return Unchanged, "", err
	}
	return level, strings.TrimSpace(tag), nil
}

// ChangePackage is one package entry of a changeset.
type ChangePackage struct {
	Name  string
	Level BumpLevel
	// Tag is an optional category label used only for changelog grouping.
	Tag string
}

// Mark renders the `level[:tag]` token for this entry.
func (p ChangePackage) Mark() string {
	if p.Tag == "" {
		return p.Level.String()
	}
	return p.Level.String() + ":" + p.Tag
}
