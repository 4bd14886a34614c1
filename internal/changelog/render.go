package changelog

import (
	"fmt"
	"strings"
)

// RenderSection builds the version section for version from groups. Empty
// groups are omitted.
func RenderSection(version string, groups []Group) Changelog {
	var b strings.Builder
	renderGroups(groups, &b)
	return Changelog{Version: VersionHeading(version), Body: b.String()}
}

// renderGroups writes each group as a "### <title>" subsection.
func renderGroups(groups []Group, b *strings.Builder) {
	first := true
	for _, g := range groups {
		if len(g.Lines) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		first = false
		renderGroup(g, b)
	}
}

// renderGroup writes a single group with its lines.
func renderGroup(g Group, b *strings.Builder) {
	b.WriteString("### " + g.Title + "\n\n")
	b.WriteString(strings.Join(g.Lines, "\n"))
}

// FormatLine renders one changelog line:
//
//	- [`abc1234`](https://host/o/r/commit/abc1234...): summary ([#12](https://host/o/r/pull/12) by @bob)
//
// The commit, pull request and author segments are each omitted when
// unknown. Continuation lines of a multi-line summary are indented by two
// spaces so they stay inside the list item.
func FormatLine(summary string, a Attribution) string {
	var b strings.Builder
	b.WriteString("- ")

	if a.Commit != nil {
		short := "`" + a.Commit.ShortHash() + "`"
		if a.CommitURL != "" {
			fmt.Fprintf(&b, "[%s](%s): ", short, a.CommitURL)
		} else {
			b.WriteString(short + ": ")
		}
	}

	b.WriteString(indentContinuation(strings.TrimSpace(summary)))

	if pr := a.PR; pr != nil {
		if pr.URL != "" {
			fmt.Fprintf(&b, " ([#%d](%s)", pr.Number, pr.URL)
		} else {
			fmt.Fprintf(&b, " (#%d", pr.Number)
		}
		if pr.Author != "" {
			b.WriteString(" by @" + pr.Author)
		}
		b.WriteString(")")
	}
	return b.String()
}

func indentContinuation(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if line != "" {
			line = "  " + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
