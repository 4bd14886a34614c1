package changelog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain    bool // Disable colors
	MaxWidth int  // Maximum line width (0 = auto-detect)
}

var (
	versionStyle = color.New(color.Bold, color.FgCyan)
	groupStyle   = color.New(color.Bold)
	hashStyle    = color.New(color.FgYellow)
)

// FormatTerminal writes a version section with terminal styling. Long
// lines are wrapped to the terminal width.
func FormatTerminal(c *Changelog, w io.Writer, opts FormatOptions) error {
	width := resolveWidth(opts.MaxWidth)

	if err := writeVersionHeader(c.Version, w, opts); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if c.Body == "" {
		return nil
	}

	for _, line := range strings.Split(c.Body, "\n") {
		if err := writeBodyLine(line, w, opts, width); err != nil {
			return err
		}
	}
	return nil
}

// writeVersionHeader writes the version header line.
func writeVersionHeader(version string, w io.Writer, opts FormatOptions) error {
	if opts.Plain {
		_, err := fmt.Fprintf(w, "## %s\n\n", version)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n\n", versionStyle.Sprint(version))
	return err
}

func writeBodyLine(line string, w io.Writer, opts FormatOptions, width int) error {
	switch {
	case strings.HasPrefix(line, "### "):
		title := strings.TrimPrefix(line, "### ")
		if opts.Plain {
			_, err := fmt.Fprintf(w, "### %s\n", title)
			return err
		}
		_, err := fmt.Fprintln(w, groupStyle.Sprint(title))
		return err

	case strings.HasPrefix(line, "- "):
		text := wrapText(line, width, "  ")
		if !opts.Plain {
			text = highlightHash(text)
		}
		_, err := fmt.Fprintln(w, text)
		return err

	default:
		_, err := fmt.Fprintln(w, line)
		return err
	}
}

// highlightHash colors the first inline code span, which holds the short
// commit hash when the line is attributed.
func highlightHash(line string) string {
	start := strings.Index(line, "`")
	if start < 0 {
		return line
	}
	end := strings.Index(line[start+1:], "`")
	if end < 0 {
		return line
	}
	end += start + 1
	return line[:start] + hashStyle.Sprint(line[start:end+1]) + line[end+1:]
}

// resolveWidth determines the terminal width to use.
func resolveWidth(maxWidth int) int {
	if maxWidth > 0 {
		return maxWidth
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// wrapText wraps text to fit within maxWidth, using indent for continuation lines.
func wrapText(text string, maxWidth int, indent string) string {
	if maxWidth <= len(indent) || len(text) <= maxWidth {
		return text
	}

	var lines []string
	remaining := text
	limit := maxWidth

	for len(remaining) > limit {
		// Find the last space within the limit
		breakPoint := -1
		for i := limit - 1; i > 0; i-- {
			if remaining[i] == ' ' {
				breakPoint = i
				break
			}
		}
		if breakPoint < 0 {
			// A single long word, such as a URL, is never split.
			next := strings.IndexByte(remaining, ' ')
			if next < 0 {
				break
			}
			breakPoint = next
		}

		lines = append(lines, remaining[:breakPoint])
		remaining = strings.TrimLeft(remaining[breakPoint:], " ")
		limit = maxWidth - len(indent)
	}

	if len(remaining) > 0 {
		lines = append(lines, remaining)
	}

	return strings.Join(lines, "\n"+indent)
}
