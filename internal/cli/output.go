package cli

import (
	"fmt"

	"github.com/fatih/color"
)

// Color helper functions for command output
var (
	cGreen  = color.New(color.FgGreen).SprintFunc()
	cYellow = color.New(color.FgYellow).SprintFunc()
	cCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	cDim    = color.New(color.Faint).SprintFunc()
	cBold   = color.New(color.Bold).SprintFunc()
)

// padName left-aligns name to width before coloring so ANSI codes don't
// break the alignment.
func padName(name string, width int) string {
	return cCyan(fmt.Sprintf("%-*s", width, name))
}

func nameWidth(names []string) int {
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	return width
}
