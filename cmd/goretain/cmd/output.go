package cmd

import (
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// pad right-pads a cell to the given display width, rune-width aware so
// table columns stay aligned for any category or field name.
func pad(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// columnWidth returns the widest display width among the header and values.
func columnWidth(header string, values []string) int {
	width := runewidth.StringWidth(header)
	for _, v := range values {
		if w := runewidth.StringWidth(v); w > width {
			width = w
		}
	}
	return width
}

// statusText colors a compliance or manifest status for terminal output.
func statusText(status string) string {
	switch status {
	case "COMPLIANT", "COMPLETED":
		return color.Green.Sprint(status)
	case "NEEDS_ATTENTION", "PARTIAL":
		return color.Yellow.Sprint(status)
	case "HELD":
		return color.Red.Sprint(status)
	default:
		return status
	}
}
