// Package theme holds the terminal styles used by the CLI output.
package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Green   = lipgloss.Color("#22C55E")
	Yellow  = lipgloss.Color("#EAB308")
	Orange  = lipgloss.Color("#F97316")
	Red     = lipgloss.Color("#F43F5E")
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Padding(0, 1)

	Cell = lipgloss.NewStyle().
		Padding(0, 1)

	Failure = lipgloss.NewStyle().
		Foreground(Red).
		Bold(true)
)

// bucketColors maps the conventional bucket codes to colors. Other codes
// render in the default text color.
var bucketColors = map[string]color.Color{
	"GREEN":  Green,
	"YELLOW": Yellow,
	"ORANGE": Orange,
	"RED":    Red,
}

// Bucket renders a bucket code in its color.
func Bucket(code string) string {
	s := lipgloss.NewStyle().Bold(true)
	if c, ok := bucketColors[strings.ToUpper(code)]; ok {
		s = s.Foreground(c)
	}
	return s.Render(code)
}

// Table renders rows under the given headers with the house border style.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Header
			}
			return Cell
		})
	return t.String()
}
