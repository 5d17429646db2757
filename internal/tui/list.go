package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/width"

	"squeeze/internal/classify"
)

// NameMax is the display width of the name column.
const NameMax = 40

// FormatSize renders a byte count as KB, whole MB, or GB with one decimal.
func FormatSize(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.1fGB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.0fMB", float64(size)/mb)
	default:
		return fmt.Sprintf("%.0fKB", float64(size)/kb)
	}
}

// DisplayWidth counts terminal cells, with wide East Asian runes taking two.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// Truncate shortens name to max display cells, keeping its extension (or
// trailing slash) and marking the cut with "..".
func Truncate(name string, max int) string {
	if DisplayWidth(name) <= max {
		return name
	}

	base, suffix := name, ""
	switch {
	case strings.HasSuffix(name, "/"):
		base, suffix = name[:len(name)-1], "/"
	case strings.Contains(name, "."):
		idx := strings.LastIndexByte(name, '.')
		base, suffix = name[:idx], name[idx:]
	}

	keep := max - DisplayWidth(suffix) - 2
	if keep < 4 {
		return cut(name, max-2) + ".."
	}
	return cut(base, keep) + ".." + suffix
}

// cut returns the longest prefix of s that fits in n cells.
func cut(s string, n int) string {
	used := 0
	for i, r := range s {
		w := runeWidth(r)
		if used+w > n {
			return s[:i]
		}
		used += w
	}
	return s
}

// RenderEntries draws the numbered selection list. Entries arrive sorted
// ascending by size so the heaviest ends up nearest the prompt.
func RenderEntries(entries []classify.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateHeader = false

	for i, e := range entries {
		marker := "  "
		status := e.Status.String()
		if e.Status == classify.StatusCompress {
			marker = "->"
			status = compressStyle.Render(status)
		} else {
			status = dimStyle.Render(status)
		}
		extra := ""
		if e.Kind == classify.KindFolder {
			extra = fmt.Sprintf(" (%dimg)", e.ImageCount)
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("[%3d]", i+1),
			padCells(Truncate(e.DisplayName, NameMax), NameMax),
			FormatSize(e.Size),
			e.FormatLabel,
			marker + " " + status + extra,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, WidthMin: 7},
		{Number: 4, Align: text.AlignLeft, WidthMin: 12},
		{Number: 5, Align: text.AlignLeft},
	})
	return tw.Render()
}

func padCells(s string, n int) string {
	if w := DisplayWidth(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

var compressStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
