package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"squeeze/internal/transcode"
)

type SummaryRow struct {
	Label string
	Value string
}

// RenderSummary draws label/value rows between two rules.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := dimStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}
	for _, row := range rows {
		label := padCells(row.Label, labelWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(row.Value))
		lines = append(lines, line)
	}
	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// TotalsRows summarises a finished batch. Zero counters are left out.
func TotalsRows(t transcode.Totals) []SummaryRow {
	rows := []SummaryRow{
		{Label: "Images", Value: fmt.Sprintf("%d", t.Tasks)},
		{Label: "Size", Value: fmt.Sprintf("%s -> %s", FormatSize(t.InputBytes), FormatSize(t.OutputBytes))},
		{Label: "Ratio", Value: fmt.Sprintf("%.0f%%", t.Ratio())},
		{Label: "Saved", Value: savedText(t.Saved())},
		{Label: "Elapsed", Value: transcode.FormatDuration(t.Elapsed)},
	}
	if t.Resized > 0 {
		rows = append(rows, SummaryRow{Label: "Resized", Value: fmt.Sprintf("%d", t.Resized)})
	}
	if t.KeptOriginal > 0 {
		rows = append(rows, SummaryRow{Label: "Kept original (output larger)", Value: fmt.Sprintf("%d", t.KeptOriginal)})
	}
	if t.Errors > 0 {
		rows = append(rows, SummaryRow{Label: "Failed (originals kept)", Value: fmt.Sprintf("%d", t.Errors)})
	}
	return rows
}

func savedText(saved int64) string {
	if saved < 0 {
		return "+" + FormatSize(-saved)
	}
	return "-" + FormatSize(saved)
}

var valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
