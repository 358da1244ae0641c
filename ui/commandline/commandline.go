// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI tools for the command line: report tables, a progress bar for
// the balancing pass and the parsing of configuration settings.
package commandline

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/ensemble"
	"github.com/gomlx/leafscan/pkg/split"
	"github.com/muesli/termenv"
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	bestStyle   = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1).Foreground(lipgloss.Color("#50A050"))
)

// SetColors enables or disables colors and styles in the reports.
// If enabled, the profile is detected from the terminal.
func SetColors(enabled bool) {
	if !enabled {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
}

// CountsColumn is one column of ReportCounts.
type CountsColumn struct {
	Title  string
	Counts dataset.Counts
}

// ReportCounts prints a table with one row per category and one column per CountsColumn, plus a total row.
func ReportCounts(w io.Writer, title string, columns ...CountsColumn) {
	table := newTable()
	headers := []string{"Class"}
	for _, c := range columns {
		headers = append(headers, c.Title)
	}
	table.Headers(headers...)
	for _, label := range dataset.AllLabels() {
		row := []string{label.String()}
		for _, c := range columns {
			row = append(row, humanize.Comma(int64(c.Counts[label])))
		}
		table.Row(row...)
	}
	totals := []string{"total"}
	for _, c := range columns {
		totals = append(totals, humanize.Comma(int64(c.Counts.Total())))
	}
	table.Row(totals...)
	printTable(w, title, table)
}

// ReportSplit prints the number of images per category of each subset of the split, and the fraction of
// the subset they represent.
func ReportSplit(w io.Writer, s split.Split) {
	table := newTable()
	headers := []string{"Class"}
	headers = append(headers, split.Names()...)
	table.Headers(headers...)
	for _, label := range dataset.AllLabels() {
		row := []string{label.String()}
		for _, name := range split.Names() {
			counts := s.Subset(name).Counts()
			row = append(row, fmt.Sprintf("%s (%.1f%%)",
				humanize.Comma(int64(counts[label])), 100*counts.Fraction(label)))
		}
		table.Row(row...)
	}
	totals := []string{"total"}
	for _, name := range split.Names() {
		totals = append(totals, humanize.Comma(int64(len(s.Subset(name)))))
	}
	table.Row(totals...)
	printTable(w, "Split", table)
}

// ReportEval prints the accuracy, precision and recall of each classifier of the report, highlighting the
// best accuracy, followed by the confusion matrix of the ensemble (or of the only classifier).
func ReportEval(w io.Writer, report *ensemble.Report) {
	if report == nil || len(report.Metrics) == 0 {
		return
	}
	bestIdx := 0
	for ii, m := range report.Metrics {
		if m.Accuracy > report.Metrics[bestIdx].Accuracy {
			bestIdx = ii
		}
	}

	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			case col == 1 && row == bestIdx:
				return bestStyle
			default:
				return numberStyle
			}
		})
	headers := []string{"Classifier", "Accuracy"}
	for _, label := range dataset.AllLabels() {
		headers = append(headers, "P("+label.String()+")", "R("+label.String()+")")
	}
	table.Headers(headers...)
	for _, m := range report.Metrics {
		row := []string{m.Name, fmt.Sprintf("%.2f%%", 100*m.Accuracy)}
		for _, label := range dataset.AllLabels() {
			row = append(row, fmt.Sprintf("%.3f", m.Precision[label]), fmt.Sprintf("%.3f", m.Recall[label]))
		}
		table.Row(row...)
	}
	printTable(w, fmt.Sprintf("Results on %s", report.Dataset), table)

	final := report.Ensemble()
	if final == nil {
		final = report.Metrics[0]
	}
	ReportConfusion(w, final)
}

// ReportConfusion prints the confusion matrix of m: one row per true label, one column per predicted label.
func ReportConfusion(w io.Writer, m *ensemble.Metrics) {
	table := newTable()
	headers := []string{"true \\ predicted"}
	for _, label := range dataset.AllLabels() {
		headers = append(headers, label.String())
	}
	table.Headers(headers...)
	for _, trueLabel := range dataset.AllLabels() {
		row := []string{trueLabel.String()}
		for _, predicted := range dataset.AllLabels() {
			row = append(row, humanize.Comma(int64(m.Confusion[trueLabel][predicted])))
		}
		table.Row(row...)
	}
	printTable(w, fmt.Sprintf("Confusion matrix of %s", m.Name), table)
}

func printTable(w io.Writer, title string, table *lgtable.Table) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(title))
	_, _ = fmt.Fprintln(w, table.String())
}
