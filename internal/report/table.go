package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nao1215/hitscan/internal/model"
)

var summaryHeader = []string{"identifier", "count_BIG", "count_REG", "mean_BIG", "mean_REG"}

// TableWriter prints the machine summary as a terminal table.
type TableWriter struct {
	baseWriter
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer) *TableWriter {
	return &TableWriter{baseWriter: newBaseWriter(output)}
}

// Write prints the status line, the summary table and the card counts.
func (w *TableWriter) Write(report *model.CrawlReport) (int, error) {
	out := &countingWriter{w: w.output}
	totals := ComputeTotals(report)

	if _, err := fmt.Fprintf(out, "status: %s  cards: %d (empty %d)  rows: %d\n",
		report.Status, totals.Cards, totals.EmptyCards, totals.DetailRows); err != nil {
		return out.n, err
	}
	if len(report.Summary) == 0 {
		return out.n, nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	// Keep the CSV column names as they are.
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(out)
	header := make(table.Row, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, s := range report.Summary {
		cells := summaryCells(s)
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"total", totals.BIG, totals.REG, "", ""})
	t.Render()
	return out.n, nil
}

// summaryCells formats one aggregation row the way every output shows it.
func summaryCells(s model.AggregationRow) []string {
	return []string{
		s.Identifier.String(),
		strconv.Itoa(s.CountBIG),
		strconv.Itoa(s.CountREG),
		formatMean(s.MeanBIG),
		formatMean(s.MeanREG),
	}
}

func formatMean(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
