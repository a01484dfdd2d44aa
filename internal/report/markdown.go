package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/hitscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	totals := ComputeTotals(report)

	w.writeHeader(md, report, totals)
	w.writeAlert(md, report, totals)
	w.writeSummary(md, report, totals)
	w.writeCards(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport, totals Totals) {
	md.H1("hitscan Report")
	md.PlainText("")

	finished := "-"
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.Format("2006-01-02 15:04:05 MST")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URLs", "`" + strings.Join(report.StartURLs, "`, `") + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", finished},
			{"Cards", strconv.Itoa(totals.Cards)},
			{"Empty Cards", strconv.Itoa(totals.EmptyCards)},
			{"Detail Rows", strconv.Itoa(totals.DetailRows)},
			{"Status", report.Status.String()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport, totals Totals) {
	if report.ErrorMessage != "" {
		md.Cautionf("The crawl stopped early: %s", report.ErrorMessage)
		md.PlainText("")
	}
	switch report.Status {
	case model.StatusComplete:
		md.Tip("Hits were collected and attributed to " + strconv.Itoa(totals.Machines) + " machine(s).")
	case model.StatusUnresolved:
		md.Warningf("%d hit row(s) were collected but no machine number could be resolved.", totals.DetailRows)
	default:
		md.Cautionf("No hit rows were collected from %d card(s).", totals.Cards)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport, totals Totals) {
	md.H2("Machine Summary")
	md.PlainText("")

	if totals.BIG+totals.REG > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Bonus Distribution"),
			piechart.WithShowData(true),
		)
		if totals.BIG > 0 {
			chart.LabelAndIntValue("BIG", uint64(totals.BIG))
		}
		if totals.REG > 0 {
			chart.LabelAndIntValue("REG", uint64(totals.REG))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if len(report.Summary) == 0 {
		md.PlainText("No machine could be summarized.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Summary))
	for i, s := range report.Summary {
		rows[i] = summaryCells(s)
	}
	md.Table(markdown.TableSet{Header: summaryHeader, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCards(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Cards")
	md.PlainText("")

	if len(report.Cards) == 0 {
		md.PlainText("No cards were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Cards))
	for i, c := range report.Cards {
		title := c.Card.Title
		if title == "" {
			title = "-"
		}
		result := strconv.Itoa(c.Rows) + " row(s)"
		switch {
		case c.Error != "":
			result = "error: " + truncateString(c.Error, 60)
		case c.Empty:
			result = "empty"
		}
		rows[i] = []string{
			strconv.Itoa(c.Card.Index),
			truncateString(title, 40),
			result,
			tierSummary(c.Tiers),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Result", "Tiers"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by hitscan %s*", Version)
}

// tierSummary renders tier diagnostics as "tier:records/visits" pairs.
func tierSummary(tiers []model.TierStat) string {
	if len(tiers) == 0 {
		return "-"
	}
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = t.Tier + ":" + strconv.Itoa(t.Records) + "/" + strconv.Itoa(t.Visits)
	}
	return strings.Join(parts, " ")
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
