package report

import "github.com/nao1215/hitscan/internal/model"

// Version is the hitscan version written into reports. The CLI sets it
// from build information.
var Version = "dev"

// Totals are run-wide counts derived from a report.
type Totals struct {
	Cards      int `json:"cards"`
	EmptyCards int `json:"empty_cards"`
	DetailRows int `json:"detail_rows"`
	Unresolved int `json:"unresolved_rows"`
	Machines   int `json:"machines"`
	BIG        int `json:"big"`
	REG        int `json:"reg"`
}

// ComputeTotals counts cards, rows and hits by kind.
func ComputeTotals(report *model.CrawlReport) Totals {
	t := Totals{
		Cards:      len(report.Cards),
		EmptyCards: report.EmptyCards(),
		DetailRows: len(report.Details),
		Machines:   len(report.Summary),
	}
	for _, row := range report.Details {
		if row.Identifier.IsZero() {
			t.Unresolved++
		}
		switch row.Kind {
		case model.KindBIG:
			t.BIG++
		case model.KindREG:
			t.REG++
		}
	}
	return t
}
