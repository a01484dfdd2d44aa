package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/model"
)

var _ cascade.Observer = (*Metrics)(nil)

func TestTierFinished(t *testing.T) {
	t.Parallel()

	m := New()
	card := model.Card{Index: 0}
	m.TierFinished(card, cascade.TierResult{Tier: cascade.TierDirectLink, Visits: 3, Records: 5})
	m.TierFinished(card, cascade.TierResult{Tier: cascade.TierDirectLink, Visits: 1})

	tier := cascade.TierDirectLink.String()
	if got := testutil.ToFloat64(m.TierRuns.WithLabelValues(tier)); got != 2 {
		t.Errorf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.TierVisits.WithLabelValues(tier)); got != 4 {
		t.Errorf("expected 4 visits, got %v", got)
	}
	if got := testutil.ToFloat64(m.TierRecords.WithLabelValues(tier)); got != 5 {
		t.Errorf("expected 5 records, got %v", got)
	}
}

func TestObserveCard(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCard(model.CardOutcome{Rows: 2})
	m.ObserveCard(model.CardOutcome{Empty: true})
	m.ObserveCard(model.CardOutcome{Empty: true})
	m.ObserveCard(model.CardOutcome{Error: "timeout"})

	tests := map[string]float64{"hits": 1, "empty": 2, "error": 1}
	for outcome, want := range tests {
		if got := testutil.ToFloat64(m.Cards.WithLabelValues(outcome)); got != want {
			t.Errorf("cards{outcome=%q} = %v, want %v", outcome, got, want)
		}
	}
}

func TestObserveRingAndReport(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveRing(capture.RingStats{Pushed: 10, Evicted: 3, Buffered: 7})
	report := model.NewCrawlReport("https://hall.example/")
	report.Details = []model.DetailRow{
		{Identifier: "12", GameCount: 1, Kind: model.KindBIG},
		{Identifier: "12", GameCount: 2, Kind: model.KindBIG},
		{Identifier: "13", GameCount: 3, Kind: model.KindREG},
	}
	report.Summary = []model.AggregationRow{{Identifier: "12"}, {Identifier: "13"}}
	m.ObserveReport(report)

	if got := testutil.ToFloat64(m.ResponsesEvicted); got != 3 {
		t.Errorf("expected 3 evicted, got %v", got)
	}
	if got := testutil.ToFloat64(m.Hits.WithLabelValues("BIG")); got != 2 {
		t.Errorf("expected 2 BIG hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.Machines); got != 2 {
		t.Errorf("expected 2 machines, got %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCard(model.CardOutcome{Rows: 1})
	path := filepath.Join(t.TempDir(), "hitscan.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), `hitscan_cards_total{outcome="hits"} 1`) {
		t.Errorf("expected the card counter in output:\n%s", data)
	}
}
