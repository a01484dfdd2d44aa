// Package aggregate deduplicates the detail rows of a crawl and computes
// per-machine bonus statistics.
package aggregate

import (
	"sort"

	"github.com/nao1215/hitscan/internal/model"
)

// Result is the finalized output of a crawl.
type Result struct {
	// Details are deduplicated and sorted. Unresolved rows sort last.
	Details []model.DetailRow

	// Summary has one row per resolved identifier, in identifier order.
	Summary []model.AggregationRow

	// Status tells which outputs are populated.
	Status model.Status
}

// Finalize normalizes, deduplicates and sorts rows, then builds the
// summary. Rows are deduplicated on (identifier, game count, kind) and the
// first occurrence keeps its source URL and timestamp. Rows whose kind is
// empty are dropped.
func Finalize(rows []model.DetailRow) Result {
	details := dedupe(normalizeRows(rows))
	sort.SliceStable(details, func(i, j int) bool {
		return lessDetail(details[i], details[j])
	})

	summary := summarize(details)
	return Result{
		Details: details,
		Summary: summary,
		Status:  statusOf(details, summary),
	}
}

func normalizeRows(rows []model.DetailRow) []model.DetailRow {
	out := make([]model.DetailRow, 0, len(rows))
	for _, r := range rows {
		kind, ok := model.NormalizeKind(string(r.Kind))
		if !ok || r.GameCount < 0 {
			continue
		}
		r.Kind = kind
		if id, ok := model.NormalizeIdentifier(string(r.Identifier)); ok {
			r.Identifier = id
		} else {
			r.Identifier = ""
		}
		out = append(out, r)
	}
	return out
}

func dedupe(rows []model.DetailRow) []model.DetailRow {
	seen := make(map[model.HitRecord]bool, len(rows))
	out := make([]model.DetailRow, 0, len(rows))
	for _, r := range rows {
		key := r.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func lessDetail(a, b model.DetailRow) bool {
	if a.Identifier != b.Identifier {
		return a.Identifier.Less(b.Identifier)
	}
	if a.GameCount != b.GameCount {
		return a.GameCount < b.GameCount
	}
	return a.Kind < b.Kind
}

type tally struct {
	count [2]int
	sum   [2]int
}

func kindIndex(k model.Kind) int {
	if k == model.KindREG {
		return 1
	}
	return 0
}

func summarize(details []model.DetailRow) []model.AggregationRow {
	tallies := make(map[model.Identifier]*tally)
	var ids []model.Identifier
	for _, r := range details {
		if r.Identifier.IsZero() {
			continue
		}
		t, ok := tallies[r.Identifier]
		if !ok {
			t = &tally{}
			tallies[r.Identifier] = t
			ids = append(ids, r.Identifier)
		}
		i := kindIndex(r.Kind)
		t.count[i]++
		t.sum[i] += r.GameCount
	}

	sort.SliceStable(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	out := make([]model.AggregationRow, 0, len(ids))
	for _, id := range ids {
		t := tallies[id]
		out = append(out, model.AggregationRow{
			Identifier: id,
			CountBIG:   t.count[0],
			CountREG:   t.count[1],
			MeanBIG:    mean(t.sum[0], t.count[0]),
			MeanREG:    mean(t.sum[1], t.count[1]),
		})
	}
	return out
}

func mean(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func statusOf(details []model.DetailRow, summary []model.AggregationRow) model.Status {
	switch {
	case len(details) == 0:
		return model.StatusEmpty
	case len(summary) == 0:
		return model.StatusUnresolved
	default:
		return model.StatusComplete
	}
}
