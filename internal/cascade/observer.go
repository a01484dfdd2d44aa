package cascade

import "github.com/nao1215/hitscan/internal/model"

// TierResult is what one tier did for one card.
type TierResult struct {
	Tier Tier

	// Candidates are the ranked hrefs or identifiers the tier worked from.
	Candidates []string

	// Targets is the number of candidates, or probe targets for TierProbe.
	Targets int

	// Clicks is the number of probe clicks. Zero for other tiers.
	Clicks int

	// Visits is the number of views extracted.
	Visits int

	// Records is the number of records the tier added.
	Records int
}

// Stat converts the result into the report's diagnostic form.
func (r TierResult) Stat() model.TierStat {
	return model.TierStat{
		Tier:    r.Tier.String(),
		Targets: r.Targets,
		Visits:  r.Visits,
		Records: r.Records,
	}
}

// Observer receives tier statistics as the cascade runs.
type Observer interface {
	TierFinished(card model.Card, result TierResult)
}

// Result is the outcome of running the cascade on one card.
type Result struct {
	// Records are all records collected, resolved where possible.
	Records []model.HitRecord

	// Tiers lists the tiers that ran, in order.
	Tiers []TierResult
}

// Empty reports whether the whole cascade came up with nothing.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Stats returns the per-tier diagnostics.
func (r Result) Stats() []model.TierStat {
	out := make([]model.TierStat, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		out = append(out, t.Stat())
	}
	return out
}
