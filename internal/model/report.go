package model

import "time"

// CrawlReport is the result of one crawl run.
// It is built up by the pipeline steps and handed to the writers and the
// history store.
type CrawlReport struct {
	// ID is the database row id once the run has been stored. Zero before.
	ID int64 `json:"id,omitempty"`

	// StartURLs are the listing pages the run started from.
	StartURLs []string `json:"start_urls"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Zero while running.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Cards holds one outcome per processed card, in crawl order.
	Cards []CardOutcome `json:"cards"`

	// Details are the hit rows collected by all cards. After aggregation
	// they are deduplicated and sorted.
	Details []DetailRow `json:"details"`

	// Summary holds one row per resolved identifier.
	Summary []AggregationRow `json:"summary"`

	// Status is set by the aggregation step.
	Status Status `json:"-"`

	// StatusText is the string form of Status for serialization.
	StatusText string `json:"status"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that stopped the run early.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewCrawlReport creates a report for the given start URLs.
func NewCrawlReport(startURLs ...string) *CrawlReport {
	return &CrawlReport{
		StartURLs:  startURLs,
		StartedAt:  time.Now(),
		Cards:      make([]CardOutcome, 0),
		Details:    make([]DetailRow, 0),
		Summary:    make([]AggregationRow, 0),
		Status:     StatusEmpty,
		StatusText: StatusEmpty.String(),
	}
}

// AddCard appends a card outcome and its rows.
func (r *CrawlReport) AddCard(outcome CardOutcome, rows []DetailRow) {
	outcome.Rows = len(rows)
	r.Cards = append(r.Cards, outcome)
	r.Details = append(r.Details, rows...)
}

// SetStatus updates Status and StatusText together.
func (r *CrawlReport) SetStatus(s Status) {
	r.Status = s
	r.StatusText = s.String()
}

// SetError records err on the report. A nil err clears it.
func (r *CrawlReport) SetError(err error) {
	r.Error = err
	if err == nil {
		r.ErrorMessage = ""
		return
	}
	r.ErrorMessage = err.Error()
}

// EmptyCards returns how many cards ended with no rows.
func (r *CrawlReport) EmptyCards() int {
	n := 0
	for _, c := range r.Cards {
		if c.Empty {
			n++
		}
	}
	return n
}

// CardOutcome is what the crawl learned about one card.
type CardOutcome struct {
	// Card is the listing item.
	Card Card `json:"card"`

	// SourceURL is the page the card's rows are attributed to.
	SourceURL string `json:"source_url"`

	// Navigated is true when opening the card left the listing page.
	Navigated bool `json:"navigated"`

	// Rows is the number of detail rows the card produced.
	Rows int `json:"rows"`

	// Empty is true when every fallback tier came up empty.
	Empty bool `json:"empty"`

	// Tiers holds per-tier diagnostics in execution order.
	Tiers []TierStat `json:"tiers,omitempty"`

	// Error is set when the card could not be processed.
	Error string `json:"error,omitempty"`
}

// TierStat is the diagnostic counters of one cascade tier.
type TierStat struct {
	Tier    string `json:"tier"`
	Targets int    `json:"targets"`
	Visits  int    `json:"visits"`
	Records int    `json:"records"`
}
