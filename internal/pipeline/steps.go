package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/hitscan/internal/aggregate"
	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/model"
	"github.com/nao1215/hitscan/internal/report"
)

// CardSource lists the cards of a listing page and opens them.
type CardSource interface {
	// Open loads a listing page.
	Open(ctx context.Context, url string) error

	// Cards returns the cards of the current listing.
	Cards(ctx context.Context) ([]model.Card, error)

	// OpenCard opens a card. The bool reports whether the view left the
	// listing.
	OpenCard(ctx context.Context, card model.Card) (bool, error)

	// CloseCard returns to the listing.
	CloseCard(ctx context.Context, card model.Card, navigated bool) error
}

// Session is a browsing session that serves both the card listing and
// the cascade. browser.Session implements it.
type Session interface {
	CardSource
	cascade.Browser
}

// Observer receives per-card and capture counters.
// metrics.Metrics implements it.
type Observer interface {
	ObserveCard(outcome model.CardOutcome)
	ObserveRing(stats capture.RingStats)
}

// CrawlStep crawls every listing of the report and runs the fallback
// cascade on each card. Rows are stamped with the card's source URL and
// the time they were scraped.
type CrawlStep struct {
	session    Session
	ring       *capture.Ring
	controller *cascade.Controller
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time

	cascadeOpts []cascade.Option
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlObserver sets the receiver of card and ring counters.
func WithCrawlObserver(o Observer) CrawlStepOption {
	return func(s *CrawlStep) {
		s.observer = o
	}
}

// WithCascadeOptions passes options to the cascade controller.
func WithCascadeOptions(opts ...cascade.Option) CrawlStepOption {
	return func(s *CrawlStep) {
		s.cascadeOpts = append(s.cascadeOpts, opts...)
	}
}

// WithClock sets the clock used for ScrapedAt.
func WithClock(now func() time.Time) CrawlStepOption {
	return func(s *CrawlStep) {
		s.now = now
	}
}

// NewCrawlStep creates a crawl step. ring must be the ring session pushes
// its responses into.
func NewCrawlStep(session Session, ring *capture.Ring, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		session: session,
		ring:    ring,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.controller = cascade.New(session, ring, s.cascadeOpts...)
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls each start URL in turn. A listing that cannot be opened is
// logged and skipped; ErrNoListing is returned only when none could.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	defer func() {
		if s.observer != nil {
			s.observer.ObserveRing(s.ring.Stats())
		}
	}()

	var errs []error
	for _, listingURL := range report.StartURLs {
		if ctx.Err() != nil {
			s.logger.Warn("crawl interrupted, keeping partial results", "cards", len(report.Cards))
			return nil
		}
		if err := s.crawlListing(ctx, report, listingURL); err != nil {
			s.logger.Warn("failed to crawl listing", "url", listingURL, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 && len(errs) == len(report.StartURLs) {
		return fmt.Errorf("%w: %w", ErrNoListing, errors.Join(errs...))
	}
	return nil
}

func (s *CrawlStep) crawlListing(ctx context.Context, report *model.CrawlReport, listingURL string) error {
	if err := s.session.Open(ctx, listingURL); err != nil {
		return fmt.Errorf("failed to open listing %s: %w", listingURL, err)
	}
	cards, err := s.session.Cards(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cards of %s: %w", listingURL, err)
	}
	if len(cards) == 0 {
		s.logger.Warn("no cards found", "url", listingURL)
	}
	s.logger.Info("listing opened", "url", listingURL, "cards", len(cards))

	for _, card := range cards {
		if ctx.Err() != nil {
			s.logger.Warn("crawl interrupted, keeping partial results", "card", card.Index)
			return nil
		}
		outcome, rows := s.crawlCard(ctx, listingURL, card)
		report.AddCard(outcome, rows)
		if s.observer != nil {
			s.observer.ObserveCard(report.Cards[len(report.Cards)-1])
		}
	}
	return nil
}

func (s *CrawlStep) crawlCard(ctx context.Context, listingURL string, card model.Card) (model.CardOutcome, []model.DetailRow) {
	// Responses of the listing belong to no card.
	s.ring.SnapshotAndClear()

	outcome := model.CardOutcome{Card: card}
	navigated, err := s.session.OpenCard(ctx, card)
	if err != nil {
		s.logger.Warn("failed to open card", "card", card.Index, "href", card.Href, "error", err)
		outcome.Error = err.Error()
		s.closeCard(ctx, card, false)
		return outcome, nil
	}
	outcome.Navigated = navigated
	outcome.SourceURL = sourceURL(s.session.CurrentURL(), card, listingURL, navigated)

	result := s.controller.Run(ctx, card)
	outcome.Empty = result.Empty()
	outcome.Tiers = result.Stats()

	scrapedAt := s.now()
	rows := make([]model.DetailRow, 0, len(result.Records))
	for _, r := range result.Records {
		rows = append(rows, model.DetailRow{
			Identifier: r.Identifier,
			GameCount:  r.GameCount,
			Kind:       r.Kind,
			SourceURL:  outcome.SourceURL,
			ScrapedAt:  scrapedAt,
		})
	}
	if outcome.Empty {
		s.logger.Warn("no hits found for card", "card", card.Index, "title", card.Title)
	} else {
		s.logger.Info("card crawled", "card", card.Index, "rows", len(rows))
	}

	s.closeCard(ctx, card, navigated)
	return outcome, rows
}

func (s *CrawlStep) closeCard(ctx context.Context, card model.Card, navigated bool) {
	if err := s.session.CloseCard(ctx, card, navigated); err != nil {
		s.logger.Debug("failed to return to listing", "card", card.Index, "error", err)
	}
}

// sourceURL is the detail URL when the card navigated, otherwise the card
// link or the listing.
func sourceURL(current string, card model.Card, listingURL string, navigated bool) string {
	if navigated && current != "" {
		return current
	}
	if card.Href != "" {
		return card.Href
	}
	return listingURL
}

// AggregateStep deduplicates, sorts and summarizes the rows and sets the
// run status. It also marks the run as finished.
type AggregateStep struct {
	now func() time.Time
}

// NewAggregateStep creates an aggregation step.
func NewAggregateStep() *AggregateStep {
	return &AggregateStep{now: time.Now}
}

// Name returns the step name.
func (s *AggregateStep) Name() string {
	return "aggregate"
}

// Do replaces the report's rows with the finalized ones.
func (s *AggregateStep) Do(_ context.Context, report *model.CrawlReport) error {
	result := aggregate.Finalize(report.Details)
	report.Details = result.Details
	report.Summary = result.Summary
	report.SetStatus(result.Status)
	if report.FinishedAt.IsZero() {
		report.FinishedAt = s.now()
	}
	return nil
}

// RunStore persists a finished run. database.CrawlDB implements it.
type RunStore interface {
	SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error)
}

// StoreStep saves the run to the history database.
type StoreStep struct {
	store  RunStore
	logger *slog.Logger
}

// NewStoreStep creates a store step.
func NewStoreStep(store RunStore, logger *slog.Logger) *StoreStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do saves the report and sets its ID.
func (s *StoreStep) Do(ctx context.Context, report *model.CrawlReport) error {
	id, err := s.store.SaveRun(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.Info("run saved", "run_id", id)
	return nil
}

// ExportStep writes the detail and summary CSV files.
type ExportStep struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
	files  report.CSVFiles
}

// NewExportStep creates an export step writing into dir.
func NewExportStep(dir string, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{dir: dir, now: time.Now, logger: logger}
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do writes the CSV files. An empty report writes nothing.
func (s *ExportStep) Do(_ context.Context, r *model.CrawlReport) error {
	files, err := report.ExportCSV(s.dir, r, s.now())
	if err != nil {
		return err
	}
	s.files = files
	if files.Detail == "" {
		s.logger.Warn("no hit rows, nothing exported")
		return nil
	}
	s.logger.Info("csv exported", "detail", files.Detail, "summary", files.Summary)
	return nil
}

// Files returns the paths written by the last Do.
func (s *ExportStep) Files() report.CSVFiles {
	return s.files
}

// MetricsRecorder records the result of a run and writes it out.
// metrics.Metrics implements it.
type MetricsRecorder interface {
	ObserveReport(report *model.CrawlReport)
	WriteTextfile(path string) error
}

// MetricsStep writes the run counters as a Prometheus textfile.
type MetricsStep struct {
	recorder MetricsRecorder
	path     string
}

// NewMetricsStep creates a metrics step writing to path.
func NewMetricsStep(recorder MetricsRecorder, path string) *MetricsStep {
	return &MetricsStep{recorder: recorder, path: path}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Do records the report and writes the textfile.
func (s *MetricsStep) Do(_ context.Context, report *model.CrawlReport) error {
	s.recorder.ObserveReport(report)
	if err := s.recorder.WriteTextfile(s.path); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", s.path, err)
	}
	return nil
}
