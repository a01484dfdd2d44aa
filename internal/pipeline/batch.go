package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/hitscan/internal/model"
)

// BatchProcessor crawls several listings, each with a fresh pipeline and
// therefore its own browsing session and capture ring.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for one start URL.
	pipelineFactory func(startURL string) *Pipeline

	// concurrency is the maximum number of listings crawled at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sessions.
// Default is 1: listings are crawled one after another.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(startURL string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs one pipeline per start URL and returns the reports in
// start URL order. A failed pipeline does not stop the others; its error
// is recorded in its report. Listings not started before ctx is cancelled
// have no report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, startURLs []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch processing",
		"listings", len(startURLs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine writes its own index.
	results := make([]*model.CrawlReport, len(startURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, startURL := range startURLs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("crawling listing",
				"url", startURL,
				"index", i+1,
				"total", len(startURLs),
			)
			report := model.NewCrawlReport(startURL)
			if err := bp.pipelineFactory(startURL).Execute(gctx, report); err != nil {
				bp.logger.Warn("listing failed", "url", startURL, "error", err)
			}
			results[i] = report
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"listings", len(startURLs),
		"elapsed", time.Since(startTime),
	)
	return results, err
}

// Merge combines the reports of a batch into one report for startURLs.
// Cards and rows keep batch order; errors are joined.
func Merge(startURLs []string, reports []*model.CrawlReport) *model.CrawlReport {
	merged := model.NewCrawlReport(startURLs...)
	var errs []error
	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.StartedAt.Before(merged.StartedAt) {
			merged.StartedAt = r.StartedAt
		}
		merged.Cards = append(merged.Cards, r.Cards...)
		merged.Details = append(merged.Details, r.Details...)
		for _, step := range r.PerformedSteps {
			if !slices.Contains(merged.PerformedSteps, step) {
				merged.PerformedSteps = append(merged.PerformedSteps, step)
			}
		}
		if r.Error != nil {
			errs = append(errs, r.Error)
		}
	}
	merged.SetError(errors.Join(errs...))
	return merged
}
