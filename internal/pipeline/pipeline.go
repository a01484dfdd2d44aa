package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/hitscan/internal/model"
)

// Step is one stage of a crawl run. Steps are executed in sequence, each
// receiving the report built up by the previous ones.
type Step interface {
	// Do executes the step. Soft failures are recorded in the report and
	// logged; the returned error is reserved for failures that make the
	// step's output unusable.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution even
// when a step fails. The error is still recorded in the report. A failed
// export must not prevent the run from being stored, so the finishing
// pipeline of the CLI sets it.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence. Cancellation is checked between
// steps; a running step handles ctx itself.
//
// It returns the first error when continueOnError is false, and nil
// otherwise. Errors are always recorded in the report.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "before", step.Name(), "reason", err)
			report.SetError(err)
			return err
		}
		if err := p.runStep(ctx, step, report); err != nil && !p.continueOnError {
			return err
		}
	}
	return nil
}

// runStep executes one step and records it as performed unless it failed
// in a pipeline that stops on errors.
func (p *Pipeline) runStep(ctx context.Context, step Step, report *model.CrawlReport) error {
	log := p.logger.With("step", step.Name())
	log.Info("executing step", "start_urls", report.StartURLs)

	began := time.Now()
	err := step.Do(ctx, report)
	elapsed := time.Since(began)
	if err != nil {
		log.Error("step failed", "elapsed", elapsed, "error", err)
		report.SetError(err)
		if !p.continueOnError {
			return err
		}
	} else {
		log.Debug("step completed", "elapsed", elapsed)
	}
	report.PerformedSteps = append(report.PerformedSteps, step.Name())
	return err
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
