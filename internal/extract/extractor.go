package extract

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/hitscan/internal/model"
)

// Batch is the output of one extraction: hit records (identifier possibly
// empty) and the pool of identifier candidates seen along the way.
type Batch struct {
	Records    []model.HitRecord
	Candidates []model.Identifier
}

func (b *Batch) merge(other Batch) {
	b.Records = append(b.Records, other.Records...)
	b.Candidates = append(b.Candidates, other.Candidates...)
}

// Input is everything gathered for one extraction round.
type Input struct {
	// Blobs are page markup or inner text of the current view and its frames.
	Blobs []string

	// Samples are responses drained from the capture ring.
	Samples []model.ResponseSample

	// HrefHint is the link that led to the current view, if any.
	HrefHint string
}

// Extractor parses an Input into a Batch.
// It is safe for concurrent use.
type Extractor struct {
	logger      *slog.Logger
	concurrency int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithConcurrency caps how many documents are parsed at once.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger:      slog.Default(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses every blob as HTML and every sample as JSON or HTML
// depending on its content type. Documents are parsed in parallel but the
// result is merged in input order, so the output is deterministic.
//
// For each sample the href hint and the sample URL add URL identifiers to
// the candidate pool. The only error is the context's.
func (e *Extractor) Extract(ctx context.Context, in Input) (Batch, error) {
	total := len(in.Blobs) + len(in.Samples)
	parts := make([]Batch, total)

	hint, hasHint := IdentifierFromURL(in.HrefHint)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, blob := range in.Blobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[i] = ParseHTML(blob)
			return nil
		})
	}
	for j, sample := range in.Samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[len(in.Blobs)+j] = parseSample(sample, hint, hasHint)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	var out Batch
	for _, p := range parts {
		out.merge(p)
	}
	e.logger.Debug("extraction finished",
		"blobs", len(in.Blobs),
		"samples", len(in.Samples),
		"records", len(out.Records),
		"unresolved", recordsWithoutIdentifier(out.Records),
		"candidates", len(out.Candidates),
	)
	return out, nil
}

func parseSample(s model.ResponseSample, hint model.Identifier, hasHint bool) Batch {
	var b Batch
	if hasHint {
		b.Candidates = append(b.Candidates, hint)
	}
	if id, ok := IdentifierFromURL(s.URL); ok {
		b.Candidates = append(b.Candidates, id)
	}
	text := DecodeBody(s.Body)
	if text == "" {
		return b
	}
	if s.IsJSON() {
		b.merge(ParseJSON(text))
	} else {
		b.merge(ParseHTML(text))
	}
	return b
}
