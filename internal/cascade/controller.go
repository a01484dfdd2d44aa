package cascade

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/nao1215/hitscan/internal/extract"
	"github.com/nao1215/hitscan/internal/model"
	"github.com/nao1215/hitscan/internal/resolve"
)

// Controller runs the fallback cascade against a Browser.
type Controller struct {
	browser   Browser
	responses ResponseSource
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	config    Config
	logger    *slog.Logger
	observer  Observer
	retry     retrypolicy.RetryPolicy[bool]
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig replaces the default settings.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithObserver sets a receiver for per-tier statistics.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(c *Controller) {
		c.extractor = e
	}
}

// New creates a Controller. responses is drained after every navigation.
func New(browser Browser, responses ResponseSource, opts ...Option) *Controller {
	c := &Controller{
		browser:   browser,
		responses: responses,
		resolver:  resolve.New(),
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.extractor == nil {
		c.extractor = extract.NewExtractor(extract.WithLogger(c.logger))
	}
	c.retry = newNavigationRetry(c.config)
	return c
}

func newNavigationRetry(cfg Config) retrypolicy.RetryPolicy[bool] {
	builder := retrypolicy.NewBuilder[bool]().
		WithMaxRetries(max(cfg.DetailRetries, 0)).
		HandleIf(func(_ bool, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrNoTarget)
		})
	if cfg.RetryDelay > 0 {
		builder = builder.WithDelay(cfg.RetryDelay)
	}
	return builder.Build()
}

// Run drives the cascade for one card, starting on the card's view, and
// returns every record collected. It stops early, keeping what it has,
// when ctx is cancelled.
func (c *Controller) Run(ctx context.Context, card model.Card) Result {
	cc := NewCardContext(c.config.PerCardLimit)
	var result Result

	for tier := TierDirectLink; tier != TierDone; tier = Next(tier, cc.HasRecords()) {
		if ctx.Err() != nil {
			c.logger.Debug("cascade cancelled", "card", card.Index, "tier", tier.String())
			break
		}
		before := len(cc.Records())
		tr := c.runTier(ctx, tier, cc)
		tr.Tier = tier
		tr.Records = len(cc.Records()) - before
		result.Tiers = append(result.Tiers, tr)

		c.logger.Debug("tier finished",
			"card", card.Index,
			"tier", tier.String(),
			"targets", tr.Targets,
			"clicks", tr.Clicks,
			"visits", tr.Visits,
			"records", tr.Records,
		)
		if c.observer != nil {
			c.observer.TierFinished(card, tr)
		}
	}

	result.Records = cc.Records()
	return result
}

func (c *Controller) runTier(ctx context.Context, tier Tier, cc *CardContext) TierResult {
	switch tier {
	case TierDirectLink:
		return c.directLinks(ctx, cc)
	case TierDomCandidate:
		return c.domCandidates(ctx, cc)
	case TierProbe:
		return c.probe(ctx, cc)
	case TierFreeText:
		return c.freeText(ctx, cc)
	case TierCurrentPage:
		return c.currentPage(ctx, cc)
	default:
		return TierResult{}
	}
}

// directLinks follows harvested detail links, deep links first.
func (c *Controller) directLinks(ctx context.Context, cc *CardContext) TierResult {
	bags, err := c.browser.Harvest(ctx, FamilyDetailLinks)
	if err != nil {
		c.logger.Debug("failed to harvest detail links", "error", err)
	}
	if len(bags) == 0 && c.openMachineData(ctx) {
		if bags, err = c.browser.Harvest(ctx, FamilyDetailLinks); err != nil {
			c.logger.Debug("failed to harvest detail links", "error", err)
		}
	}
	ranked := RankLinks(bags, c.config.DeepLinkMarkers)

	tr := TierResult{Targets: len(ranked)}
	for _, bag := range ranked {
		href := bag.Href()
		hint, _ := extract.HintIdentifier(bag)
		tr.Candidates = append(tr.Candidates, firstNonEmpty(href, hint.String()))
	}

	attempts := 0
	for _, bag := range ranked {
		if cc.reached(attempts) || ctx.Err() != nil {
			break
		}
		href := bag.Href()
		hint, hasHint := extract.HintIdentifier(bag)
		if href != "" && cc.VisitedHref(href) {
			continue
		}
		if hasHint && cc.VisitedIdentifier(hint) {
			continue
		}
		var target Target
		switch {
		case href != "":
			cc.markHref(href)
			target = Target{Href: href, Identifier: hint}
		case hasHint:
			target = Target{Identifier: hint}
		default:
			continue
		}
		attempts++
		if c.visit(ctx, cc, target, href) {
			tr.Visits++
		}
		if href == "" {
			cc.markIdentifier(hint)
		}
	}
	return tr
}

// openMachineData follows the card's link to its machine data page and
// reports whether the view changed. The cascade stays on that page.
func (c *Controller) openMachineData(ctx context.Context) bool {
	marker := c.config.MachineDataMarker
	if marker == "" {
		return false
	}
	bags, err := c.browser.Harvest(ctx, FamilyAttributed)
	if err != nil {
		c.logger.Debug("failed to harvest attributed elements", "error", err)
		return false
	}
	for _, bag := range bags {
		href := bag.Href()
		if href == "" {
			continue
		}
		if !strings.Contains(href, marker) && !strings.Contains(bag.Get("text"), machineDataLabel) {
			continue
		}
		navigated, err := c.navigate(ctx, Target{Href: href})
		if err != nil {
			c.logger.Debug("failed to open machine data page", "href", href, "error", err)
			return false
		}
		c.logger.Debug("opened machine data page", "href", href, "navigated", navigated)
		return navigated
	}
	return false
}

// domCandidates visits the canonical URL of every machine number found in
// DOM attributes.
func (c *Controller) domCandidates(ctx context.Context, cc *CardContext) TierResult {
	bags, err := c.browser.Harvest(ctx, FamilyAttributed)
	if err != nil {
		c.logger.Debug("failed to harvest attributed elements", "error", err)
	}
	ids := extract.ScanDOM(bags)
	tr := TierResult{Targets: len(ids), Candidates: identifierStrings(ids)}
	tr.Visits = c.visitCanonical(ctx, cc, ids)
	return tr
}

// probe clicks a grid over script-drawn widgets, extracts what that
// produced and, if anything, visits the canonical URLs of the machines
// involved.
func (c *Controller) probe(ctx context.Context, cc *CardContext) TierResult {
	res, err := c.browser.Probe(ctx, c.config.Probe)
	if err != nil {
		c.logger.Debug("probe failed", "error", err)
	}
	tr := TierResult{Targets: res.Targets, Clicks: res.Clicks}

	records, blobs := c.extractCurrent(ctx, resolve.ScopeCard, "")
	if len(records) == 0 {
		return tr
	}
	// The probe view is not a detail view, so its identifiers are not
	// marked visited until their detail views have been tried.
	cc.add(records)

	var ids []model.Identifier
	for _, r := range records {
		ids = append(ids, r.Identifier)
	}
	ids = model.UniqueIdentifiers(ids)
	if len(ids) == 0 {
		ids = extract.ScanFreeText(blobs)
	}
	tr.Candidates = identifierStrings(ids)
	tr.Visits = c.visitCanonical(ctx, cc, ids)
	cc.markRecords(records)
	return tr
}

// freeText visits the canonical URL of every cd_dai-like token in the raw
// markup of the current view.
func (c *Controller) freeText(ctx context.Context, cc *CardContext) TierResult {
	blobs, err := c.browser.TextBlobs(ctx)
	if err != nil {
		c.logger.Debug("failed to gather text", "error", err)
	}
	ids := extract.ScanFreeText(blobs)
	tr := TierResult{Targets: len(ids), Candidates: identifierStrings(ids)}
	tr.Visits = c.visitCanonical(ctx, cc, ids)
	return tr
}

// currentPage extracts the current view once and accepts the result.
func (c *Controller) currentPage(ctx context.Context, cc *CardContext) TierResult {
	records, _ := c.extractCurrent(ctx, resolve.ScopeCard, "")
	cc.fold(records)
	return TierResult{Targets: 1, Visits: 1}
}

// visitCanonical visits the canonical URL of each unvisited identifier and
// returns the number of successful visits. The per-tier cap counts
// attempts, failed ones included.
func (c *Controller) visitCanonical(ctx context.Context, cc *CardContext, ids []model.Identifier) int {
	visits, attempts := 0, 0
	for _, id := range ids {
		if cc.reached(attempts) || ctx.Err() != nil {
			break
		}
		if cc.VisitedIdentifier(id) {
			continue
		}
		attempts++
		target := CanonicalURL(c.config.CanonicalTemplate, c.browser.CurrentURL(), id)
		if c.visit(ctx, cc, Target{URL: target, Identifier: id}, target) {
			cc.markIdentifier(id)
			visits++
		}
	}
	return visits
}

// visit navigates to t, extracts the resulting view, folds the records
// into cc and navigates back. It returns false when navigation failed or
// t resolved to nothing. The identifier t was made for joins the vote
// over the view's unresolved records.
func (c *Controller) visit(ctx context.Context, cc *CardContext, t Target, hrefHint string) bool {
	navigated, err := c.navigate(ctx, t)
	if errors.Is(err, ErrNoTarget) {
		c.logger.Debug("nothing to visit", "href", t.Href, "identifier", t.Identifier.String())
		return false
	}
	if err != nil {
		c.logger.Debug("navigation failed", "href", t.Href, "url", t.URL, "identifier", t.Identifier.String(), "error", err)
		return false
	}

	records, _ := c.extractCurrent(ctx, resolve.ScopeDetailView, hrefHint, t.Identifier)
	cc.fold(records)

	if navigated {
		if err := c.browser.Back(ctx); err != nil {
			c.logger.Debug("failed to navigate back", "error", err)
		}
	}
	return true
}

func (c *Controller) navigate(ctx context.Context, t Target) (bool, error) {
	return failsafe.With(c.retry).WithContext(ctx).Get(func() (bool, error) {
		navCtx := ctx
		if c.config.NavigationTimeout > 0 {
			var cancel context.CancelFunc
			navCtx, cancel = context.WithTimeout(ctx, c.config.NavigationTimeout)
			defer cancel()
		}
		return c.browser.Navigate(navCtx, t)
	})
}

// extractCurrent gathers the current view and the captured responses,
// extracts them and resolves identifiers in scope. extra candidates join
// the extracted ones. It also returns the gathered blobs.
func (c *Controller) extractCurrent(ctx context.Context, scope resolve.Scope, hrefHint string, extra ...model.Identifier) ([]model.HitRecord, []string) {
	blobs, err := c.browser.TextBlobs(ctx)
	if err != nil {
		c.logger.Debug("failed to gather text", "error", err)
	}
	samples := c.responses.SnapshotAndClear()

	batch, err := c.extractor.Extract(ctx, extract.Input{Blobs: blobs, Samples: samples, HrefHint: hrefHint})
	if err != nil {
		c.logger.Debug("extraction aborted", "error", err)
		return nil, blobs
	}
	candidates := batch.Candidates
	for _, id := range extra {
		if !id.IsZero() {
			candidates = append(candidates, id)
		}
	}
	records, err := c.resolver.Resolve(scope, batch.Records, candidates)
	if err != nil {
		c.logger.Debug("resolution skipped", "scope", scope.String(), "error", err)
	}
	return records, blobs
}

func identifierStrings(ids []model.Identifier) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
