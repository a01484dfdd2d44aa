package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/extract"
	"github.com/nao1215/hitscan/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	// defaultMaxBodySize limits how much of a response is read.
	defaultMaxBodySize = 10 * 1024 * 1024

	// maxFrames bounds how many frames of a page are loaded.
	maxFrames = 8

	// maxCardTitle bounds the stored card text, in runes.
	maxCardTitle = 120
)

// probeSelector matches the script-drawn widgets a pointer probe targets.
const probeSelector = "canvas, svg, object, embed, img[usemap]"

// Sink receives the responses a session observes. capture.Ring
// implements it.
type Sink interface {
	Push(s model.ResponseSample)
}

// Session is a static browsing session.
type Session struct {
	client    *resty.Client
	sink      Sink
	admission capture.Admission
	logger    *slog.Logger

	userAgent   string
	cookie      string
	headers     map[string]string
	timeout     time.Duration
	maxBodySize int64

	// cardSelectors are tried in order; the first that matches wins.
	cardSelectors []string
	maxCards      int

	// ignorePatterns and followPatterns filter card links by path.
	ignorePatterns []string
	followPatterns []string

	mu      sync.Mutex
	listing *page
	current *page
	history []*page
	stats   Stats
}

// page is a loaded view.
type page struct {
	url         string
	contentType string
	body        []byte
	doc         *goquery.Document
	frames      []*page
}

// views returns the page followed by its frames.
func (p *page) views() []*page {
	return append([]*page{p}, p.frames...)
}

// Stats contains session statistics.
type Stats struct {
	// PagesLoaded is the number of top-level pages fetched.
	PagesLoaded int

	// FramesLoaded is the number of frame documents fetched.
	FramesLoaded int

	// Captured is the number of responses pushed to the sink.
	Captured int

	// Rejected is the number of responses refused by admission.
	Rejected int
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		if hc != nil {
			s.client = resty.NewWithClient(hc)
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(s *Session) {
		s.cookie = cookie
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(s *Session) {
		for k, v := range headers {
			s.headers[k] = v
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithMaxBodySize sets the maximum response body size read.
func WithMaxBodySize(size int64) Option {
	return func(s *Session) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithAdmission sets the policy deciding which responses reach the sink.
func WithAdmission(a capture.Admission) Option {
	return func(s *Session) {
		s.admission = a
	}
}

// WithCardSelectors sets the card selectors, tried in order.
func WithCardSelectors(selectors []string) Option {
	return func(s *Session) {
		if len(selectors) > 0 {
			s.cardSelectors = selectors
		}
	}
}

// WithMaxCards caps the number of cards listed. 0 means no cap.
func WithMaxCards(n int) Option {
	return func(s *Session) {
		s.maxCards = n
	}
}

// WithIgnorePatterns sets path patterns of card links to skip.
// Patterns use glob syntax (e.g., "/member/*", "*.pdf").
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Session) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets path patterns of card links to keep.
// If set, only card links matching at least one pattern are listed.
func WithFollowPatterns(patterns []string) Option {
	return func(s *Session) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// New creates a Session that pushes admitted responses to sink. A nil
// sink discards them.
func New(sink Sink, opts ...Option) *Session {
	s := &Session{
		client:        resty.New(),
		sink:          sink,
		admission:     capture.NewAdmission(nil, 0),
		logger:        slog.Default(),
		userAgent:     defaultUserAgent,
		headers:       make(map[string]string),
		timeout:       30 * time.Second,
		maxBodySize:   defaultMaxBodySize,
		cardSelectors: DefaultCardSelectors(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.client.SetHeader("User-Agent", s.userAgent)
	s.client.SetHeader("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	s.client.SetHeader("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")
	if s.cookie != "" {
		s.client.SetHeader("Cookie", s.cookie)
	}
	s.client.SetHeaders(s.headers)
	s.client.SetTimeout(s.timeout)
	s.client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return s
}

// Stats returns current session statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// CurrentURL returns the URL of the current view, or "" before Open.
func (s *Session) CurrentURL() string {
	p := s.currentPage()
	if p == nil {
		return ""
	}
	return p.url
}

// TextBlobs returns the decoded markup of the current view and its frames.
func (s *Session) TextBlobs(_ context.Context) ([]string, error) {
	p := s.currentPage()
	if p == nil {
		return nil, ErrNoPage
	}
	var blobs []string
	for _, v := range p.views() {
		if text := extract.DecodeBody(v.body); text != "" {
			blobs = append(blobs, text)
		}
	}
	return blobs, nil
}

// Harvest returns the attributes of the elements of a family in the
// current view and its frames. Every bag carries the pseudo attribute
// "text" with the element's trimmed text.
func (s *Session) Harvest(_ context.Context, family cascade.SelectorFamily) ([]model.AttributeBag, error) {
	p := s.currentPage()
	if p == nil {
		return nil, ErrNoPage
	}
	selector := family.Selector()
	if selector == "" {
		return nil, nil
	}
	var bags []model.AttributeBag
	for _, el := range elements(p, selector) {
		bags = append(bags, el.bag)
	}
	return bags, nil
}

// Probe reports the widgets a pointer probe would target. A static
// session cannot click them, so Clicks is always 0.
func (s *Session) Probe(_ context.Context, _ cascade.ProbeGrid) (cascade.ProbeResult, error) {
	p := s.currentPage()
	if p == nil {
		return cascade.ProbeResult{}, ErrNoPage
	}
	targets := 0
	for _, v := range p.views() {
		if v.doc != nil {
			targets += v.doc.Find(probeSelector).Length()
		}
	}
	return cascade.ProbeResult{Targets: targets}, nil
}

// Navigate opens t. A URL is loaded directly and an href is resolved
// against the current view. A target with only an identifier follows the
// first detail link advertising that identifier. When nothing can be
// loaded the view is left as is and Navigate returns cascade.ErrNoTarget.
func (s *Session) Navigate(ctx context.Context, t cascade.Target) (bool, error) {
	p := s.currentPage()
	if p == nil {
		return false, ErrNoPage
	}

	target := resolveURL(p.url, t.URL)
	if target == "" {
		target = resolveURL(p.url, t.Href)
	}
	if target == "" && !t.Identifier.IsZero() {
		target = activationURL(p, t.Identifier)
	}
	if target == "" {
		return false, cascade.ErrNoTarget
	}

	next, err := s.load(ctx, target, true)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.history = append(s.history, s.current)
	s.current = next
	s.mu.Unlock()
	return true, nil
}

// Back returns to the previous view without reloading it.
func (s *Session) Back(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return ErrNoHistory
	}
	s.current = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return nil
}

func (s *Session) currentPage() *page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// load fetches a page, captures its response and, for markup, parses it
// and loads its frames.
func (s *Session) load(ctx context.Context, pageURL string, withFrames bool) (*page, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	raw := res.RawBody()
	defer raw.Close()

	if res.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d for %s", ErrHTTPStatus, res.StatusCode(), pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(raw, s.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	p := &page{
		url:         finalURL(res, pageURL),
		contentType: strings.ToLower(res.Header().Get("Content-Type")),
		body:        body,
	}
	s.capture(model.ResponseSample{URL: p.url, Body: body, ContentType: p.contentType})

	sample := model.ResponseSample{URL: p.url, ContentType: p.contentType}
	if !sample.IsJSON() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(extract.DecodeBody(body)))
		if err != nil {
			s.logger.Debug("failed to parse page", "url", p.url, "error", err)
		} else {
			p.doc = doc
		}
	}

	if withFrames && p.doc != nil {
		p.frames = s.loadFrames(ctx, p)
	}

	s.mu.Lock()
	if withFrames {
		s.stats.PagesLoaded++
	} else {
		s.stats.FramesLoaded++
	}
	s.mu.Unlock()
	return p, nil
}

// loadFrames loads the frame documents of p. Frames that fail to load are
// skipped.
func (s *Session) loadFrames(ctx context.Context, p *page) []*page {
	var frames []*page
	p.doc.Find("iframe[src], frame[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		target := resolveURL(p.url, src)
		if target == "" {
			return true
		}
		frame, err := s.load(ctx, target, false)
		if err != nil {
			s.logger.Debug("failed to load frame", "url", target, "error", err)
			return ctx.Err() == nil
		}
		frames = append(frames, frame)
		return len(frames) < maxFrames
	})
	return frames
}

// capture pushes an admitted response to the sink.
func (s *Session) capture(sample model.ResponseSample) {
	admitted := s.admission.Admit(sample)
	s.mu.Lock()
	if admitted {
		s.stats.Captured++
	} else {
		s.stats.Rejected++
	}
	s.mu.Unlock()
	if admitted && s.sink != nil {
		s.sink.Push(sample)
	}
}

// finalURL returns the URL a response was served from after redirects.
func finalURL(res *resty.Response, requested string) string {
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		return res.RawResponse.Request.URL.String()
	}
	return requested
}

// element is a harvested element and the URL its links resolve against.
type element struct {
	bag  model.AttributeBag
	base string
}

// elements returns the elements matching selector in p and its frames.
func elements(p *page, selector string) []element {
	var out []element
	for _, v := range p.views() {
		if v.doc == nil {
			continue
		}
		v.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			out = append(out, element{bag: attributeBag(sel), base: v.url})
		})
	}
	return out
}

// attributeBag collects the attributes and trimmed text of an element.
func attributeBag(sel *goquery.Selection) model.AttributeBag {
	bag := model.AttributeBag{}
	if len(sel.Nodes) == 0 {
		return bag
	}
	for _, attr := range sel.Nodes[0].Attr {
		bag[attr.Key] = attr.Val
	}
	bag["text"] = strings.TrimSpace(sel.Text())
	return bag
}

// activationURL returns the link of the first detail element that
// advertises id.
func activationURL(p *page, id model.Identifier) string {
	for _, el := range elements(p, cascade.DetailLinkSelector) {
		hint, ok := extract.HintIdentifier(el.bag)
		if !ok || hint != id {
			continue
		}
		if target := resolveURL(el.base, el.bag.Href()); target != "" {
			return target
		}
	}
	return ""
}

// parseStartURL validates a listing URL, defaulting the scheme to https.
func parseStartURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u.String(), nil
}
