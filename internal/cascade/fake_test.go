package cascade

import (
	"context"
	"sync"

	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/model"
)

// fakeBrowser serves canned views and counts every call.
type fakeBrowser struct {
	mu sync.Mutex

	url   string
	view  string
	stack [][2]string

	// pages maps a Navigate key (href, URL or "id:<n>") to a view.
	pages map[string]string
	// responses are pushed to ring when the key is navigated to.
	responses map[string][]model.ResponseSample
	// failures makes Navigate fail for a key.
	failures map[string]error

	detailLinks []model.AttributeBag
	attributed  []model.AttributeBag
	probeView   string

	// linksAt replaces detailLinks while the view is at a URL.
	linksAt map[string][]model.AttributeBag

	ring *capture.Ring

	calls       map[string]int
	navigations []string
}

func newFakeBrowser(url, view string) *fakeBrowser {
	return &fakeBrowser{
		url:       url,
		view:      view,
		pages:     make(map[string]string),
		responses: make(map[string][]model.ResponseSample),
		failures:  make(map[string]error),
		linksAt:   make(map[string][]model.AttributeBag),
		calls:     make(map[string]int),
	}
}

func targetKey(t Target) string {
	switch {
	case t.Href != "":
		return t.Href
	case t.URL != "":
		return t.URL
	default:
		return "id:" + t.Identifier.String()
	}
}

func (f *fakeBrowser) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBrowser) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakeBrowser) TextBlobs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["text_blobs"]++
	return []string{f.view}, nil
}

func (f *fakeBrowser) Navigate(_ context.Context, t Target) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := targetKey(t)
	f.calls["navigate"]++
	f.calls["navigate:"+key]++
	if err, ok := f.failures[key]; ok {
		return false, err
	}
	f.navigations = append(f.navigations, key)
	if f.ring != nil {
		for _, s := range f.responses[key] {
			f.ring.Push(s)
		}
	}
	page, ok := f.pages[key]
	if !ok {
		return false, nil
	}
	f.stack = append(f.stack, [2]string{f.url, f.view})
	f.url, f.view = key, page
	return true, nil
}

func (f *fakeBrowser) Back(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["back"]++
	if n := len(f.stack); n > 0 {
		f.url, f.view = f.stack[n-1][0], f.stack[n-1][1]
		f.stack = f.stack[:n-1]
	}
	return nil
}

func (f *fakeBrowser) Harvest(_ context.Context, family SelectorFamily) ([]model.AttributeBag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["harvest:"+family.String()]++
	if family == FamilyDetailLinks {
		if links, ok := f.linksAt[f.url]; ok {
			return links, nil
		}
		return f.detailLinks, nil
	}
	return f.attributed, nil
}

func (f *fakeBrowser) Probe(context.Context, ProbeGrid) (ProbeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["probe"]++
	if f.probeView != "" {
		f.view = f.probeView
	}
	return ProbeResult{Targets: 32, Clicks: 32}, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	tiers []Tier
}

func (o *recordingObserver) TierFinished(_ model.Card, r TierResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tiers = append(o.tiers, r.Tier)
}
