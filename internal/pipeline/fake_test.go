package pipeline

import (
	"context"
	"sync"

	"github.com/nao1215/hitscan/internal/capture"
	"github.com/nao1215/hitscan/internal/cascade"
	"github.com/nao1215/hitscan/internal/model"
)

// fakeSession serves canned listings, card views and detail views.
type fakeSession struct {
	mu sync.Mutex

	listings  map[string][]model.Card
	openErrs  map[string]error
	cardErrs  map[string]error
	cardLinks map[string][]model.AttributeBag
	pages     map[string]string

	url   string
	view  string
	links []model.AttributeBag
	stack [][2]string

	calls map[string]int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		listings:  make(map[string][]model.Card),
		openErrs:  make(map[string]error),
		cardErrs:  make(map[string]error),
		cardLinks: make(map[string][]model.AttributeBag),
		pages:     make(map[string]string),
		calls:     make(map[string]int),
	}
}

// addCard registers a card whose view links to the detail pages of ids.
func (f *fakeSession) addCard(listing string, card model.Card, details map[string]string) {
	f.listings[listing] = append(f.listings[listing], card)
	for id, rows := range details {
		href := "nc-v06-001.php?cd_dai=" + id
		f.cardLinks[card.Href] = append(f.cardLinks[card.Href], model.AttributeBag{"href": href})
		f.pages[href] = "<h1>台番 " + id + "</h1><table>" + rows + "</table>"
	}
}

func (f *fakeSession) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSession) Open(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["open"]++
	if err := f.openErrs[url]; err != nil {
		return err
	}
	f.url, f.view, f.links, f.stack = url, "<p>listing</p>", nil, nil
	return nil
}

func (f *fakeSession) Cards(context.Context) ([]model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings[f.url], nil
}

func (f *fakeSession) OpenCard(_ context.Context, card model.Card) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["open_card"]++
	if err := f.cardErrs[card.Href]; err != nil {
		return false, err
	}
	if card.Href == "" {
		return false, nil
	}
	f.stack = append(f.stack, [2]string{f.url, f.view})
	f.url, f.view, f.links = "https://hall.example/"+card.Href, "<p>card</p>", f.cardLinks[card.Href]
	return true, nil
}

func (f *fakeSession) CloseCard(context.Context, model.Card, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["close_card"]++
	if len(f.stack) > 0 {
		f.url, f.view = f.stack[0][0], f.stack[0][1]
		f.stack = nil
	}
	f.links = nil
	return nil
}

func (f *fakeSession) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

func (f *fakeSession) TextBlobs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []string{f.view}, nil
}

func (f *fakeSession) Navigate(_ context.Context, t cascade.Target) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["navigate"]++
	page, ok := f.pages[t.Href]
	if !ok {
		return false, nil
	}
	f.stack = append(f.stack, [2]string{f.url, f.view})
	f.url, f.view = "https://hall.example/"+t.Href, page
	return true, nil
}

func (f *fakeSession) Back(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.stack); n > 0 {
		f.url, f.view = f.stack[n-1][0], f.stack[n-1][1]
		f.stack = f.stack[:n-1]
	}
	return nil
}

func (f *fakeSession) Harvest(_ context.Context, family cascade.SelectorFamily) ([]model.AttributeBag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if family == cascade.FamilyDetailLinks {
		return f.links, nil
	}
	return nil, nil
}

func (f *fakeSession) Probe(context.Context, cascade.ProbeGrid) (cascade.ProbeResult, error) {
	return cascade.ProbeResult{}, nil
}

// recordingObserver collects card outcomes and ring stats.
type recordingObserver struct {
	mu    sync.Mutex
	cards []model.CardOutcome
	rings []capture.RingStats
}

func (o *recordingObserver) ObserveCard(c model.CardOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cards = append(o.cards, c)
}

func (o *recordingObserver) ObserveRing(s capture.RingStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rings = append(o.rings, s)
}

// fakeStore records saved runs.
type fakeStore struct {
	saved []*model.CrawlReport
	err   error
}

func (s *fakeStore) SaveRun(_ context.Context, report *model.CrawlReport) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.saved = append(s.saved, report)
	report.ID = int64(len(s.saved))
	return report.ID, nil
}

// fakeRecorder records observed reports and textfile paths.
type fakeRecorder struct {
	observed []*model.CrawlReport
	paths    []string
	err      error
}

func (r *fakeRecorder) ObserveReport(report *model.CrawlReport) {
	r.observed = append(r.observed, report)
}

func (r *fakeRecorder) WriteTextfile(path string) error {
	r.paths = append(r.paths, path)
	return r.err
}
