package browser

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/hitscan/internal/extract"
	"github.com/nao1215/hitscan/internal/model"
)

// DefaultCardSelectors returns the selectors that locate machine-model
// cards on a listing page, most specific first.
func DefaultCardSelectors() []string {
	return []string{
		"a[href].card",
		"a:has(.card)",
		".card",
		"a[href].machine",
		"a[href]",
	}
}

// Open loads a listing page and makes it the base of the session.
func (s *Session) Open(ctx context.Context, listingURL string) error {
	target, err := parseStartURL(listingURL)
	if err != nil {
		return err
	}
	p, err := s.load(ctx, target, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = p
	s.current = p
	s.history = nil
	return nil
}

// Cards lists the cards of the open listing with the first card selector
// that matches anything. Card links are resolved, filtered by the ignore
// and follow patterns and deduplicated.
func (s *Session) Cards(_ context.Context) ([]model.Card, error) {
	s.mu.Lock()
	listing := s.listing
	s.mu.Unlock()
	if listing == nil || listing.doc == nil {
		return nil, ErrNoPage
	}

	for _, selector := range s.cardSelectors {
		found := listing.doc.Find(selector)
		if found.Length() == 0 {
			continue
		}
		cards := s.collectCards(listing, found)
		s.logger.Debug("cards listed", "selector", selector, "matched", found.Length(), "cards", len(cards))
		return cards, nil
	}
	return []model.Card{}, nil
}

func (s *Session) collectCards(listing *page, found *goquery.Selection) []model.Card {
	cards := make([]model.Card, 0, found.Length())
	seen := make(map[string]bool)
	found.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := cardHref(listing.url, sel)
		if href != "" {
			key := normalizeURL(href)
			if seen[key] || !s.shouldFollow(href) {
				return true
			}
			seen[key] = true
		}
		cards = append(cards, model.Card{
			Index: len(cards),
			Href:  href,
			Title: cardTitle(sel),
		})
		return s.maxCards <= 0 || len(cards) < s.maxCards
	})
	return cards
}

// cardHref returns the resolved link of a card, looking at the closest
// enclosing anchor when the card itself is not one.
func cardHref(base string, sel *goquery.Selection) string {
	href, ok := sel.Attr("href")
	if !ok {
		href, _ = sel.Closest("a[href]").Attr("href")
	}
	return resolveURL(base, href)
}

func cardTitle(sel *goquery.Selection) string {
	title := []rune(extract.Normalize(sel.Text()))
	if len(title) > maxCardTitle {
		title = title[:maxCardTitle]
	}
	return string(title)
}

// OpenCard opens the card's detail page. It returns false, leaving the
// listing in view, when the card has no followable link.
func (s *Session) OpenCard(ctx context.Context, card model.Card) (bool, error) {
	s.mu.Lock()
	listing := s.listing
	s.mu.Unlock()
	if listing == nil {
		return false, ErrNoPage
	}

	target := resolveURL(listing.url, card.Href)
	if target == "" {
		return false, nil
	}
	p, err := s.load(ctx, target, true)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	s.history = []*page{listing}
	return true, nil
}

// CloseCard returns to the listing, dropping the card's history.
func (s *Session) CloseCard(_ context.Context, _ model.Card, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listing == nil {
		return ErrNoPage
	}
	s.current = s.listing
	s.history = nil
	return nil
}
