// Package browser provides a static browsing session for hall data sites.
//
// A Session fetches pages over HTTP with resty, keeps a navigation
// history, parses markup with goquery and pushes every response it sees
// through an admission policy into a capture sink. It implements the
// browsing contract the fallback cascade drives and the card listing
// contract the crawl pipeline drives.
//
// Scripts are not executed. Elements that only react to script handlers
// are followed when they advertise a machine number that another element
// links to; pointer probing reports the widgets it finds but clicks none.
//
// # Usage
//
//	s := browser.New(ring, browser.WithCookie(cookie))
//	if err := s.Open(ctx, "https://example.com/nc-v05-001.php"); err != nil {
//		return err
//	}
//	cards, err := s.Cards(ctx)
package browser
