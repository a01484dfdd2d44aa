package pipeline

import "errors"

// ErrNoListing is returned by CrawlStep when no start URL could be opened.
var ErrNoListing = errors.New("no listing page could be crawled")
