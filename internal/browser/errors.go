package browser

import "errors"

var (
	// ErrNoPage is returned when an operation needs a loaded page.
	ErrNoPage = errors.New("no page loaded")

	// ErrNoHistory is returned by Back on the first page of a session.
	ErrNoHistory = errors.New("no previous page")

	// ErrHTTPStatus is returned when a page answers with an error status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrInvalidURL is returned when a start URL cannot be used.
	ErrInvalidURL = errors.New("invalid URL")
)
