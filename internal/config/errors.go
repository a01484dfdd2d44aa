package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoStartURL is returned when no listing URL is given.
	ErrNoStartURL = errors.New("no start URL specified: provide at least one listing URL")

	// ErrInvalidTimeout is returned when a request or navigation timeout
	// is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidPerCardLimit is returned when the per-card limit is negative.
	ErrInvalidPerCardLimit = errors.New("invalid per-card limit: must be non-negative")

	// ErrInvalidMaxCards is returned when the card cap is negative.
	ErrInvalidMaxCards = errors.New("invalid max cards: must be non-negative")

	// ErrInvalidRingCapacity is returned when the capture ring would hold
	// nothing.
	ErrInvalidRingCapacity = errors.New("invalid ring capacity: must be positive")

	// ErrInvalidMaxResponseBytes is returned when the capture size ceiling
	// is not positive.
	ErrInvalidMaxResponseBytes = errors.New("invalid max response bytes: must be positive")

	// ErrInvalidRetries is returned when the retry count or delay is negative.
	ErrInvalidRetries = errors.New("invalid detail retries: count and delay must be non-negative")

	// ErrInvalidProbeGrid is returned when a probe setting is negative.
	ErrInvalidProbeGrid = errors.New("invalid probe grid: settings must be non-negative")

	// ErrInvalidCanonicalTemplate is returned when the canonical template
	// has no {id} placeholder.
	ErrInvalidCanonicalTemplate = errors.New("invalid canonical template: must contain {id}")

	// ErrInvalidConcurrency is returned when no session is allowed or the
	// parse concurrency is negative.
	ErrInvalidConcurrency = errors.New("invalid concurrency: sessions must be positive and parse concurrency non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)

// ErrInvalidPattern is returned when a card ignore or follow pattern is
// not a valid glob.
var ErrInvalidPattern = errors.New("invalid card pattern")
