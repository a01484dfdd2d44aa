package model

// Status is the final state of an aggregated crawl result.
// None of the states is an error; they tell the caller what was written.
type Status int

const (
	// StatusEmpty means no detail rows were collected at all.
	StatusEmpty Status = iota

	// StatusUnresolved means detail rows exist but none carries an
	// identifier, so the summary is empty.
	StatusUnresolved

	// StatusComplete means both detail and summary rows exist.
	StatusComplete
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "EMPTY"
	case StatusUnresolved:
		return "UNRESOLVED"
	case StatusComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of Status.String. Unknown values map to StatusEmpty.
func ParseStatus(s string) Status {
	switch s {
	case "UNRESOLVED":
		return StatusUnresolved
	case "COMPLETE":
		return StatusComplete
	default:
		return StatusEmpty
	}
}
