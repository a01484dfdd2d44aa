package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind is the bonus kind of a hit.
type Kind string

const (
	// KindBIG is the big bonus.
	KindBIG Kind = "BIG"

	// KindREG is the regular bonus.
	KindREG Kind = "REG"
)

// String returns the kind as written in the CSV outputs.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindBIG || k == KindREG
}

// ParseKind maps a raw kind token to a standard Kind.
//
// The token is folded with NFKC and upper-cased. It is REG if it contains
// "REG", contains both R and B ("RB", "R-B"), or contains the Japanese
// "レギュ" prefix. Everything else, including "BB", is BIG.
func ParseKind(raw string) Kind {
	k := strings.ToUpper(norm.NFKC.String(raw))
	switch {
	case strings.Contains(k, "REG"):
		return KindREG
	case strings.Contains(k, "R") && strings.Contains(k, "B"):
		return KindREG
	case strings.Contains(k, "レギュ"):
		return KindREG
	default:
		return KindBIG
	}
}

// NormalizeKind canonicalizes an already standardized kind value.
// Values starting with B are BIG, everything else is REG. The second
// return value is false for an empty input.
func NormalizeKind(raw string) (Kind, bool) {
	k := strings.ToUpper(strings.TrimSpace(norm.NFKC.String(raw)))
	if k == "" {
		return "", false
	}
	if strings.HasPrefix(k, "B") {
		return KindBIG, true
	}
	return KindREG, true
}
