package model

import (
	"regexp"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Identifier is a machine number on the hall floor ("dai").
// A valid identifier is a string of 2 to 5 ASCII digits.
// The zero value means "unresolved".
type Identifier string

// Identifier length bounds. Shorter tokens are usually list indexes,
// longer ones years, prices or pixel sizes.
const (
	MinIdentifierDigits = 2
	MaxIdentifierDigits = 5
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// NormalizeIdentifier folds raw with NFKC and returns its first digit run
// if that run is an acceptable identifier.
func NormalizeIdentifier(raw string) (Identifier, bool) {
	if raw == "" {
		return "", false
	}
	run := digitRun.FindString(norm.NFKC.String(raw))
	return ValidIdentifier(run)
}

// ValidIdentifier returns digits as an Identifier when it is 2-5 ASCII digits.
func ValidIdentifier(digits string) (Identifier, bool) {
	if len(digits) < MinIdentifierDigits || len(digits) > MaxIdentifierDigits {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return Identifier(digits), true
}

// IsZero reports whether the identifier is unresolved.
func (id Identifier) IsZero() bool {
	return id == ""
}

// String returns the identifier digits.
func (id Identifier) String() string {
	return string(id)
}

// Less orders identifiers numerically, breaking ties lexically so that
// "012" and "12" keep a stable order. Unresolved identifiers sort last.
func (id Identifier) Less(other Identifier) bool {
	if id.IsZero() || other.IsZero() {
		return !id.IsZero() && other.IsZero()
	}
	a, errA := strconv.Atoi(string(id))
	b, errB := strconv.Atoi(string(other))
	if errA == nil && errB == nil && a != b {
		return a < b
	}
	return id < other
}

// UniqueIdentifiers removes duplicates from ids, keeping the first occurrence.
func UniqueIdentifiers(ids []Identifier) []Identifier {
	seen := make(map[Identifier]bool, len(ids))
	out := make([]Identifier, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
