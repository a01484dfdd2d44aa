// Package resolve assigns machine identifiers to hit records that were
// extracted without one.
package resolve

import (
	"errors"
	"fmt"

	"github.com/nao1215/hitscan/internal/model"
)

// Scope says what kind of view a record set was gathered from. Voting is
// only meaningful when every record on the view belongs to one machine.
type Scope int

const (
	// ScopeDetailView is a per-machine detail page. This is the normal case.
	ScopeDetailView Scope = iota

	// ScopeCard is everything gathered for one machine-model card when no
	// detail page could be isolated.
	ScopeCard

	// ScopeListing is a listing page covering many machines. Resolving
	// here would stamp one machine number on everybody's hits.
	ScopeListing
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeDetailView:
		return "detail"
	case ScopeCard:
		return "card"
	case ScopeListing:
		return "listing"
	default:
		return "unknown"
	}
}

// ErrUnsupportedScope is returned for scopes where voting must not run.
var ErrUnsupportedScope = errors.New("identifier resolution is not supported in this scope")

// Resolver fills missing identifiers by majority vote over a candidate pool.
type Resolver struct{}

// New returns a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve returns a copy of records where every record without an
// identifier carries the most frequent candidate. Ties go to the candidate
// seen first. With no valid candidates the records are returned unchanged.
// Records that already have an identifier are never touched, so Resolve is
// idempotent for a fixed pool.
//
// For an unsupported scope Resolve returns the input slice and
// ErrUnsupportedScope.
func (r *Resolver) Resolve(scope Scope, records []model.HitRecord, candidates []model.Identifier) ([]model.HitRecord, error) {
	if scope != ScopeDetailView && scope != ScopeCard {
		return records, fmt.Errorf("%w: %s", ErrUnsupportedScope, scope)
	}
	out := make([]model.HitRecord, len(records))
	copy(out, records)

	winner, ok := Vote(candidates)
	if !ok {
		return out, nil
	}
	for i := range out {
		if !out[i].Resolved() {
			out[i].Identifier = winner
		}
	}
	return out, nil
}

// Vote returns the most frequent valid identifier in candidates. Ties are
// broken by first appearance.
func Vote(candidates []model.Identifier) (model.Identifier, bool) {
	counts := make(map[model.Identifier]int, len(candidates))
	var order []model.Identifier
	for _, c := range candidates {
		id, ok := model.ValidIdentifier(string(c))
		if !ok {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}
	var best model.Identifier
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best, bestCount = id, counts[id]
		}
	}
	return best, bestCount > 0
}
