package cascade

import "github.com/nao1215/hitscan/internal/model"

// CardContext is the state the cascade keeps while working on one card.
type CardContext struct {
	// Limit caps the visits of each tier.
	Limit int

	visitedHrefs       map[string]bool
	visitedIdentifiers map[model.Identifier]bool
	records            []model.HitRecord
}

// NewCardContext creates an empty context. A limit below 1 means no cap.
func NewCardContext(limit int) *CardContext {
	return &CardContext{
		Limit:              limit,
		visitedHrefs:       make(map[string]bool),
		visitedIdentifiers: make(map[model.Identifier]bool),
	}
}

// Records returns the records collected so far.
func (c *CardContext) Records() []model.HitRecord {
	return c.records
}

// HasRecords reports whether any record was collected.
func (c *CardContext) HasRecords() bool {
	return len(c.records) > 0
}

// VisitedHref reports whether href was already followed.
func (c *CardContext) VisitedHref(href string) bool {
	return c.visitedHrefs[href]
}

// VisitedIdentifier reports whether id was already visited or resolved.
func (c *CardContext) VisitedIdentifier(id model.Identifier) bool {
	return c.visitedIdentifiers[id]
}

func (c *CardContext) markHref(href string) {
	c.visitedHrefs[href] = true
}

func (c *CardContext) markIdentifier(id model.Identifier) {
	if !id.IsZero() {
		c.visitedIdentifiers[id] = true
	}
}

// fold appends records and marks their identifiers visited.
func (c *CardContext) fold(records []model.HitRecord) {
	c.add(records)
	c.markRecords(records)
}

func (c *CardContext) add(records []model.HitRecord) {
	c.records = append(c.records, records...)
}

func (c *CardContext) markRecords(records []model.HitRecord) {
	for _, r := range records {
		c.markIdentifier(r.Identifier)
	}
}

// reached reports whether n visits exhaust the per-tier cap.
func (c *CardContext) reached(n int) bool {
	return c.Limit > 0 && n >= c.Limit
}
