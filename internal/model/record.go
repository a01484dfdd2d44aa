package model

import "time"

// HitRecord is one bonus event observed for a machine.
// Identifier is empty until a record is resolved.
type HitRecord struct {
	// Identifier is the machine the hit belongs to.
	Identifier Identifier `json:"identifier,omitempty"`

	// GameCount is the number of games played since the previous hit.
	GameCount int `json:"game_count"`

	// Kind is BIG or REG.
	Kind Kind `json:"kind"`
}

// Resolved reports whether the record has an identifier.
func (r HitRecord) Resolved() bool {
	return !r.Identifier.IsZero()
}

// Valid reports whether the record may be handed to the aggregator.
func (r HitRecord) Valid() bool {
	return r.GameCount >= 0 && r.Kind.Valid()
}

// DetailRow is a hit record stamped with where and when it was scraped.
// It is the unit written to the detail CSV.
type DetailRow struct {
	Identifier Identifier `json:"identifier,omitempty"`
	GameCount  int        `json:"game_count"`
	Kind       Kind       `json:"kind"`
	SourceURL  string     `json:"source_url"`
	ScrapedAt  time.Time  `json:"scraped_at"`
}

// Key returns the deduplication key of the row.
func (r DetailRow) Key() HitRecord {
	return HitRecord{Identifier: r.Identifier, GameCount: r.GameCount, Kind: r.Kind}
}

// AggregationRow summarises all hits of one machine.
type AggregationRow struct {
	Identifier Identifier `json:"identifier"`
	CountBIG   int        `json:"count_big"`
	CountREG   int        `json:"count_reg"`
	MeanBIG    float64    `json:"mean_big"`
	MeanREG    float64    `json:"mean_reg"`
}
