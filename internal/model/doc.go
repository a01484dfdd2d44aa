// Package model defines the core data structures used throughout hitscan.
//
// This package contains the following main types:
//   - Identifier: a per-unit machine number ("dai"), 2-5 digits
//   - HitRecord: one bonus event (game count and kind) for a machine
//   - ResponseSample: a captured network response body
//   - DetailRow and AggregationRow: the rows written to the CSV outputs
//   - CrawlReport: the result of one crawl run
//
// Models live in their own package because the extractor, the cascade,
// the aggregator and the writers all share them.
package model
