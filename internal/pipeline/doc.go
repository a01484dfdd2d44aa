// Package pipeline runs a crawl as a sequence of steps.
//
// A run crawls each listing (CrawlStep), deduplicates and summarizes the
// rows (AggregateStep), stores the run (StoreStep), writes the CSV files
// (ExportStep) and the metrics textfile (MetricsStep). Several listings
// can be crawled concurrently with BatchProcessor, each in its own
// browsing session, and their reports merged before aggregation.
package pipeline
