// Package extract turns raw page content into hit records and machine
// identifier candidates.
//
// The package is a set of pure functions layered from the bottom up:
//   - Normalize folds full-width characters and collapses whitespace
//   - ExtractHits finds (game count, kind) pairs in a normalized line
//   - ExtractIdentifierCandidates finds machine numbers in a normalized line
//   - ParseHTML and ParseJSON apply the two to whole documents
//   - Extractor runs a batch of documents and captured responses in parallel
//
// Nothing here talks to the network. The cascade package feeds it what the
// browsing layer gathered.
package extract
