// Package database provides SQLite-based run history for hitscan.
//
// Every crawl run is stored with its full JSON report and its detail rows,
// so that a past run can be listed, re-aggregated or compared machine by
// machine. The database is a single file (modernc.org/sqlite, no cgo) in
// the XDG data directory by default.
package database
