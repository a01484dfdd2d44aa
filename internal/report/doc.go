// Package report writes crawl reports.
//
// Writers implement the Writer interface and can be composed with
// MultiWriter:
//   - TableWriter: the machine summary as a terminal table
//   - JSONWriter: the full report for tool integration
//   - MarkdownWriter: a shareable report with tier diagnostics
//
// ExportCSV writes the detail and summary CSV files of a run.
package report
