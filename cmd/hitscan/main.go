// Package main provides the entry point for the hitscan CLI.
//
// hitscan crawls the machine listing of a pachinko/slot hall site, collects
// every BIG/REG bonus hit it can attribute to a machine number and writes
// per-machine summaries.
//
// Usage:
//
//	hitscan crawl <listing-url>...
//	hitscan history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
