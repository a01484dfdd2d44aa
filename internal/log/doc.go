// Package log builds the slog loggers used by hitscan.
//
// Every logger is wrapped in a SecureHandler that masks cookies, tokens,
// authorization headers and session parameters in URLs, since site
// configurations carry credentials and crawled URLs may carry session ids.
// Terminal output goes through tint; JSON output through slog's JSON
// handler.
//
// # Usage
//
//	logger := log.New(os.Stderr, verbose, jsonOutput)
//	slog.SetDefault(logger)
package log
