// Package logging builds the slog loggers used across tanko.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log collection. Output can fan out to stdout/stderr and a
// log file under the configured log directory at the same time.
package logging
