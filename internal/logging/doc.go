// Package logging assembles structured slog loggers and formatting helpers used
// across mediasort.
//
// It owns the configurable console/JSON handlers, tees output into the log
// file under the configured log directory, and exposes context-aware helpers so
// pipeline code can tag log lines with the run correlation ID and the source
// file currently being classified. A no-op logger is provided for tests and
// wiring code that cannot fail.
package logging
