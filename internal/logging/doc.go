// Package logging assembles structured slog loggers and formatting helpers
// used across retell.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can automatically tag
// log lines with run IDs, stages, and video identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
