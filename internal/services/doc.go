// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and video identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure kinds
//     distinguishable with errors.Is instead of string matching.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
