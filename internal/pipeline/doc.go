// Package pipeline composes subtitle fetching, cleaning, and story
// generation into complete runs.
//
// A run fetches the subtitle track for a video (cache first), normalizes
// it into clean prose, and hands the prose to one of two flows: the
// classic core-then-story flow or the five-stage multipass flow. Every
// run gets a uuid, a per-run artifact directory under the data dir, and
// a file lock that keeps concurrent runs on one host from racing over
// the cache and template files.
package pipeline
