// Package multipass generates a narrated story from clean subtitle text
// in five stages: analyze, core-extract, beat-plan, narrate and judge.
// Every stage asks the text backend for JSON, runs malformed output
// through a single repair request, and checks the decoded shape before
// the next stage builds on it.
package multipass
