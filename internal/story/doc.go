// Package story holds the classic two-step generation flow (story core,
// then final story), slide rendering, and the analyze/improve loop that
// scores a generated story against its source and rewrites it.
package story
