// Package textutil provides text helpers shared across the pipeline,
// chiefly token fingerprints with cosine similarity and script detection.
//
// Fingerprints are term-frequency vectors over lowercase tokens. The
// tokenizer splits on runs of non-letter, non-digit characters and keeps
// tokens of three or more runes, so English and Cyrillic text compare the
// same way. Similarity scores back the acceptance guard for improved
// narration drafts.
package textutil
