// Package cache persists subtitle artifacts between pipeline runs. Each
// entry is keyed by (video id, kind) where kind distinguishes the raw
// downloaded track from the normalized clean text. Storage is a single
// SQLite database under the data directory.
package cache
