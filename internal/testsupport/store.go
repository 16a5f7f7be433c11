package testsupport

import (
	"context"
	"testing"

	"retell/internal/cache"
	"retell/internal/config"
)

// MustOpenStore opens a cache.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *cache.Store {
	t.Helper()

	store, err := cache.Open(cfg)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedArtifact stores a cached artifact for tests using the provided store.
func SeedArtifact(t testing.TB, store *cache.Store, videoID string, kind cache.Kind, content string) {
	t.Helper()

	if err := store.Put(context.Background(), videoID, kind, content); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
}
