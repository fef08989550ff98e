package testsupport

import (
	"context"
	"testing"

	"wiretap/internal/config"
	"wiretap/internal/nodestore"
)

// MustOpenStore opens a nodestore.Store seeded from cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *nodestore.Store {
	t.Helper()

	store, err := nodestore.OpenFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("nodestore.OpenFromConfig: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
