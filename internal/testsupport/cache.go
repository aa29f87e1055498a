package testsupport

import (
	"context"
	"testing"

	"hanziblur/internal/logging"
	"hanziblur/internal/trackcache"
)

// MustOpenCache opens a track cache at path and closes it when the test ends.
func MustOpenCache(t testing.TB, path string) *trackcache.Store {
	t.Helper()
	store, err := trackcache.Open(context.Background(), path, logging.NewNop())
	if err != nil {
		t.Fatalf("open track cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
