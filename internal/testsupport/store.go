package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"mediasort/internal/catalog"
	"mediasort/internal/config"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertStub registers a stub record for path and fails the test if it cannot.
func InsertStub(t testing.TB, store *catalog.Store, path string) media.Record {
	t.Helper()

	rec, ok := store.InsertStub(context.Background(), media.Record{
		FileID:     media.NewFileID(),
		SourcePath: path,
		SourceName: filepath.Base(path),
		Resolution: media.UnknownResolution,
	})
	if !ok {
		t.Fatalf("store.InsertStub(%s) failed", path)
	}
	return rec
}
