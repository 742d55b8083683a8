package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mediasort/internal/logging"
	"mediasort/internal/reconcile"
	"mediasort/internal/testsupport"
)

func TestScanAndApply(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	out := cfg.Paths.OutputDir

	// Destination recorded before the commit failed.
	recorded := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "a.mp4"))
	recordedDir := filepath.Join(out, "HD", "Movie", "Action")
	testsupport.WriteFile(t, filepath.Join(recordedDir, "Epic_4_a.mp4"), 100)
	if !store.UpdateDestination(ctx, recorded, recordedDir, "Epic_4_a.mp4") {
		t.Fatal("UpdateDestination failed")
	}

	// Nothing recorded; found by name. The tag contains an underscore.
	searched := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "my_b.mp4"))
	testsupport.WriteFile(t, filepath.Join(out, "SD", "Clip", "Drama", "Slow_burn_2_my_b.mp4"), 50)

	// Gone entirely.
	orphan := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "c.mp4"))

	// Two candidates.
	ambiguous := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "d.mp4"))
	testsupport.WriteFile(t, filepath.Join(out, "SD", "Clip", "Drama", "X_1_d.mp4"), 10)
	testsupport.WriteFile(t, filepath.Join(out, "HD", "Clip", "Drama", "X_1_d.mp4"), 10)

	// Source still present: not a reconciliation candidate.
	present := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "e.mp4"))
	testsupport.WriteFile(t, present.SourcePath, 10)

	r := reconcile.New(store, out, logging.NewNop())
	findings, err := r.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	status := map[string]reconcile.Status{}
	for _, f := range findings {
		status[f.Record.SourceName] = f.Status
	}
	want := map[string]reconcile.Status{
		recorded.SourceName:  reconcile.StatusLocated,
		searched.SourceName:  reconcile.StatusLocated,
		orphan.SourceName:    reconcile.StatusOrphaned,
		ambiguous.SourceName: reconcile.StatusAmbiguous,
	}
	if len(status) != len(want) {
		t.Fatalf("findings = %v", status)
	}
	for name, s := range want {
		if status[name] != s {
			t.Errorf("%s: status %q, want %q", name, status[name], s)
		}
	}

	// Scan is read-only.
	if rec, _ := store.Get(ctx, recorded.SourcePath); rec.Processed {
		t.Fatal("Scan committed a row")
	}

	result := r.Apply(ctx, findings)
	if result.Committed != 2 || result.Untouched != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	got, _ := store.Get(ctx, searched.SourcePath)
	if !got.Processed || got.Type != "Clip" || got.Category != "Drama" || got.Tag != "Slow_burn" || got.Rating != 2 || got.Count != 1 {
		t.Fatalf("unexpected reconciled record %+v", got)
	}
	if got.Size != 50 {
		t.Fatalf("size should come from the located file, got %d", got.Size)
	}
	got, _ = store.Get(ctx, recorded.SourcePath)
	if !got.Processed || got.DestPath != recordedDir || got.Tag != "Epic" {
		t.Fatalf("unexpected reconciled record %+v", got)
	}

	again, err := r.Scan(ctx)
	if err != nil || len(again) != 2 {
		t.Fatalf("second scan = %d findings, err %v", len(again), err)
	}
}

func TestScanWithMissingOutputRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "gone.mp4"))
	if err := os.RemoveAll(cfg.Paths.OutputDir); err != nil {
		t.Fatal(err)
	}

	findings, err := reconcile.New(store, cfg.Paths.OutputDir, logging.NewNop()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(findings) != 1 || findings[0].Status != reconcile.StatusOrphaned {
		t.Fatalf("unexpected findings %+v", findings)
	}
}
