package catalog_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"mediasort/internal/faults"
	"mediasort/internal/media"
	"mediasort/internal/testsupport"
)

func TestOptionsStorage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, v := range []string{"drama", "Action"} {
		if err := store.InsertOption(ctx, media.FieldCategory, v); err != nil {
			t.Fatalf("InsertOption(%q): %v", v, err)
		}
	}
	err := store.InsertOption(ctx, media.FieldCategory, "Action")
	if !errors.Is(err, faults.ErrConstraint) {
		t.Fatalf("expected constraint error for duplicate, got %v", err)
	}

	stub := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "a.mp4"))
	rec := stub.With(media.FieldType, "Movie").With(media.FieldCategory, "Comedy").With(media.FieldTag, "Funny").WithRating(3)
	if _, ok := store.CommitFinal(ctx, rec, "/out", "x"); !ok {
		t.Fatal("CommitFinal failed")
	}

	got, err := store.ListOptions(ctx, media.FieldCategory)
	if err != nil {
		t.Fatalf("ListOptions: %v", err)
	}
	if want := []string{"Action", "Comedy", "drama"}; !slices.Equal(got, want) {
		t.Fatalf("ListOptions = %v, want %v", got, want)
	}

	tags, err := store.ListOptions(ctx, media.FieldTag)
	if err != nil || !slices.Equal(tags, []string{"Funny"}) {
		t.Fatalf("unexpected tags %v err=%v", tags, err)
	}

	if _, err := store.ListOptions(ctx, media.Field("rating")); err == nil {
		t.Fatal("expected error for non-vocabulary field")
	}
}

func TestBackfillEmptyOnlyTouchesEmptyRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "a.mp4"))
	b := testsupport.InsertStub(t, store, filepath.Join(cfg.Paths.InputDir, "b.mp4"))
	rec := b.With(media.FieldType, "Movie").With(media.FieldCategory, "Action").With(media.FieldTag, "Keep").WithRating(2)
	if _, ok := store.CommitFinal(ctx, rec, "/out", "x"); !ok {
		t.Fatal("CommitFinal failed")
	}

	n, err := store.BackfillEmpty(ctx, media.FieldTag, "New")
	if err != nil {
		t.Fatalf("BackfillEmpty: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one row backfilled, got %d", n)
	}
	gotA, _ := store.Get(ctx, a.SourcePath)
	gotB, _ := store.Get(ctx, b.SourcePath)
	if gotA.Tag != "New" || gotB.Tag != "Keep" {
		t.Fatalf("unexpected tags a=%q b=%q", gotA.Tag, gotB.Tag)
	}
}
