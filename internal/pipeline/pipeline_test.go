package pipeline_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"mediasort/internal/catalog"
	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/interaction"
	"mediasort/internal/logging"
	"mediasort/internal/media"
	"mediasort/internal/metrics"
	"mediasort/internal/organizer"
	"mediasort/internal/pipeline"
	"mediasort/internal/testsupport"
	"mediasort/internal/trash"
	"mediasort/internal/vocab"
)

type fakeProber struct {
	width, height int
	err           error
}

func (p fakeProber) Probe(context.Context, string) (int, int, error) {
	return p.width, p.height, p.err
}

type env struct {
	t       *testing.T
	cfg     *config.Config
	store   *catalog.Store
	reg     *vocab.Registry
	metrics *metrics.Recorder
	emitted []media.Record
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reg, err := vocab.New(store, cfg.Vocabulary, logging.NewNop())
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return &env{t: t, cfg: cfg, store: store, reg: reg, metrics: metrics.New()}
}

func (e *env) file(name string) string {
	e.t.Helper()
	path := filepath.Join(e.cfg.Paths.InputDir, name)
	testsupport.WriteFile(e.t, path, 4096)
	return path
}

type options struct {
	store   pipeline.Store
	prober  media.Prober
	orgOpts []organizer.Option
}

func (e *env) run(script string, files []string, opts options) (pipeline.Summary, error) {
	e.t.Helper()
	var store pipeline.Store = e.store
	if opts.store != nil {
		store = opts.store
	}
	prober := opts.prober
	if prober == nil {
		prober = fakeProber{width: 1920, height: 1080}
	}
	org := organizer.New(e.cfg, nil, logging.NewNop(), opts.orgOpts...)
	ctrl := interaction.New(strings.NewReader(script), io.Discard, e.reg, org, nil, logging.NewNop())
	p := pipeline.New(pipeline.Dependencies{
		Store:     store,
		Organizer: org,
		Trash:     trash.New(e.cfg.Trash.Dir, logging.NewNop()),
		Decider:   ctrl,
		Prober:    prober,
		Metrics:   e.metrics,
	}, logging.NewNop())
	p.OnRecord = func(rec media.Record) { e.emitted = append(e.emitted, rec) }
	return p.Run(context.Background(), files)
}

func (e *env) get(path string) media.Record {
	e.t.Helper()
	rec, ok := e.store.Get(context.Background(), path)
	if !ok {
		e.t.Fatalf("no record for %s", path)
	}
	return rec
}

func assertTerminal(t *testing.T, rec media.Record) {
	t.Helper()
	flags := 0
	for _, f := range []bool{rec.Processed, rec.Deleted, rec.Skipped} {
		if f {
			flags++
		}
	}
	if flags != 1 {
		t.Fatalf("expected exactly one terminal flag, got %+v", rec)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestAcceptRelocatesAndCommits(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")

	summary, err := e.run("n\nMovie\nn\nAction\nn\nFunny\n5\n\n", []string{src}, options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Total() != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	wantDir := filepath.Join(e.cfg.Paths.OutputDir, "FHD", "Movie", "Action")
	if !exists(filepath.Join(wantDir, "Funny_5_clip.mp4")) || exists(src) {
		t.Fatal("file was not relocated")
	}
	rec := e.get(src)
	if !rec.Processed || rec.DestPath != wantDir || rec.DestName != "Funny_5_clip.mp4" || rec.Count != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Resolution != "1920x1080" || rec.Size != 4096 || rec.Rating != 5 {
		t.Fatalf("derived fields not stored: %+v", rec)
	}
	assertTerminal(t, rec)
	if len(e.emitted) != 1 || !e.emitted[0].Processed {
		t.Fatalf("OnRecord not called with committed row: %+v", e.emitted)
	}
}

func TestDeleteAtTagPrompt(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")

	summary, err := e.run("n\nMovie\nn\nAction\nd\n", []string{src}, options{})
	if err != nil || summary.Deleted != 1 {
		t.Fatalf("Run = %+v, %v", summary, err)
	}
	if exists(src) {
		t.Fatal("source should be gone")
	}
	if !exists(filepath.Join(e.cfg.Trash.Dir, "files", "clip.mp4")) {
		t.Fatal("file not in trash")
	}
	rec := e.get(src)
	if !rec.Deleted || rec.Count != 1 || rec.DestPath != "" || rec.DestName != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	assertTerminal(t, rec)
}

func TestSkipLeavesFileAndCountsRepeatedRuns(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")

	for run := 1; run <= 2; run++ {
		summary, err := e.run("s\n", []string{src}, options{})
		if err != nil || summary.Skipped != 1 {
			t.Fatalf("run %d: %+v, %v", run, summary, err)
		}
		rec := e.get(src)
		if !rec.Skipped || rec.Count != int64(run) {
			t.Fatalf("run %d: unexpected record %+v", run, rec)
		}
		assertTerminal(t, rec)
		if !exists(src) {
			t.Fatal("skip must not touch the file")
		}
	}

	rows := e.store.Query(context.Background(), catalog.Filter{})
	if len(rows) != 1 {
		t.Fatalf("expected one row across runs, got %d", len(rows))
	}

	// A skipped file can be classified on a later pass.
	if _, err := e.run("n\nClip\nn\nDrama\nn\nCalm\n2\ny\n", []string{src}, options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := e.get(src)
	if !rec.Processed || rec.Skipped || rec.Count != 3 {
		t.Fatalf("unexpected record after accept %+v", rec)
	}
}

func TestInvalidVocabularyIsRejected(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")

	_, err := e.run("n\nMovie\nn\nAction\nn\nComedy,Drama\nq\n", []string{src}, options{})
	if !errors.Is(err, pipeline.ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if tags := e.reg.List(context.Background(), media.FieldTag); len(tags) != 0 {
		t.Fatalf("invalid tag was stored: %v", tags)
	}
}

func TestRelocationFailureAdvances(t *testing.T) {
	e := newEnv(t)
	first := e.file("a.mp4")
	second := e.file("b.mp4")
	denied := organizer.WithRename(func(src, dst string) error {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: syscall.EACCES}
	})

	summary, err := e.run("n\nMovie\nn\nAction\nn\nFunny\n3\n\ns\n", []string{first, second}, options{orgOpts: []organizer.Option{denied}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := e.get(first)
	if rec.Processed || rec.Count != 0 || rec.DestName != "" {
		t.Fatalf("failed relocation changed the record: %+v", rec)
	}
	if !exists(first) {
		t.Fatal("source should remain after failed rename")
	}
	if !e.get(second).Skipped {
		t.Fatal("pipeline did not advance to the next file")
	}
}

func TestQuitMidFile(t *testing.T) {
	e := newEnv(t)
	first := e.file("a.mp4")
	second := e.file("b.mp4")

	summary, err := e.run("n\nMovie\nq\n", []string{first, second}, options{})
	if !errors.Is(err, pipeline.ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if summary.Total() != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := e.get(first)
	if rec.Count != 1 || rec.Processed || rec.DestName != "" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !exists(first) {
		t.Fatal("quit must not move the file")
	}
	if e.store.Exists(context.Background(), second) {
		t.Fatal("queue continued after quit")
	}
	if err := e.store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEndOfInputIsQuit(t *testing.T) {
	e := newEnv(t)
	src := e.file("a.mp4")
	if _, err := e.run("", []string{src}, options{}); !errors.Is(err, pipeline.ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if e.get(src).Count != 1 {
		t.Fatal("quit should count the in-flight file")
	}
}

func TestProbeFailureUsesUnknownResolution(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mkv")
	prober := fakeProber{err: faults.Wrap(faults.ErrProbe, "ffprobe", "probe", "unreadable", nil)}

	if _, err := e.run("n\nMovie\nn\nAction\nn\nFunny\n1\n\n", []string{src}, options{prober: prober}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := e.get(src)
	if rec.Resolution != media.UnknownResolution || !strings.Contains(rec.DestPath, media.QualityLow) {
		t.Fatalf("unexpected record %+v", rec)
	}
}

type commitFailingStore struct {
	*catalog.Store
}

func (commitFailingStore) CommitFinal(_ context.Context, rec media.Record, _, _ string) (media.Record, bool) {
	return rec, false
}

func TestCommitFailureAfterRenameRequiresReconcile(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")

	summary, err := e.run("n\nMovie\nn\nAction\nn\nFunny\n4\n\n", []string{src}, options{store: commitFailingStore{e.store}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := e.get(src)
	if rec.Processed {
		t.Fatal("record must stay unprocessed")
	}
	wantDest := filepath.Join(e.cfg.Paths.OutputDir, "FHD", "Movie", "Action", "Funny_4_clip.mp4")
	if exists(src) || !exists(wantDest) {
		t.Fatal("file should stay at its destination")
	}
	if rec.DestinationFile() != wantDest {
		t.Fatalf("destination not recorded: %+v", rec)
	}
	if missing := e.store.Unreconciled(context.Background()); len(missing) != 1 {
		t.Fatalf("expected one unreconciled row, got %d", len(missing))
	}
}

func TestAlreadyProcessedRowIsNotOfferedAgain(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")
	stub := testsupport.InsertStub(t, e.store, src)
	done := stub.With(media.FieldType, "Movie").With(media.FieldCategory, "Action").With(media.FieldTag, "Old").WithRating(1)
	if _, ok := e.store.CommitFinal(context.Background(), done, "/elsewhere", "x.mp4"); !ok {
		t.Fatal("CommitFinal failed")
	}

	summary, err := e.run("s\n", []string{src}, options{})
	if err != nil || summary.Failed != 1 {
		t.Fatalf("Run = %+v, %v", summary, err)
	}
	if rec := e.get(src); rec.Count != 1 || rec.Skipped {
		t.Fatalf("terminal row regressed: %+v", rec)
	}
}

func TestCancelledContextQuitsBeforeWork(t *testing.T) {
	e := newEnv(t)
	src := e.file("clip.mp4")
	p := pipeline.New(pipeline.Dependencies{Store: e.store}, logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, []string{src}); !errors.Is(err, pipeline.ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if e.store.Exists(context.Background(), src) {
		t.Fatal("no stub should be written after cancellation")
	}
}
