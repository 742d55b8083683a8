package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/interaction"
	"mediasort/internal/logging"
	"mediasort/internal/media"
	"mediasort/internal/metrics"
	"mediasort/internal/organizer"
)

// ErrQuit reports that the operator ended the run.
var ErrQuit = errors.New("operator quit")

// Store is the catalog surface the pipeline writes through.
type Store interface {
	Get(ctx context.Context, sourcePath string) (media.Record, bool)
	InsertStub(ctx context.Context, rec media.Record) (media.Record, bool)
	UpdateDestination(ctx context.Context, rec media.Record, dir, name string) bool
	CommitFinal(ctx context.Context, rec media.Record, dir, name string) (media.Record, bool)
	MarkDeleted(ctx context.Context, rec media.Record) bool
	MarkSkipped(ctx context.Context, rec media.Record) bool
	IncrementCount(ctx context.Context, rec media.Record)
}

// Relocator moves accepted files.
type Relocator interface {
	Relocate(ctx context.Context, rec media.Record) (organizer.Destination, error)
}

// Trasher disposes of deleted files.
type Trasher interface {
	MoveToTrash(path string) (string, error)
}

// Decider runs the operator dialogue for one record.
type Decider interface {
	Run(ctx context.Context, rec media.Record) interaction.Outcome
}

// Playback receives fire-and-forget preview commands.
type Playback interface {
	Load(path string)
	Play()
	Stop()
	Release()
}

// Summary tallies one run.
type Summary struct {
	Processed int
	Deleted   int
	Skipped   int
	Failed    int
}

// Total is the number of files that reached a decision or failed.
func (s Summary) Total() int {
	return s.Processed + s.Deleted + s.Skipped + s.Failed
}

// Dependencies groups the pipeline's collaborators. Prober, Playback and
// Metrics may be nil.
type Dependencies struct {
	Store        Store
	Organizer    Relocator
	Trash        Trasher
	Decider      Decider
	Prober       media.Prober
	Playback     Playback
	Metrics      *metrics.Recorder
	ReleaseDelay time.Duration
}

// Pipeline is the single consumer of the file queue.
type Pipeline struct {
	deps   Dependencies
	logger *slog.Logger

	// OnRecord, when set, receives the stored row after each decision.
	OnRecord func(media.Record)
}

type nopPlayback struct{}

func (nopPlayback) Load(string) {}
func (nopPlayback) Play() {}
func (nopPlayback) Stop() {}
func (nopPlayback) Release() {}

// New constructs a pipeline.
func New(deps Dependencies, logger *slog.Logger) *Pipeline {
	if deps.Playback == nil {
		deps.Playback = nopPlayback{}
	}
	return &Pipeline{deps: deps, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// Run processes files in order. It returns ErrQuit when the operator quits or
// ctx is cancelled; an exhausted queue returns nil.
func (p *Pipeline) Run(ctx context.Context, files []string) (Summary, error) {
	var summary Summary
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("processing queue", logging.Int("files", len(files)))

	for i, path := range files {
		if ctx.Err() != nil {
			logger.Info("run cancelled", logging.Int("remaining", len(files)-i))
			return summary, ErrQuit
		}
		quit := p.processFile(logging.WithSourcePath(ctx, path), path, &summary)
		if quit {
			logger.Info("operator quit",
				logging.Int("processed", summary.Processed),
				logging.Int("remaining", len(files)-i-1),
			)
			return summary, ErrQuit
		}
	}

	logger.Info("queue finished",
		logging.Int("processed", summary.Processed),
		logging.Int("deleted", summary.Deleted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

// processFile handles one file and reports whether the operator quit.
func (p *Pipeline) processFile(ctx context.Context, path string, summary *Summary) bool {
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	rec, probeErr, err := media.NewRecord(ctx, path, p.deps.Prober)
	if err != nil {
		p.fail(logger, summary, "stat", faults.Wrap(faults.ErrFilesystem, "pipeline", "read file", path, err))
		return false
	}
	if probeErr != nil {
		faults.Log(logger, "probe resolution", probeErr)
		p.deps.Metrics.ObserveProbeFailure()
	}

	rec, ok := p.ensureStub(ctx, logger, rec)
	if !ok {
		summary.Failed++
		return false
	}

	p.deps.Playback.Load(path)
	p.deps.Playback.Play()
	outcome := p.deps.Decider.Run(ctx, rec)
	p.deps.Playback.Stop()

	decided := outcome.Record
	switch outcome.Decision {
	case interaction.DecisionAccept:
		if p.accept(ctx, logger, decided, summary) {
			p.deps.Metrics.ObserveDecision(outcome.Decision.String(), time.Since(started))
		} else if ctx.Err() != nil {
			return p.quit(ctx, decided, started)
		}
	case interaction.DecisionDelete:
		if p.delete(ctx, logger, decided, summary) {
			p.deps.Metrics.ObserveDecision(outcome.Decision.String(), time.Since(started))
		} else if ctx.Err() != nil {
			return p.quit(ctx, decided, started)
		}
	case interaction.DecisionSkip:
		if p.deps.Store.MarkSkipped(ctx, decided) {
			p.deps.Store.IncrementCount(ctx, decided)
			summary.Skipped++
			p.deps.Metrics.ObserveDecision(outcome.Decision.String(), time.Since(started))
			p.emit(ctx, path)
		} else {
			summary.Failed++
			p.deps.Metrics.ObserveFailure("skip", faults.KindConnection)
		}
	default:
		return p.quit(ctx, decided, started)
	}
	return false
}

// quit records the in-flight file's final count. ctx may already be
// cancelled, so the write detaches from it.
func (p *Pipeline) quit(ctx context.Context, rec media.Record, started time.Time) bool {
	p.deps.Store.IncrementCount(context.WithoutCancel(ctx), rec)
	p.deps.Playback.Release()
	p.deps.Metrics.ObserveDecision(interaction.DecisionQuit.String(), time.Since(started))
	return true
}

// ensureStub reuses an existing row or inserts a stub. Rows that already
// reached processed or deleted are not offered again.
func (p *Pipeline) ensureStub(ctx context.Context, logger *slog.Logger, rec media.Record) (media.Record, bool) {
	if stored, ok := p.deps.Store.Get(ctx, rec.SourcePath); ok {
		if stored.Processed || stored.Deleted {
			logging.WarnWithContext(logger, "file already finished in catalog; leaving it in place", "already_cataloged",
				logging.Bool("processed", stored.Processed),
				logging.Bool("deleted", stored.Deleted),
				logging.String(logging.FieldImpact, "file skipped for this run"),
				logging.String(logging.FieldErrorHint, "remove the stale copy from the input directory or inspect it with 'mediasort catalog show'"),
			)
			p.deps.Metrics.ObserveFailure("stub", faults.KindConstraint)
			return rec, false
		}
		rec.ID = stored.ID
		rec.FileID = stored.FileID
		rec.Count = stored.Count
		rec.Skipped = stored.Skipped
		logger.Debug("reusing catalog row", logging.RecordID(stored.ID), logging.Int64("count", stored.Count))
		return rec, true
	}
	stored, ok := p.deps.Store.InsertStub(ctx, rec)
	if !ok {
		logging.WarnWithContext(logger, "could not register file; skipping it", "stub_failed",
			logging.String(logging.FieldImpact, "file left in the input directory"),
		)
		p.deps.Metrics.ObserveFailure("stub", faults.KindConnection)
		return rec, false
	}
	stored.Resolution = rec.Resolution
	stored.Size = rec.Size
	return stored, true
}

func (p *Pipeline) accept(ctx context.Context, logger *slog.Logger, rec media.Record, summary *Summary) bool {
	dest, err := p.deps.Organizer.Relocate(ctx, rec)
	if err != nil {
		if ctx.Err() == nil {
			p.fail(logger, summary, "relocate", err)
		}
		return false
	}
	p.deps.Metrics.ObserveRelocated(rec.Size)

	// The file has moved; the catalog writes must not be abandoned halfway.
	writeCtx := context.WithoutCancel(ctx)
	destRecorded := p.deps.Store.UpdateDestination(writeCtx, rec, dest.Dir, dest.Name)
	committed, ok := p.deps.Store.CommitFinal(writeCtx, rec, dest.Dir, dest.Name)
	if !ok {
		logging.WarnWithContext(logger, "file moved but catalog not updated", "reconcile_required",
			logging.String("destination", dest.Path),
			logging.Bool("destination_recorded", destRecorded),
			logging.String(logging.FieldImpact, "record stays unprocessed while the file sits at its destination"),
			logging.String(logging.FieldErrorHint, "run 'mediasort reconcile --apply' to record the move"),
		)
		summary.Failed++
		p.deps.Metrics.ObserveFailure("commit", faults.KindConnection)
		return false
	}
	summary.Processed++
	p.notify(committed)
	return true
}

func (p *Pipeline) delete(ctx context.Context, logger *slog.Logger, rec media.Record, summary *Summary) bool {
	p.deps.Playback.Release()
	if err := wait(ctx, p.deps.ReleaseDelay); err != nil {
		return false
	}
	if _, err := p.deps.Trash.MoveToTrash(rec.SourcePath); err != nil {
		p.fail(logger, summary, "delete", err)
		return false
	}
	writeCtx := context.WithoutCancel(ctx)
	if !p.deps.Store.MarkDeleted(writeCtx, rec) {
		logging.WarnWithContext(logger, "file trashed but catalog not updated", "reconcile_required",
			logging.String(logging.FieldImpact, "record stays unprocessed although the file is in the trash"),
			logging.String(logging.FieldErrorHint, "run 'mediasort reconcile' to list the orphaned row"),
		)
		summary.Failed++
		p.deps.Metrics.ObserveFailure("delete", faults.KindConnection)
		return false
	}
	p.deps.Store.IncrementCount(writeCtx, rec)
	summary.Deleted++
	p.emit(writeCtx, rec.SourcePath)
	return true
}

func (p *Pipeline) fail(logger *slog.Logger, summary *Summary, step string, err error) {
	kind := faults.Log(logger, step, err)
	summary.Failed++
	p.deps.Metrics.ObserveFailure(step, kind)
}

// emit re-reads the row so OnRecord sees what was stored.
func (p *Pipeline) emit(ctx context.Context, path string) {
	if p.OnRecord == nil {
		return
	}
	if rec, ok := p.deps.Store.Get(ctx, path); ok {
		p.OnRecord(rec)
	}
}

func (p *Pipeline) notify(rec media.Record) {
	if p.OnRecord != nil {
		p.OnRecord(rec)
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
