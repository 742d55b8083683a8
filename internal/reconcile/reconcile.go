// Package reconcile repairs rows left behind when a file was relocated but
// the catalog update that should have followed never landed.
//
// Scan is read-only. It lists unfinished rows whose source file is gone and
// tries to find each file in the output hierarchy, first at the recorded
// destination and then by its {tag}_{rating}_{source} name. Apply commits the
// located ones; the rest are reported and left alone.
package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Status describes what Scan learned about a row.
type Status string

const (
	StatusLocated   Status = "located"
	StatusOrphaned  Status = "orphaned"
	StatusAmbiguous Status = "ambiguous"
)

// Finding is one unfinished row whose source file no longer exists.
type Finding struct {
	Record     media.Record
	Status     Status
	Located    media.Record
	Candidates []string
}

// Store is the catalog surface reconciliation needs.
type Store interface {
	Unreconciled(ctx context.Context) []media.Record
	CommitFinal(ctx context.Context, rec media.Record, dir, name string) (media.Record, bool)
}

// Result tallies Apply.
type Result struct {
	Committed int
	Failed    int
	Untouched int
}

// Reconciler matches orphaned rows to files under the output root.
type Reconciler struct {
	store      Store
	outputRoot string
	logger     *slog.Logger
}

// New constructs a Reconciler.
func New(store Store, outputRoot string, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, outputRoot: outputRoot, logger: logging.NewComponentLogger(logger, "reconcile")}
}

// Scan inspects every unfinished row whose source is missing.
func (r *Reconciler) Scan(ctx context.Context) ([]Finding, error) {
	rows := r.store.Unreconciled(ctx)
	if len(rows) == 0 {
		return nil, nil
	}
	index, err := r.indexOutput(ctx)
	if err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(rows))
	for _, rec := range rows {
		finding := Finding{Record: rec, Status: StatusOrphaned}
		if dest := rec.DestinationFile(); dest != "" && isRegular(dest) {
			finding.Candidates = []string{dest}
		} else {
			finding.Candidates = matching(index, rec.SourceName)
		}
		switch len(finding.Candidates) {
		case 0:
		case 1:
			if located, ok := r.derive(rec, finding.Candidates[0]); ok {
				finding.Status = StatusLocated
				finding.Located = located
			}
		default:
			finding.Status = StatusAmbiguous
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// Apply commits every located finding.
func (r *Reconciler) Apply(ctx context.Context, findings []Finding) Result {
	var result Result
	logger := logging.WithContext(ctx, r.logger)
	for _, f := range findings {
		if f.Status != StatusLocated {
			result.Untouched++
			continue
		}
		committed, ok := r.store.CommitFinal(ctx, f.Located, f.Located.DestPath, f.Located.DestName)
		if !ok {
			result.Failed++
			continue
		}
		result.Committed++
		logger.Info("row reconciled",
			logging.SourcePath(committed.SourcePath),
			logging.String("destination", committed.DestinationFile()),
			logging.RecordID(committed.ID),
		)
	}
	return result
}

// indexOutput lists the files exactly three directories below the output
// root (quality/type/category/name).
func (r *Reconciler) indexOutput(ctx context.Context) ([]string, error) {
	var index []string
	root := filepath.Clean(r.outputRoot)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return fs.SkipAll
			}
			faults.Log(r.logger, "walk output", err, logging.String("path", path))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if d.IsDir() {
			if depth >= 3 {
				return fs.SkipDir
			}
			return nil
		}
		if depth != 3 || !d.Type().IsRegular() {
			return nil
		}
		index = append(index, path)
		return nil
	})
	if err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "reconcile", "scan output", root, err)
	}
	return index, nil
}

// matching returns the indexed files named {tag}_{rating}_{source}.
func matching(index []string, source string) []string {
	var out []string
	for _, path := range index {
		if _, _, ok := parseName(filepath.Base(path), source); ok {
			out = append(out, path)
		}
	}
	return out
}

// derive rebuilds the classification from a destination path.
func (r *Reconciler) derive(rec media.Record, path string) (media.Record, bool) {
	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	tag, rating, ok := parseName(name, rec.SourceName)
	if !ok {
		return media.Record{}, false
	}
	category := filepath.Base(dir)
	typ := filepath.Base(filepath.Dir(dir))
	located := rec.
		With(media.FieldType, typ).
		With(media.FieldCategory, category).
		With(media.FieldTag, tag).
		WithRating(rating).
		WithDestination(dir, name)
	if info, err := os.Stat(path); err == nil {
		located.Size = info.Size()
	}
	return located, located.Classified()
}

// parseName splits "{tag}_{rating}_{source}" for a known source name.
func parseName(name, source string) (tag string, rating int, ok bool) {
	prefix, found := strings.CutSuffix(name, "_"+source)
	if !found || source == "" {
		return "", 0, false
	}
	cut := strings.LastIndex(prefix, "_")
	if cut <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(prefix[cut+1:])
	if err != nil || n < media.MinRating || n > media.MaxRating {
		return "", 0, false
	}
	return prefix[:cut], n, true
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
