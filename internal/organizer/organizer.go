package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Releaser lets the organizer ask whoever holds the source file open to let go.
type Releaser interface {
	Release()
}

// Destination is where a record ends up.
type Destination struct {
	Dir  string
	Name string
	Path string
}

// Organizer relocates classified files.
type Organizer struct {
	outputRoot string
	releaser   Releaser
	delay      time.Duration
	rename     func(src, dst string) error
	logger     *slog.Logger
}

// Option customizes an Organizer.
type Option func(*Organizer)

// WithRename replaces the no-clobber rename, e.g. to simulate filesystem faults.
func WithRename(fn func(src, dst string) error) Option {
	return func(o *Organizer) {
		if fn != nil {
			o.rename = fn
		}
	}
}

// New constructs an organizer rooted at cfg's output directory. releaser may
// be nil.
func New(cfg *config.Config, releaser Releaser, logger *slog.Logger, opts ...Option) *Organizer {
	o := &Organizer{
		outputRoot: cfg.Paths.OutputDir,
		releaser:   releaser,
		delay:      cfg.ReleaseDelay(),
		rename:     renameNoReplace,
		logger:     logging.NewComponentLogger(logger, "organizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan computes the destination for rec without touching the filesystem.
func (o *Organizer) Plan(rec media.Record) (Destination, error) {
	if !rec.Classified() {
		return Destination{}, faults.Wrap(faults.ErrValidation, "organizer", "plan",
			fmt.Sprintf("record %q is missing type, category, tag or rating", rec.SourceName), nil)
	}
	for _, segment := range []string{rec.Type, rec.Category} {
		if segment == "." || segment == ".." {
			return Destination{}, faults.Wrap(faults.ErrValidation, "organizer", "plan",
				fmt.Sprintf("%q cannot be used as a directory name", segment), nil)
		}
	}
	dir := filepath.Join(o.outputRoot, media.QualityBucket(rec.Resolution), rec.Type, rec.Category)
	if rel, err := filepath.Rel(o.outputRoot, dir); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Destination{}, faults.Wrap(faults.ErrValidation, "organizer", "plan",
			fmt.Sprintf("destination %q is outside %s", dir, o.outputRoot), err)
	}
	name := rec.Tag + "_" + strconv.Itoa(rec.Rating) + "_" + rec.SourceName
	return Destination{Dir: dir, Name: name, Path: filepath.Join(dir, name)}, nil
}

// Relocate moves rec's source file to its planned destination.
func (o *Organizer) Relocate(ctx context.Context, rec media.Record) (Destination, error) {
	logger := logging.WithContext(ctx, o.logger)
	dest, err := o.Plan(rec)
	if err != nil {
		return Destination{}, err
	}

	if _, err := os.Stat(rec.SourcePath); err != nil {
		return Destination{}, faults.Wrap(faults.ErrFilesystem, "organizer", "stat source", rec.SourcePath, err)
	}
	if err := os.MkdirAll(dest.Dir, 0o755); err != nil {
		return Destination{}, faults.Wrap(faults.ErrFilesystem, "organizer", "create destination", dest.Dir, err)
	}

	if o.releaser != nil {
		o.releaser.Release()
	}
	if err := wait(ctx, o.delay); err != nil {
		return Destination{}, err
	}

	if err := o.rename(rec.SourcePath, dest.Path); err != nil {
		msg := dest.Path
		switch {
		case faults.IsCrossDevice(err):
			msg = "source and destination are on different filesystems; the file was not copied"
		case errors.Is(err, os.ErrExist):
			msg = "destination already exists: " + dest.Path
		}
		return Destination{}, faults.Wrap(faults.ErrFilesystem, "organizer", "rename", msg, err)
	}

	logger.Info("file relocated",
		logging.String("destination", dest.Path),
		logging.String("quality", media.QualityBucket(rec.Resolution)),
		logging.Int64("file_size", rec.Size),
	)
	return dest, nil
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
