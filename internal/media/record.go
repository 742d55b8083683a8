package media

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

// Field names one controlled-vocabulary attribute of a record.
type Field string

const (
	FieldType     Field = "type"
	FieldCategory Field = "category"
	FieldTag      Field = "tag"
)

// Fields lists the vocabulary attributes in the order an operator supplies them.
var Fields = []Field{FieldType, FieldCategory, FieldTag}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// State is the lifecycle stage of a record within one pass.
type State int

const (
	StateStub State = iota
	StateClassified
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateStub:
		return "stub"
	case StateClassified:
		return "classified"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Record mirrors one row of the media table.
type Record struct {
	ID         int64
	FileID     int64
	SourcePath string
	SourceName string

	Type     string
	Category string
	Tag      string
	Rating   int

	Resolution string
	Size       int64

	DestPath string
	DestName string

	Deleted   bool
	Skipped   bool
	Processed bool
	Count     int64
}

// Prober extracts pixel dimensions from a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (width, height int, err error)
}

// NewRecord builds the in-memory record for path, taking the size from the
// filesystem and the resolution from prober. A probe failure yields
// UnknownResolution and is returned as probeErr so the caller can log it;
// only a stat failure makes the record unusable.
func NewRecord(ctx context.Context, path string, prober Prober) (rec Record, probeErr error, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return Record{}, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Record{}, nil, fmt.Errorf("stat %s: is a directory", path)
	}

	rec = Record{
		FileID:     NewFileID(),
		SourcePath: path,
		SourceName: filepath.Base(path),
		Size:       info.Size(),
		Resolution: UnknownResolution,
	}
	if prober != nil {
		width, height, perr := prober.Probe(ctx, path)
		if perr != nil {
			probeErr = perr
		} else {
			rec.Resolution = FormatResolution(width, height)
		}
	}
	return rec, probeErr, nil
}

// NewFileID returns the random display identifier stored in fileId. It is not
// a key; sourceFilePath is.
func NewFileID() int64 {
	return rand.Int64N(999999) + 1
}

// State reports the lifecycle stage implied by the record's fields.
func (r Record) State() State {
	switch {
	case r.Processed || r.Deleted || r.Skipped:
		return StateTerminal
	case r.Classified():
		return StateClassified
	default:
		return StateStub
	}
}

// Classified reports whether every taxonomy attribute and the rating are set.
func (r Record) Classified() bool {
	return strings.TrimSpace(r.Type) != "" &&
		strings.TrimSpace(r.Category) != "" &&
		strings.TrimSpace(r.Tag) != "" &&
		r.Rating >= MinRating && r.Rating <= MaxRating
}

// Value returns the record's value for a vocabulary field.
func (r Record) Value(field Field) string {
	switch field {
	case FieldType:
		return r.Type
	case FieldCategory:
		return r.Category
	case FieldTag:
		return r.Tag
	default:
		return ""
	}
}

// With returns a copy of r with field set to value.
func (r Record) With(field Field, value string) Record {
	switch field {
	case FieldType:
		r.Type = value
	case FieldCategory:
		r.Category = value
	case FieldTag:
		r.Tag = value
	}
	return r
}

// WithRating returns a copy of r with the rating clamped to [MinRating, MaxRating].
func (r Record) WithRating(rating int) Record {
	r.Rating = ClampRating(rating)
	return r
}

// WithDestination returns a copy of r located at dir/name.
func (r Record) WithDestination(dir, name string) Record {
	r.DestPath = dir
	r.DestName = name
	return r
}

// DestinationFile joins the destination directory and file name.
func (r Record) DestinationFile() string {
	if r.DestPath == "" || r.DestName == "" {
		return ""
	}
	return filepath.Join(r.DestPath, r.DestName)
}

// ClampRating limits rating to the accepted range.
func ClampRating(rating int) int {
	return min(max(rating, MinRating), MaxRating)
}
