package faults

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"
)

var (
	ErrConnection = errors.New("connection error")
	ErrConstraint = errors.New("constraint error")
	ErrFilesystem = errors.New("filesystem error")
	ErrValidation = errors.New("validation error")
	ErrProbe      = errors.New("probe error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}

// Kind is the error taxonomy used for logging and recovery decisions.
type Kind string

const (
	KindNone       Kind = ""
	KindConnection Kind = "connection"
	KindConstraint Kind = "constraint"
	KindFilesystem Kind = "filesystem"
	KindValidation Kind = "validation"
	KindProbe      Kind = "probe"
	KindUnknown    Kind = "unknown"
)

// SQLite primary result codes inspected by Classify.
const (
	sqliteError    = 1
	sqliteBusy     = 5
	sqliteLocked   = 6
	sqliteIOErr    = 10
	sqliteCorrupt  = 11
	sqliteCantOpen = 14
	sqliteMismatch = 20
	sqliteConstr   = 19
	sqliteRange    = 25
	sqliteNotADB   = 26
)

// Classify maps err onto a Kind. Explicit markers win over driver codes, and
// driver codes win over filesystem inspection.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	switch {
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrConstraint):
		return KindConstraint
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrProbe):
		return KindProbe
	case errors.Is(err, ErrFilesystem):
		return KindFilesystem
	}

	if code, ok := SQLiteCode(err); ok {
		switch code & 0xff {
		case sqliteBusy, sqliteLocked, sqliteIOErr, sqliteCorrupt, sqliteCantOpen, sqliteNotADB:
			return KindConnection
		case sqliteConstr, sqliteMismatch, sqliteRange, sqliteError:
			return KindConstraint
		}
	}

	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) ||
		errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.EXDEV) {
		return KindFilesystem
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return KindFilesystem
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return KindFilesystem
	}
	return KindUnknown
}

// SQLiteCode extracts the extended result code from a driver error.
func SQLiteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code(), true
	}
	return 0, false
}

// IsConstraint reports whether err is a uniqueness or other constraint violation.
func IsConstraint(err error) bool {
	if errors.Is(err, ErrConstraint) {
		return true
	}
	if code, ok := SQLiteCode(err); ok {
		return code&0xff == sqliteConstr
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsBusy reports whether err is SQLite's lock contention error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := SQLiteCode(err); ok && code&0xff == sqliteBusy {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// IsCrossDevice reports whether err came from renaming across filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
