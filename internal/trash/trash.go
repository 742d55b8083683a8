// Package trash moves deleted files into a freedesktop.org trash directory so
// a delete decision can be undone from the desktop file manager.
package trash

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/fileutil"
	"mediasort/internal/logging"
)

const maxNameAttempts = 1000

// Bin is one trash directory with files/ and info/ subdirectories.
type Bin struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// New returns a Bin rooted at dir.
func New(dir string, logger *slog.Logger) *Bin {
	return &Bin{dir: dir, now: time.Now, logger: logging.NewComponentLogger(logger, "trash")}
}

// Dir returns the trash root.
func (b *Bin) Dir() string {
	return b.dir
}

// MoveToTrash moves path into the bin and writes its .trashinfo record. It
// returns the path of the trashed file.
func (b *Bin) MoveToTrash(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", faults.Wrap(faults.ErrFilesystem, "trash", "resolve path", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return "", faults.Wrap(faults.ErrFilesystem, "trash", "stat", abs, err)
	}
	filesDir := filepath.Join(b.dir, "files")
	infoDir := filepath.Join(b.dir, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", faults.Wrap(faults.ErrFilesystem, "trash", "create bin", dir, err)
		}
	}

	name, infoPath, err := b.reserve(infoDir, filepath.Base(abs), abs)
	if err != nil {
		return "", err
	}
	target := filepath.Join(filesDir, name)

	if err := os.Rename(abs, target); err != nil {
		if !faults.IsCrossDevice(err) {
			_ = os.Remove(infoPath)
			return "", faults.Wrap(faults.ErrFilesystem, "trash", "move", abs, err)
		}
		if err := fileutil.MoveVerified(abs, target); err != nil {
			_ = os.Remove(infoPath)
			return "", faults.Wrap(faults.ErrFilesystem, "trash", "copy to bin", abs, err)
		}
	}

	b.logger.Info("file moved to trash",
		logging.SourcePath(abs),
		logging.String("trash_path", target),
	)
	return target, nil
}

// reserve claims a unique name by creating its .trashinfo exclusively.
func (b *Bin) reserve(infoDir, base, original string) (string, string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	info := trashInfo(original, b.now())
	for i := 1; i <= maxNameAttempts; i++ {
		name := base
		if i > 1 {
			name = stem + "." + strconv.Itoa(i) + ext
		}
		if _, err := os.Lstat(filepath.Join(b.dir, "files", name)); err == nil {
			continue
		}
		infoPath := filepath.Join(infoDir, name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", faults.Wrap(faults.ErrFilesystem, "trash", "write info", infoPath, err)
		}
		_, werr := f.WriteString(info)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			_ = os.Remove(infoPath)
			return "", "", faults.Wrap(faults.ErrFilesystem, "trash", "write info", infoPath, err)
		}
		return name, infoPath, nil
	}
	return "", "", faults.Wrap(faults.ErrFilesystem, "trash", "reserve name", fmt.Sprintf("no free name for %s", base), nil)
}

func trashInfo(original string, deleted time.Time) string {
	escaped := (&url.URL{Path: original}).EscapedPath()
	return "[Trash Info]\nPath=" + escaped + "\nDeletionDate=" + deleted.Format("2006-01-02T15:04:05") + "\n"
}
