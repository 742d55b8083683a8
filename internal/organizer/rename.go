package organizer

import (
	"os"
)

// renameIfAbsent refuses to replace dst, then renames. The check and the rename
// are separate steps; platforms with an atomic no-replace rename avoid it.
func renameIfAbsent(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: os.ErrExist}
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.Rename(src, dst)
}
