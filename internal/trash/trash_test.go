package trash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

func TestMoveToTrashWritesInfoAndAvoidsCollisions(t *testing.T) {
	base := t.TempDir()
	bin := New(filepath.Join(base, "Trash"), logging.NewNop())
	bin.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local) }

	var trashed []string
	for i := 0; i < 2; i++ {
		src := filepath.Join(base, "in", "my clip.mp4")
		if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(src, []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := bin.MoveToTrash(src)
		if err != nil {
			t.Fatalf("MoveToTrash: %v", err)
		}
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Fatalf("source still present: %v", err)
		}
		trashed = append(trashed, got)
	}

	wantNames := []string{"my clip.mp4", "my clip.2.mp4"}
	for i, path := range trashed {
		if filepath.Base(path) != wantNames[i] {
			t.Fatalf("trashed[%d] = %s, want %s", i, filepath.Base(path), wantNames[i])
		}
		info, err := os.ReadFile(filepath.Join(bin.Dir(), "info", wantNames[i]+".trashinfo"))
		if err != nil {
			t.Fatalf("read trashinfo: %v", err)
		}
		text := string(info)
		if !strings.HasPrefix(text, "[Trash Info]\n") ||
			!strings.Contains(text, "/in/my%20clip.mp4\n") ||
			!strings.Contains(text, "DeletionDate=2026-03-04T05:06:07\n") {
			t.Fatalf("unexpected trashinfo:\n%s", text)
		}
	}
}

func TestMoveToTrashMissingFile(t *testing.T) {
	bin := New(filepath.Join(t.TempDir(), "Trash"), logging.NewNop())
	_, err := bin.MoveToTrash(filepath.Join(t.TempDir(), "gone.mp4"))
	if !errors.Is(err, faults.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(bin.Dir(), "info"))
	if len(entries) != 0 {
		t.Fatalf("info written for failed move: %v", entries)
	}
}
