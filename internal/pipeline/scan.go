package pipeline

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
)

// Discover lists the regular files directly inside dir whose extension passes
// allow. The result is sorted; subdirectories are not descended.
func Discover(dir string, allow func(ext string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == "" || !allow(ext) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// Shuffle returns a shuffled copy of files. A nil r uses the global source.
func Shuffle(files []string, r *rand.Rand) []string {
	out := slices.Clone(files)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if r == nil {
		rand.Shuffle(len(out), swap)
		return out
	}
	r.Shuffle(len(out), swap)
	return out
}
