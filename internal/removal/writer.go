package removal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/covpare/pare/internal/boundary"
)

// Rewriter emits a placeholder body in place of removed functions.
// Placeholder may reference "{func_name}" and "{file_name}", substituted
// per range. Prelude lines are written verbatim before the first source
// line, every run.
type Rewriter struct {
	Placeholder string
	Prelude     []string
}

// RewriteFile streams path line by line, replacing the body of every range
// in ranges with w.Placeholder and leaving everything else untouched. ranges
// need not be pre-sorted. When noChange is true the rewritten text is
// printed to stdout instead of being written back, and the source file is
// left alone — used for dry runs.
func (w *Rewriter) RewriteFile(path string, ranges []boundary.Range, noChange bool) (FileStats, error) {
	sorted := append([]boundary.Range{}, ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartLine < sorted[j].StartLine })

	in, err := os.Open(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("open %s for removal: %w", path, err)
	}
	defer in.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pare-removal-*")
	if err != nil {
		return FileStats{}, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName) // best-effort cleanup
		}
	}()

	out := bufio.NewWriter(tmp)
	for _, p := range w.Prelude {
		fmt.Fprintln(out, p)
	}

	stats, scanErr := w.copyWithRemovals(in, out, sorted, filepath.Base(path))
	if scanErr != nil {
		_ = tmp.Close()
		return FileStats{}, fmt.Errorf("rewrite %s: %w", path, scanErr)
	}
	if err := out.Flush(); err != nil {
		_ = tmp.Close()
		return FileStats{}, fmt.Errorf("flush rewrite of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return FileStats{}, fmt.Errorf("close temp for %s: %w", path, err)
	}

	if noChange {
		content, err := os.ReadFile(tmpName)
		if err != nil {
			return FileStats{}, fmt.Errorf("read back dry-run temp for %s: %w", path, err)
		}
		os.Stdout.Write(content)
		return stats, nil
	}

	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpName, info.Mode()) // best-effort permission sync
	}
	if err := os.Rename(tmpName, path); err != nil {
		return FileStats{}, fmt.Errorf("rename temp over %s: %w", path, err)
	}
	cleanup = false
	return stats, nil
}
