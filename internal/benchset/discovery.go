// Package benchset discovers the benchmark corpus for one coverage run from
// a glob pattern. Benchmark ids are assigned from the sorted path order, so
// the same corpus always yields the same id assignment regardless of
// filesystem iteration order.
package benchset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Discover expands pattern into the sorted list of absolute benchmark paths.
// The walk is rooted at the longest meta-character-free prefix of the
// pattern, so "corpus/**/*.smt2" only touches the corpus tree rather than
// the whole filesystem.
func Discover(pattern string) ([]string, error) {
	abs, err := filepath.Abs(pattern)
	if err != nil {
		return nil, fmt.Errorf("resolve benchmark pattern %q: %w", pattern, err)
	}

	g, err := glob.Compile(abs, '/')
	if err != nil {
		return nil, fmt.Errorf("compile benchmark pattern %q: %w", pattern, err)
	}

	root := staticPrefix(abs)

	var out []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if g.Match(filepath.ToSlash(path)) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk benchmarks under %s: %w", root, err)
	}

	sort.Strings(out)
	return out, nil
}

// staticPrefix returns the deepest directory of pattern containing no glob
// meta characters.
func staticPrefix(pattern string) string {
	dir := pattern
	for {
		parent := filepath.Dir(dir)
		if !strings.ContainsAny(parent, "*?[{") {
			return parent
		}
		if parent == dir {
			return string(filepath.Separator)
		}
		dir = parent
	}
}
