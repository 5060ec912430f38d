// Package diagnostics holds the read-only consumers of a finished store: the
// detected-vs-reported deviation histogram behind visualize-function-ranges,
// and the smallest-benchmark lookup behind retrieve-smallest-benches. Neither
// mutates the store or any source file.
package diagnostics

import (
	"fmt"
	"log"

	"github.com/covpare/pare/internal/boundary"
	"github.com/covpare/pare/internal/store"
)

// Deviation is the start-line disagreement for one function the detector
// managed to reconcile: detected minus reported. Zero means the coverage
// tool's line number matched the real source exactly.
type Deviation struct {
	SourcePath string
	Name       string
	Delta      int
}

// CollectDeviations runs the boundary detector over every source file the
// store references and reconciles each reported function against it.
// rewritePath maps reported (build-tree) paths to real source locations;
// pass the identity function when no rewrite rules apply. Files or functions
// that cannot be reconciled are counted in misses and skipped.
func CollectDeviations(st *store.Store, rewritePath func(string) string) (devs []Deviation, misses int, err error) {
	rows, err := st.DB().Query(`
		SELECT sources.path, functions.name, functions.start_line, functions.end_line
		FROM functions JOIN sources ON sources.id = functions.source_id
		ORDER BY sources.path, functions.start_line
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("query functions for deviations: %w", err)
	}
	defer rows.Close()

	detectedByPath := make(map[string]*boundary.File)

	for rows.Next() {
		var path, name string
		var startLine, endLine int
		if err := rows.Scan(&path, &name, &startLine, &endLine); err != nil {
			return nil, 0, fmt.Errorf("scan function row: %w", err)
		}

		realPath := rewritePath(path)
		detected, ok := detectedByPath[realPath]
		if !ok {
			detected, err = boundary.DetectFile(realPath)
			if err != nil {
				log.Printf("[diagnostics] %s: %v", realPath, err)
				detectedByPath[realPath] = nil
				misses++
				continue
			}
			detectedByPath[realPath] = detected
		}
		if detected == nil {
			misses++
			continue
		}

		r, ok := detected.Reconcile(name, startLine, endLine)
		if !ok {
			misses++
			continue
		}
		devs = append(devs, Deviation{SourcePath: path, Name: name, Delta: r.StartLine - startLine})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate function rows: %w", err)
	}
	return devs, misses, nil
}
