package removal

import (
	"fmt"
	"log"
	"sort"

	"github.com/covpare/pare/internal/boundary"
	"github.com/covpare/pare/internal/removeconfig"
	"github.com/covpare/pare/internal/store"
)

// reportedFunc is one to-be-removed function as the store describes it:
// coverage-tool-reported coordinates, which may disagree with the real
// source and must be reconciled per file before any rewriting happens.
type reportedFunc struct {
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Engine drives a whole removal run: read decisions from the store, locate
// each listed function through the boundary detector, and rewrite the files
// whose functions the decision table marked unused.
type Engine struct {
	cfg *removeconfig.Config
	st  *store.Store
}

func NewEngine(cfg *removeconfig.Config, st *store.Store) *Engine {
	return &Engine{cfg: cfg, st: st}
}

// Run performs the removal pass and returns its statistics. When the config
// sets no_change, rewritten file contents are echoed to stdout and every
// source file is left untouched.
func (e *Engine) Run() (*RunStats, error) {
	table, err := removeconfig.TableName(e.cfg.P)
	if err != nil {
		return nil, err
	}

	decisions, err := e.st.ReadDecisions(table)
	if err != nil {
		return nil, fmt.Errorf("read decision table %s: %w", table, err)
	}

	byFile, err := e.groupRemovals(decisions)
	if err != nil {
		return nil, err
	}

	stats := NewRunStats()
	rewriter := &Rewriter{Placeholder: e.cfg.Placeholder, Prelude: e.cfg.Prelude}

	for _, reportedPath := range sortedKeys(byFile) {
		e.removeFromFile(rewriter, stats, reportedPath, byFile[reportedPath])
	}

	return stats, nil
}

// groupRemovals resolves every use_function=0 decision to its reported
// coordinates and groups them by reported source path, dropping whole files
// the config ignores.
func (e *Engine) groupRemovals(decisions []store.Decision) (map[string][]reportedFunc, error) {
	byFile := make(map[string][]reportedFunc)
	for _, d := range decisions {
		if d.UseFunction {
			continue
		}
		path, name, startLine, startCol, endLine, endCol, err := e.st.FunctionByID(d.FunctionID)
		if err != nil {
			return nil, fmt.Errorf("resolve decision for function %d: %w", d.FunctionID, err)
		}
		if e.cfg.IgnoreFile(path) {
			continue
		}
		byFile[path] = append(byFile[path], reportedFunc{
			Name:      name,
			StartLine: startLine,
			StartCol:  startCol,
			EndLine:   endLine,
			EndCol:    endCol,
		})
	}
	return byFile, nil
}

// removeFromFile reconciles one file's reported functions against the
// detector's ranges and rewrites the file. A function the detector cannot
// match is logged and skipped; the remaining functions in the same file are
// still processed (a miss is conservative, never fatal).
func (e *Engine) removeFromFile(rewriter *Rewriter, stats *RunStats, reportedPath string, funcs []reportedFunc) {
	realPath := e.cfg.RewritePath(reportedPath)

	detected, err := boundary.DetectFile(realPath)
	if err != nil {
		log.Printf("[removal] %s: %v, skipping %d functions", realPath, err, len(funcs))
		for _, f := range funcs {
			stats.AddMiss(reportedPath, f.Name)
		}
		return
	}

	var ranges []boundary.Range
	for _, f := range funcs {
		if e.cfg.IgnoreFunction(reportedPath, f.Name, f.StartLine, f.EndLine) {
			continue
		}
		r, ok := detected.Reconcile(f.Name, f.StartLine, f.EndLine)
		if !ok {
			log.Printf("[removal] %s: no detected body for %s (reported %d-%d)", realPath, f.Name, f.StartLine, f.EndLine)
			stats.AddMiss(reportedPath, f.Name)
			continue
		}
		ranges = append(ranges, r)
	}

	if len(ranges) == 0 {
		return
	}

	fileStats, err := rewriter.RewriteFile(realPath, ranges, e.cfg.NoChange)
	if err != nil {
		log.Printf("[removal] rewrite %s: %v", realPath, err)
		for _, r := range ranges {
			stats.AddMiss(reportedPath, r.Name)
		}
		return
	}

	stats.AddFile(reportedPath, fileStats)
	log.Printf("[removal] %s: removed=%d missed=%d", realPath, fileStats.FunctionsRemoved, len(stats.PerFile[reportedPath].Missed))
}

func sortedKeys(m map[string][]reportedFunc) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
