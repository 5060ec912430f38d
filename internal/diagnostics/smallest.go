package diagnostics

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/covpare/pare/internal/merge"
	"github.com/covpare/pare/internal/removeconfig"
	"github.com/covpare/pare/internal/store"
)

// BenchSize is one candidate benchmark for a function, sized by its
// whitespace-token count.
type BenchSize struct {
	BenchmarkID int64
	Path        string
	Tokens      int
}

// SmallestResult pairs one to-be-removed function with the smallest
// benchmarks (by token count) that exercised it.
type SmallestResult struct {
	FunctionID int64
	Name       string
	SourcePath string
	Benches    []BenchSize
}

// SmallestBenches finds, for each function the p-threshold decision table
// marks unused, the topN smallest benchmarks exercising it. Benchmark size
// is the whitespace-token count of the file's content with set-info lines
// stripped, so metadata-heavy inputs don't look artificially large.
func SmallestBenches(st *store.Store, p float64, topN int, rewritePath func(string) string) ([]SmallestResult, error) {
	if topN <= 0 {
		topN = 1
	}
	table, err := removeconfig.TableName(p)
	if err != nil {
		return nil, err
	}
	decisions, err := st.ReadDecisions(table)
	if err != nil {
		return nil, fmt.Errorf("read decision table %s: %w", table, err)
	}

	benches, err := st.ListBenchmarks()
	if err != nil {
		return nil, err
	}
	pathByID := make(map[int64]string, len(benches))
	for _, b := range benches {
		pathByID[b.ID] = b.Path
	}
	tokenCache := make(map[int64]int)

	var out []SmallestResult
	for _, d := range decisions {
		if d.UseFunction {
			continue
		}
		sourcePath, name, _, _, _, _, err := st.FunctionByID(d.FunctionID)
		if err != nil {
			return nil, err
		}
		bitmap, err := st.FunctionBitmap(d.FunctionID)
		if err != nil {
			return nil, fmt.Errorf("bitmap for function %d: %w", d.FunctionID, err)
		}

		var sizes []BenchSize
		for _, bit := range merge.SetBits(bitmap) {
			id := int64(bit + 1)
			path, ok := pathByID[id]
			if !ok {
				continue
			}
			tokens, ok := tokenCache[id]
			if !ok {
				tokens, err = TokenCount(rewritePath(path))
				if err != nil {
					return nil, err
				}
				tokenCache[id] = tokens
			}
			sizes = append(sizes, BenchSize{BenchmarkID: id, Path: path, Tokens: tokens})
		}

		sort.Slice(sizes, func(i, j int) bool {
			if sizes[i].Tokens != sizes[j].Tokens {
				return sizes[i].Tokens < sizes[j].Tokens
			}
			return sizes[i].BenchmarkID < sizes[j].BenchmarkID
		})
		if len(sizes) > topN {
			sizes = sizes[:topN]
		}

		out = append(out, SmallestResult{
			FunctionID: d.FunctionID,
			Name:       name,
			SourcePath: sourcePath,
			Benches:    sizes,
		})
	}
	return out, nil
}

// TokenCount counts whitespace-separated tokens in the file at path,
// skipping set-info lines (benchmark metadata, not problem content).
func TokenCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read benchmark %s: %w", path, err)
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "(set-info") {
			continue
		}
		count += len(strings.Fields(line))
	}
	return count, nil
}
