package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/covpare/pare/internal/coverreader"
	"github.com/covpare/pare/internal/merge"
	"github.com/covpare/pare/internal/runner"
	"github.com/covpare/pare/internal/store"
)

// ErrCancelled is returned by Run when the pipeline was interrupted before
// every benchmark finished. The in-memory store is discarded in that case —
// a partial aggregate is never flushed or materialized.
var ErrCancelled = errors.New("scheduler: run cancelled")

// Scheduler owns the worker pool and the single writer goroutine for one
// coverage-collection run. Runner goroutines never touch the store directly;
// they hand results to the writer over a channel.
type Scheduler struct {
	runner     runner.Runner
	reader     *coverreader.Reader
	st         *store.Store
	prefixOf   func(benchmarkID int64) string
	numWorkers int
	flushEvery int

	statusMu   sync.RWMutex
	statusSubs map[string]chan Status

	trackAll       bool
	trackFunctions bool
	trackLines     bool

	cancelled atomic.Bool

	// testCoverageLookup overrides reading coverage via s.reader, used by
	// tests to exercise the merge/flush path without spawning a real
	// coverage tool.
	testCoverageLookup func(benchmarkID int64) map[string]coverreader.FileCoverage
}

// New builds a Scheduler. numWorkers controls runner-goroutine concurrency;
// flushEvery controls how many processed benchmarks accumulate in memory
// before the writer flushes counts to the store.
func New(r runner.Runner, reader *coverreader.Reader, st *store.Store, prefixOf func(int64) string, numWorkers, flushEvery int) *Scheduler {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if flushEvery <= 0 {
		flushEvery = 100
	}
	return &Scheduler{
		runner:         r,
		reader:         reader,
		st:             st,
		prefixOf:       prefixOf,
		numWorkers:     numWorkers,
		flushEvery:     flushEvery,
		trackFunctions: true,
		trackLines:     true,
		statusSubs:     make(map[string]chan Status),
	}
}

// SetTracking adjusts what the writer persists: which coverage kinds go to
// the store, and whether zero-usage entries are recorded too (--track-all
// enlarges the store but lets later analysis see never-exercised functions).
func (s *Scheduler) SetTracking(functions, lines, trackAll bool) {
	s.trackFunctions = functions
	s.trackLines = lines
	s.trackAll = trackAll
}

// Cancel requests a graceful stop: in-flight benchmarks finish their current
// run, but no new ones are started and the writer discards its partial
// aggregate rather than flushing it. Safe to call from a signal handler.
func (s *Scheduler) Cancel() {
	s.cancelled.Store(true)
}

// Run executes every benchmark, records run results into resultTable, merges
// coverage into the store, and materializes the final database to targetPath.
// It blocks until the run completes or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, benchmarks []store.Benchmark, resultTable, targetPath string) error {
	s.publishStatus(Status{Phase: PhaseDbReady, Message: "store ready", Total: len(benchmarks)})

	jobs := make(chan job, s.numWorkers)
	// Bounding the results channel at 10x the pool size caps how many parsed
	// coverage maps can pile up in memory when the writer falls behind;
	// runners block on send until it drains.
	results := make(chan jobResult, s.numWorkers*10)

	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, b := range benchmarks {
			if s.cancelled.Load() || ctx.Err() != nil {
				return
			}
			select {
			case jobs <- job{benchmarkID: b.ID, path: b.Path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	writeErr := s.runWriter(results, len(benchmarks), resultTable, targetPath)

	s.publishStatus(Status{Phase: PhaseBenchesDone, Message: "all benchmarks processed", Total: len(benchmarks)})

	return writeErr
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan job, results chan<- jobResult) {
	defer wg.Done()

	for j := range jobs {
		if s.cancelled.Load() || ctx.Err() != nil {
			return
		}

		res := s.runOne(ctx, j)

		select {
		case results <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, j job) jobResult {
	rr, err := s.runner.Run(ctx, j.benchmarkID, j.path)
	if err != nil {
		log.Printf("[scheduler] benchmark %d (%s) failed to run: %v", j.benchmarkID, j.path, err)
		return jobResult{benchmarkID: j.benchmarkID, err: err}
	}

	result := jobResult{
		benchmarkID: j.benchmarkID,
		timeMs:      rr.TimeMs,
		exitCode:    rr.ExitCode,
		stdout:      rr.Stdout,
		stderr:      rr.Stderr,
	}

	// Coverage artifacts are only trustworthy after a clean exit; a crashed
	// child still gets its run result recorded, but its coverage is skipped.
	if rr.ExitCode != 0 {
		return result
	}

	switch {
	case s.testCoverageLookup != nil:
		result.coverage = s.testCoverageLookup(j.benchmarkID)
	case s.reader != nil:
		prefix := s.prefixOf(j.benchmarkID)
		coverage, err := s.reader.Read(ctx, prefix)
		if err != nil {
			log.Printf("[scheduler] benchmark %d (%s) coverage read failed: %v", j.benchmarkID, j.path, err)
			result.err = err
			return result
		}
		result.coverage = coverage
		// The prefix directory is owned exclusively by this worker for the
		// duration of one run; remove it now that the Reader is done with it.
		if prefix != "" {
			if err := os.RemoveAll(prefix); err != nil {
				log.Printf("[scheduler] remove prefix %s: %v", prefix, err)
			}
		}
	}

	return result
}

// runWriter is the single goroutine that ever calls into the store while the
// pool is running. It owns the running SUM aggregate and the cumulative
// per-function/line benchmark bitmap.
func (s *Scheduler) runWriter(results <-chan jobResult, total int, resultTable, targetPath string) error {
	resolver := store.NewSourceResolver(s.st)
	aggregate := merge.NewCoverageMap()
	bitmaps := merge.NewBitmapSet()

	processed := 0
	sinceFlush := 0

	for r := range results {
		processed++
		sinceFlush++

		if resultTable != "" && r.err == nil {
			err := s.st.InsertRunResult(resultTable, store.RunResult{
				BenchmarkID: r.benchmarkID,
				TimeMs:      r.timeMs,
				ExitCode:    r.exitCode,
				Stdout:      r.stdout,
				Stderr:      r.stderr,
			})
			if err != nil {
				s.publishStatus(Status{Phase: PhaseDbError, Err: err})
				return fmt.Errorf("insert run result: %w", err)
			}
		}

		if r.err == nil && r.exitCode == 0 && r.coverage != nil {
			s.foldCoverage(aggregate, bitmaps, r.benchmarkID, r.coverage)
		}

		if processed%50 == 0 || processed == total {
			s.publishStatus(Status{Phase: PhaseRunning, Message: "processing", Processed: processed, Total: total})
		}

		if sinceFlush >= s.flushEvery {
			if err := flushAggregate(s.st, resolver, aggregate); err != nil {
				s.publishStatus(Status{Phase: PhaseDbError, Err: err})
				return fmt.Errorf("flush aggregate: %w", err)
			}
			aggregate = merge.NewCoverageMap()
			sinceFlush = 0
		}
	}

	// A cancelled run leaves the target path untouched: the partial aggregate
	// is deliberately thrown away rather than materialized.
	if s.cancelled.Load() && processed < total {
		return fmt.Errorf("%w after %d/%d benchmarks", ErrCancelled, processed, total)
	}

	if err := flushAggregate(s.st, resolver, aggregate); err != nil {
		s.publishStatus(Status{Phase: PhaseDbError, Err: err})
		return fmt.Errorf("final flush aggregate: %w", err)
	}

	if err := flushBitmaps(s.st, resolver, bitmaps, total); err != nil {
		s.publishStatus(Status{Phase: PhaseDbError, Err: err})
		return fmt.Errorf("flush bitmaps: %w", err)
	}

	// An empty targetPath skips materialization: evaluate runs attach
	// read-write to an existing on-disk store, which is its own durability.
	if targetPath != "" {
		if err := s.st.MaterializeToDisk(targetPath); err != nil {
			s.publishStatus(Status{Phase: PhaseDbError, Err: err})
			return fmt.Errorf("materialize store: %w", err)
		}
	}

	return nil
}

// foldCoverage merges one benchmark's per-file coverage into the running SUM
// aggregate and marks its presence in the bitmap accumulator.
func (s *Scheduler) foldCoverage(aggregate *merge.CoverageMap, bitmaps *merge.BitmapSet, benchmarkID int64, coverage map[string]coverreader.FileCoverage) {
	src := merge.NewCoverageMap()
	for path, fc := range coverage {
		if s.trackFunctions {
			for _, f := range fc.Functions {
				if f.Usage == 0 && !s.trackAll {
					continue
				}
				key := merge.Key{SourcePath: path, StartLine: f.StartLine, StartCol: f.StartCol}
				src.SetFunc(key, f.Name, f.EndLine, f.EndCol, f.Usage)
				if f.Usage > 0 {
					bitmaps.Mark(key, benchmarkID)
				}
			}
		}
		if s.trackLines {
			for _, l := range fc.Lines {
				if l.Usage == 0 && !s.trackAll {
					continue
				}
				key := merge.Key{SourcePath: path, LineNo: l.LineNo, IsLine: true}
				src.Set(key, "", l.Usage)
				if l.Usage > 0 {
					bitmaps.Mark(key, benchmarkID)
				}
			}
		}
	}
	merge.Into(aggregate, src, merge.SUM)
}

func flushAggregate(st *store.Store, resolver *store.SourceResolver, aggregate *merge.CoverageMap) error {
	if aggregate.Len() == 0 {
		return nil
	}

	var functions []store.FunctionUpsert
	var lines []store.LineUpsert
	for _, e := range aggregate.Entries() {
		if e.Key.IsLine {
			lines = append(lines, store.LineUpsert{
				SourcePath: e.Key.SourcePath,
				LineNo:     e.Key.LineNo,
				Count:      e.Usage,
			})
			continue
		}
		functions = append(functions, store.FunctionUpsert{
			SourcePath: e.Key.SourcePath,
			Name:       e.Name,
			StartLine:  e.Key.StartLine,
			StartCol:   e.Key.StartCol,
			EndLine:    e.EndLine,
			EndCol:     e.EndCol,
			Count:      e.Usage,
		})
	}

	if len(functions) > 0 {
		if err := st.UpsertFunctions(resolver, functions); err != nil {
			return err
		}
	}
	if len(lines) > 0 {
		if err := st.UpsertLines(resolver, lines); err != nil {
			return err
		}
	}
	return nil
}

func flushBitmaps(st *store.Store, resolver *store.SourceResolver, bitmaps *merge.BitmapSet, total int) error {
	keys := bitmaps.Keys()
	if len(keys) == 0 {
		return nil
	}

	var batch []store.FunctionBitvec
	for _, k := range keys {
		if k.IsLine {
			continue // bitmaps are only persisted for functions
		}
		batch = append(batch, store.FunctionBitvec{
			SourcePath: k.SourcePath,
			StartLine:  k.StartLine,
			StartCol:   k.StartCol,
			Data:       bitmaps.PackKey(k, total),
		})
	}
	if len(batch) == 0 {
		return nil
	}
	return st.InsertFunctionBitvecs(resolver, batch)
}
