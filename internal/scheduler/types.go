// Package scheduler runs the coverage pipeline's worker pool: a fixed number
// of runner goroutines execute benchmarks and read their coverage, while a
// single writer goroutine owns the store and the in-memory aggregate, so no
// two goroutines ever touch the database concurrently.
package scheduler

import "github.com/covpare/pare/internal/coverreader"

// job is one unit of work handed to a runner goroutine.
type job struct {
	benchmarkID int64
	path        string
}

// jobResult is what a runner goroutine hands to the writer goroutine.
type jobResult struct {
	benchmarkID int64
	timeMs      int64
	exitCode    int
	stdout      string
	stderr      string
	coverage    map[string]coverreader.FileCoverage
	err         error
}

// Phase identifies a stage of the pipeline for status broadcasts.
type Phase int

const (
	PhaseDbReady Phase = iota
	PhaseDbError
	PhaseRunning
	PhaseBenchesDone
)

// Status is one broadcast event describing pipeline progress.
type Status struct {
	Phase     Phase
	Message   string
	Processed int
	Total     int
	Err       error
}
