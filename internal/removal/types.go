// Package removal rewrites unused C++ function bodies with a placeholder,
// given the ranges a boundary.File has already located. Which functions to
// remove is decided upstream, by the decision table a store carries.
package removal

// FileStats summarizes one RewriteFile call. Missed lists the reported
// function names the boundary detector could not reconcile for this file.
type FileStats struct {
	FunctionsRemoved int
	LinesRemoved     int
	Missed           []string
}

// RunStats accumulates FileStats plus reconciliation misses across an entire
// removal run, keyed by source path.
type RunStats struct {
	PerFile map[string]*FileStats

	FunctionsRemoved int
	LinesRemoved     int
	FunctionsMissed  int
}

func NewRunStats() *RunStats {
	return &RunStats{PerFile: make(map[string]*FileStats)}
}

// AddFile merges one file's rewrite stats into the run total, preserving any
// misses already recorded against the same path.
func (s *RunStats) AddFile(path string, fs FileStats) {
	entry := s.fileEntry(path)
	entry.FunctionsRemoved += fs.FunctionsRemoved
	entry.LinesRemoved += fs.LinesRemoved
	s.FunctionsRemoved += fs.FunctionsRemoved
	s.LinesRemoved += fs.LinesRemoved
}

// AddMiss records a reconciliation miss for path — a reported function the
// boundary detector couldn't locate, so nothing was removed for it.
func (s *RunStats) AddMiss(path, funcName string) {
	s.FunctionsMissed++
	entry := s.fileEntry(path)
	entry.Missed = append(entry.Missed, funcName)
}

func (s *RunStats) fileEntry(path string) *FileStats {
	if entry, ok := s.PerFile[path]; ok {
		return entry
	}
	entry := &FileStats{}
	s.PerFile[path] = entry
	return entry
}
