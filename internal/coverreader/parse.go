package coverreader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ignorablePrefixes are path prefixes the reader drops without further
// processing (system and library headers under /usr/include and /usr/lib).
var ignorablePrefixes = []string{"/usr/include", "/usr/lib"}

// ErrMalformedDocument marks a tool-output parse failure. Unlike a failed
// chunk invocation, it is fatal: a document the reader cannot decode means
// the installed coverage tool's output format doesn't match what this
// reader expects.
type ErrMalformedDocument struct {
	Line int
	Err  error
}

func (e *ErrMalformedDocument) Error() string {
	return fmt.Sprintf("malformed coverage document at line %d: %v", e.Line, e.Err)
}

func (e *ErrMalformedDocument) Unwrap() error { return e.Err }

// ParseStream reads one JSON document per line from r (the coverage tool's
// stdout) and yields a FileCoverage for every file entry not under an
// ignorable prefix, skipping ignored files rather than returning them.
func ParseStream(r io.Reader, ignorePrefixes []string) ([]FileCoverage, error) {
	if ignorePrefixes == nil {
		ignorePrefixes = ignorablePrefixes
	}

	scanner := bufio.NewScanner(r)
	// coverage documents for large translation units can exceed the default
	// 64KiB scanner buffer; grow it generously.
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)

	var out []FileCoverage
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var doc gcovFileDoc
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, &ErrMalformedDocument{Line: lineNo, Err: err}
		}

		for _, f := range doc.Files {
			if isIgnorable(f.File, ignorePrefixes) {
				continue
			}
			fc := FileCoverage{Path: f.File}
			for _, fn := range f.Functions {
				usage := int64(0)
				if fn.ExecutionCount > 0 {
					usage = 1
				}
				fc.Functions = append(fc.Functions, FuncResult{
					Name:      fn.Name,
					StartLine: fn.StartLine,
					StartCol:  fn.StartColumn,
					EndLine:   fn.EndLine,
					EndCol:    fn.EndColumn,
					Usage:     usage,
				})
			}
			for _, ln := range f.Lines {
				usage := int64(0)
				if ln.Count > 0 {
					usage = 1
				}
				fc.Lines = append(fc.Lines, LineResult{LineNo: ln.LineNumber, Usage: usage})
			}
			out = append(out, fc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan coverage stream: %w", err)
	}
	return out, nil
}

func isIgnorable(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
