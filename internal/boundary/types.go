// Package boundary reconstructs true C++ function body boundaries from
// source text, since coverage-tool-reported line numbers disagree with real
// source lines because of inline expansion, initializer lists, multiline
// signatures, and namespace nesting. It is a line-by-line brace/token
// scanner, not a parser: the heuristics are known to miss pathological
// signatures, and a reconciliation miss is reported rather than guessed at.
package boundary

import "strings"

// Range is one detected function body: (StartLine,StartCol) is the column
// of the opening brace, (EndLine,EndCol) the column of its match. Columns
// are 0-indexed rune offsets within their line.
type Range struct {
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

type lineKey struct {
	Start, End int
}

// File holds every function Range recovered from one source file, indexed
// two ways for reconciliation against coverage-reported ranges: by the
// exact (start,end) physical line pair, and by fully qualified name plus
// two tolerant aliases.
type File struct {
	// Ranges lists every detected function in source order.
	Ranges []Range

	byLines map[lineKey]Range
	byName  map[string][]Range
}

// ByLines looks up a function by its exact (start,end) physical line pair —
// the primary reconciliation key.
func (f *File) ByLines(start, end int) (Range, bool) {
	r, ok := f.byLines[lineKey{start, end}]
	return r, ok
}

// ByName looks up the candidate ranges registered under name (either its
// fully qualified form or one of the two tolerant aliases computed at
// detection time). Multiple entries mean the name is ambiguous in this file.
func (f *File) ByName(name string) []Range {
	return f.byName[name]
}

func newFile() *File {
	return &File{
		byLines: make(map[lineKey]Range),
		byName:  make(map[string][]Range),
	}
}

// record indexes r under its fully qualified name (namespaces joined with
// the captured funcName, which may itself carry its own "Class::" qualifier)
// plus two tolerance aliases: the captured name with its own innermost
// ::-segment stripped, and the full name with the innermost (most deeply
// nested) namespace stripped.
func (f *File) record(r Range, namespaces []string, funcName string) {
	f.Ranges = append(f.Ranges, r)
	f.byLines[lineKey{r.StartLine, r.EndLine}] = r

	fq := joinQualified(append(append([]string{}, namespaces...), funcName))
	keys := []string{fq}

	if nameSegs := strings.Split(funcName, "::"); len(nameSegs) > 1 {
		bare := nameSegs[len(nameSegs)-1]
		keys = appendUnique(keys, joinQualified(append(append([]string{}, namespaces...), bare)))
	}
	if len(namespaces) > 0 {
		keys = appendUnique(keys, joinQualified(append(append([]string{}, namespaces[:len(namespaces)-1]...), funcName)))
	}

	for _, key := range keys {
		f.byName[key] = append(f.byName[key], r)
	}
}

func joinQualified(segs []string) string {
	return strings.Join(segs, "::")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
