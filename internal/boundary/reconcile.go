package boundary

import "strings"

func splitQualified(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, "::")
}

// candidateNames returns name plus the same two tolerance transforms used
// when indexing detected functions (strip the innermost qualifier segment,
// strip the outermost-of-the-inner namespace segments), so a reported name
// that disagrees with the detector's own qualification still has a chance
// to match.
func candidateNames(name string) []string {
	segs := splitQualified(name)
	out := []string{name}
	if len(segs) >= 2 {
		stripped := append(append([]string{}, segs[:len(segs)-2]...), segs[len(segs)-1])
		out = appendUnique(out, joinQualified(stripped))
	}
	if len(segs) >= 1 {
		out = appendUnique(out, segs[len(segs)-1])
	}
	return out
}

// Reconcile matches a coverage-reported (name, startLine, endLine) against
// this file's detected ranges: the exact (start,end) line pair is
// authoritative; on miss, the name's tolerance aliases are tried and
// accepted only when exactly one candidate survives.
func (f *File) Reconcile(name string, startLine, endLine int) (Range, bool) {
	if r, ok := f.ByLines(startLine, endLine); ok {
		return r, true
	}

	for _, candidate := range candidateNames(name) {
		matches := f.ByName(candidate)
		if len(matches) == 1 {
			return matches[0], true
		}
	}

	return Range{}, false
}
