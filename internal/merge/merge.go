package merge

// Into folds src into dst under policy: for each overlapping key, usage
// becomes a+b (SUM) or max(a,b) (MAX); new keys are inserted as-is. dst is
// mutated in place and also returned for chaining.
func Into(dst *CoverageMap, src *CoverageMap, policy Policy) *CoverageMap {
	if dst.entries == nil {
		dst.entries = make(map[Key]*Entry)
	}
	for key, entry := range src.entries {
		existing, ok := dst.entries[key]
		if !ok {
			cp := *entry
			dst.entries[key] = &cp
			continue
		}
		switch policy {
		case SUM:
			existing.Usage += entry.Usage
		case MAX:
			if entry.Usage > existing.Usage {
				existing.Usage = entry.Usage
			}
		}
		if existing.Name == "" {
			existing.Name = entry.Name
		}
		if existing.EndLine == 0 && existing.EndCol == 0 {
			existing.EndLine = entry.EndLine
			existing.EndCol = entry.EndCol
		}
	}
	return dst
}
