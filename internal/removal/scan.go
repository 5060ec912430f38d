package removal

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/covpare/pare/internal/boundary"
)

// copyWithRemovals streams src to dst line by line, replacing each range's
// body with the rewriter's placeholder:
//
//   - lines before a range's start, and after the last range's end, pass
//     through verbatim;
//   - on start_line, the text up to start_col is kept and followed by "{";
//   - lines strictly between start_line and end_line are dropped;
//   - on end_line, the placeholder (with substitutions) is emitted followed
//     by "}" and the text from end_col+1 onward;
//   - a range with start_line == end_line collapses the above into one line.
func (w *Rewriter) copyWithRemovals(src io.Reader, dst io.Writer, ranges []boundary.Range, fileName string) (FileStats, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)

	var stats FileStats
	idx := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if idx >= len(ranges) {
			fmt.Fprintln(dst, line)
			continue
		}

		r := ranges[idx]
		switch {
		case lineNo < r.StartLine || lineNo > r.EndLine:
			fmt.Fprintln(dst, line)

		case r.StartLine == r.EndLine && lineNo == r.StartLine:
			prefix := runePrefix(line, r.StartCol)
			suffix := runeSuffix(line, r.EndCol+1)
			fmt.Fprintln(dst, prefix+"{"+w.render(r.Name, fileName)+"}"+suffix)
			stats.FunctionsRemoved++
			stats.LinesRemoved++
			idx++

		case lineNo == r.StartLine:
			prefix := runePrefix(line, r.StartCol)
			fmt.Fprintln(dst, prefix+"{")

		case lineNo == r.EndLine:
			suffix := runeSuffix(line, r.EndCol+1)
			fmt.Fprintln(dst, w.render(r.Name, fileName)+"}"+suffix)
			stats.FunctionsRemoved++
			stats.LinesRemoved += r.EndLine - r.StartLine
			idx++

		default:
			stats.LinesRemoved++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan source: %w", err)
	}
	return stats, nil
}

func (w *Rewriter) render(funcName, fileName string) string {
	r := strings.NewReplacer("{func_name}", funcName, "{file_name}", fileName)
	return r.Replace(w.Placeholder)
}

func runePrefix(line string, col int) string {
	runes := []rune(line)
	if col < 0 {
		col = 0
	}
	if col > len(runes) {
		col = len(runes)
	}
	return string(runes[:col])
}

func runeSuffix(line string, from int) string {
	runes := []rune(line)
	if from < 0 {
		from = 0
	}
	if from > len(runes) {
		return ""
	}
	return string(runes[from:])
}
