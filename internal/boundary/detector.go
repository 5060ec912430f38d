package boundary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// nameCaptureRe matches the last identifier (optionally namespace/class
// qualified, allowing '~' for destructors) immediately before an opening
// paren.
var nameCaptureRe = regexp.MustCompile(`(([A-Za-z_~][A-Za-z0-9_]*::)?[A-Za-z_~][A-Za-z0-9_]*)\(`)

var namespaceOpenRe = regexp.MustCompile(`^namespace\s+([A-Za-z_][A-Za-z0-9_]*)\s*\{`)

type nsEntry struct {
	depth int
	name  string
}

// detector holds the line scanner's state machine, walked one physical line
// at a time.
type detector struct {
	file *File

	depth      int // brace balance over the whole file
	funcDepth  int // brace balance inside the currently-open body, 0 outside one
	namespaces []nsEntry

	inBlockComment bool
	inInitList     bool
	parenBalance   int
	sawParens      bool
	bodyChance     bool
	enteredBody    bool

	isInline  bool
	wasInline bool
	// lineOffset counts lines consumed inside an inline function's body, so
	// the detector's logical line bookkeeping can be reconciled against
	// physical file lines if a caller ever needs to. This scanner already
	// numbers every physical line directly, so the offset is tracked but
	// never needs to be added back in.
	lineOffset int

	funcName  string
	startLine int
	startCol  int
}

// DetectFile opens path and runs Detect over its contents.
func DetectFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s for boundary detection: %w", path, err)
	}
	defer f.Close()
	return Detect(f)
}

// Detect scans r line by line and reconstructs every non-inline function
// body in it, in source order.
func Detect(r io.Reader) (*File, error) {
	d := &detector{file: newFile()}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 1<<16)
	scanner.Buffer(buf, 1<<24)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := d.processLine(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	return d.file, nil
}

func (d *detector) processLine(lineNo int, raw string) error {
	code, stillInComment := stripComments(raw, d.inBlockComment)
	d.inBlockComment = stillInComment

	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		if d.enteredBody && d.wasInline {
			d.lineOffset++
		}
		return nil
	}

	if m := namespaceOpenRe.FindStringSubmatch(trimmed); m != nil && !d.enteredBody {
		d.namespaces = append(d.namespaces, nsEntry{depth: d.depth, name: m[1]})
	}

	if !d.enteredBody && strings.HasPrefix(trimmed, "inline ") {
		d.isInline = true
	}

	if d.bodyChance && !d.inInitList && strings.HasPrefix(trimmed, ": ") {
		d.inInitList = true
	}

	if !d.enteredBody && !d.inInitList {
		if matches := nameCaptureRe.FindAllStringSubmatch(code, -1); len(matches) > 0 {
			d.funcName = matches[len(matches)-1][1]
		}
	}

	d.scanTokens(lineNo, code)

	// Prune namespaces that have fallen out of scope now that this line's
	// braces have been accounted for.
	kept := d.namespaces[:0]
	for _, ns := range d.namespaces {
		if ns.depth <= d.depth {
			kept = append(kept, ns)
		}
	}
	d.namespaces = kept

	if d.enteredBody && d.wasInline {
		d.lineOffset++
	}

	return nil
}

// scanTokens walks code rune by rune, maintaining depth/funcDepth, detecting
// function body entry/exit, and recording a Range on exit.
func (d *detector) scanTokens(lineNo int, code string) {
	runes := []rune(code)
	for col, ch := range runes {
		switch {
		case d.inInitList:
			if ch == '{' {
				d.enterBody(lineNo, col)
			}

		case !d.enteredBody:
			switch ch {
			case '(':
				d.parenBalance++
				d.sawParens = true
			case ')':
				d.parenBalance--
			case '{':
				if d.parenBalance == 0 && (d.sawParens || d.bodyChance) {
					d.enterBody(lineNo, col)
				} else {
					d.depth++
				}
			case '}':
				d.depth--
			}

		default: // inside a body
			switch ch {
			case '{':
				d.depth++
				d.funcDepth++
			case '}':
				d.depth--
				d.funcDepth--
				if d.funcDepth == 0 {
					d.exitBody(lineNo, col)
				}
			}
		}
	}

	if !d.enteredBody && !d.inInitList {
		d.bodyChance = d.sawParens && d.parenBalance == 0
	}
}

func (d *detector) enterBody(lineNo, col int) {
	d.enteredBody = true
	d.wasInline = d.isInline
	d.funcDepth = 1
	d.depth++
	d.startLine = lineNo
	d.startCol = col
	d.inInitList = false
	d.bodyChance = false
	d.sawParens = false
	d.parenBalance = 0
}

func (d *detector) exitBody(lineNo, col int) {
	if !d.wasInline {
		names := make([]string, len(d.namespaces))
		for i, ns := range d.namespaces {
			names[i] = ns.name
		}
		r := Range{
			Name:      d.funcName,
			StartLine: d.startLine,
			StartCol:  d.startCol,
			EndLine:   lineNo,
			EndCol:    col,
		}
		d.file.record(r, names, d.funcName)
	}

	d.enteredBody = false
	d.funcName = ""
	d.isInline = false
	d.wasInline = false
	d.lineOffset = 0
}

// stripComments removes "//" line comments and "/* ... */" block comments
// from a line. inBlock is the block-comment state carried in from the
// previous line; it returns the code with comments blanked out (preserving
// column positions) and whether a block comment is still open at EOL.
// Lines inside a block comment contribute neither braces nor parens to the
// scanner.
func stripComments(line string, inBlock bool) (string, bool) {
	runes := []rune(line)
	out := make([]rune, len(runes))
	copy(out, runes)

	i := 0
	for i < len(out) {
		if inBlock {
			if i+1 < len(out) && out[i] == '*' && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				inBlock = false
				i += 2
				continue
			}
			out[i] = ' '
			i++
			continue
		}
		if i+1 < len(out) && out[i] == '/' && out[i+1] == '/' {
			for j := i; j < len(out); j++ {
				out[j] = ' '
			}
			break
		}
		if i+1 < len(out) && out[i] == '/' && out[i+1] == '*' {
			inBlock = true
			out[i], out[i+1] = ' ', ' '
			i += 2
			continue
		}
		i++
	}
	return string(out), inBlock
}
