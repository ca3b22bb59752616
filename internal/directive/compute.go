package directive

import (
	"sort"
	"time"

	"fishls/internal/diag"
	"fishls/internal/syntax"
)

// EOF marks a disabled range that runs to the end of the document.
const EOF = -1

// DisabledRange is an inclusive line range where Code is suppressed.
type DisabledRange struct {
	StartLine int
	EndLine   int
	Code      diag.Code
}

// Contains reports whether line falls inside the range.
func (r DisabledRange) Contains(line int) bool {
	return line >= r.StartLine && (r.EndLine == EOF || line <= r.EndLine)
}

// Result is the outcome of processing every directive in a document.
type Result struct {
	Ranges           []DisabledRange
	Directives       []Directive
	InvalidCodeLines map[int][]InvalidCode
	CommentCount     int
	Elapsed          time.Duration
}

// InvalidCodes returns the invalid code texts found on line.
func (r Result) InvalidCodes(line int) []string {
	var out []string
	for _, ic := range r.InvalidCodeLines[line] {
		out = append(out, ic.Text)
	}
	return out
}

// Collect returns the directives found under root ordered by line.
func Collect(root *syntax.Node) []Directive {
	var out []Directive
	root.Walk(func(n *syntax.Node) bool {
		if d, ok := ParseComment(n); ok {
			out = append(out, d)
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// Compute folds the directives of root into disabled ranges. A directive
// without valid codes applies to every code in enabled. Next-line enable
// directives are recognized but have no effect.
func Compute(root *syntax.Node, enabled []diag.Code) Result {
	start := time.Now()
	res := Result{InvalidCodeLines: make(map[int][]InvalidCode)}
	res.Directives = Collect(root)
	res.CommentCount = len(res.Directives)

	open := make(map[diag.Code]int)
	for _, d := range res.Directives {
		if len(d.Invalid) > 0 {
			res.InvalidCodeLines[d.Line] = append(res.InvalidCodeLines[d.Line], d.Invalid...)
		}
		codes := d.Codes
		if len(codes) == 0 {
			codes = enabled
		}
		switch {
		case d.NextLine && d.Action == Disable:
			for _, c := range codes {
				res.Ranges = append(res.Ranges, DisabledRange{StartLine: d.Line + 1, EndLine: d.Line + 1, Code: c})
			}
		case d.NextLine:
		case d.Action == Disable:
			for _, c := range codes {
				if _, ok := open[c]; !ok {
					open[c] = d.Line
				}
			}
		default:
			for _, c := range codes {
				if s, ok := open[c]; ok {
					res.Ranges = append(res.Ranges, DisabledRange{StartLine: s, EndLine: d.Line - 1, Code: c})
					delete(open, c)
				}
			}
		}
	}
	for c, s := range open {
		res.Ranges = append(res.Ranges, DisabledRange{StartLine: s, EndLine: EOF, Code: c})
	}
	sort.SliceStable(res.Ranges, func(i, j int) bool {
		if res.Ranges[i].StartLine != res.Ranges[j].StartLine {
			return res.Ranges[i].StartLine < res.Ranges[j].StartLine
		}
		return res.Ranges[i].Code < res.Ranges[j].Code
	})
	res.Elapsed = time.Since(start)
	return res
}
