package directive

import (
	"sort"
	"time"

	"fishls/internal/diag"
	"fishls/internal/syntax"
)

// PrecomputeCeiling is the largest document, in lines, for which the checker
// builds a per-line lookup table. Larger documents are answered by scanning
// the ranges.
const PrecomputeCeiling = 10000

// Checker answers whether a code is enabled at a line.
type Checker struct {
	result      Result
	enabled     map[diag.Code]bool
	maxLine     int
	precomputed bool
	lines       map[int][]diag.Code
}

// NewChecker builds a checker for result. enabled lists the codes allowed by
// configuration; maxLine is the last line of the document.
func NewChecker(result Result, enabled []diag.Code, maxLine int) *Checker {
	c := &Checker{
		result:  result,
		enabled: make(map[diag.Code]bool, len(enabled)),
		maxLine: maxLine,
	}
	for _, code := range enabled {
		c.enabled[code] = true
	}
	if maxLine <= PrecomputeCeiling {
		c.precompute()
	}
	return c
}

func (c *Checker) precompute() {
	c.precomputed = true
	c.lines = make(map[int][]diag.Code)
	for _, r := range c.result.Ranges {
		end := r.EndLine
		if end == EOF || end > c.maxLine {
			end = c.maxLine
		}
		for line := r.StartLine; line <= end; line++ {
			c.lines[line] = append(c.lines[line], r.Code)
		}
	}
}

// Enabled reports whether code may be reported on line.
func (c *Checker) Enabled(code diag.Code, line int) bool {
	if !c.enabled[code] {
		return false
	}
	if c.precomputed && line >= 0 && line <= c.maxLine {
		for _, disabled := range c.lines[line] {
			if disabled == code {
				return false
			}
		}
		return true
	}
	for _, r := range c.result.Ranges {
		if r.Code == code && r.Contains(line) {
			return false
		}
	}
	return true
}

// EnabledAt reports whether code may be reported at the start of n.
func (c *Checker) EnabledAt(code diag.Code, n *syntax.Node) bool {
	return c.Enabled(code, n.Start.Row)
}

// GloballyEnabled reports whether configuration allows code at all.
func (c *Checker) GloballyEnabled(code diag.Code) bool {
	return c.enabled[code]
}

// DisabledAt returns the codes suppressed on line by directives.
func (c *Checker) DisabledAt(line int) []diag.Code {
	seen := make(map[diag.Code]bool)
	var out []diag.Code
	for _, r := range c.result.Ranges {
		if r.Contains(line) && !seen[r.Code] {
			seen[r.Code] = true
			out = append(out, r.Code)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LineState describes the directive situation of one line.
type LineState struct {
	Line         int
	Disabled     []diag.Code
	Directive    *Directive
	InvalidCodes []string
}

func (c *Checker) LineState(line int) LineState {
	st := LineState{
		Line:         line,
		Disabled:     c.DisabledAt(line),
		InvalidCodes: c.result.InvalidCodes(line),
	}
	for i := range c.result.Directives {
		if c.result.Directives[i].Line == line {
			st.Directive = &c.result.Directives[i]
			break
		}
	}
	return st
}

// Summary aggregates the processed directives.
type Summary struct {
	Directives    int
	Ranges        int
	DisabledCodes []diag.Code
	InvalidCodes  int
	Precomputed   bool
	Elapsed       time.Duration
}

func (c *Checker) Summary() Summary {
	seen := make(map[diag.Code]bool)
	var codes []diag.Code
	for _, r := range c.result.Ranges {
		if !seen[r.Code] {
			seen[r.Code] = true
			codes = append(codes, r.Code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	invalid := 0
	for _, list := range c.result.InvalidCodeLines {
		invalid += len(list)
	}
	return Summary{
		Directives:    c.result.CommentCount,
		Ranges:        len(c.result.Ranges),
		DisabledCodes: codes,
		InvalidCodes:  invalid,
		Precomputed:   c.precomputed,
		Elapsed:       c.result.Elapsed,
	}
}

// Result returns the processed directives.
func (c *Checker) Result() Result { return c.result }
