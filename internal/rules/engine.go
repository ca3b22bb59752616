package rules

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"

	"fishls/internal/diag"
	"fishls/internal/directive"
	"fishls/internal/metrics"
	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
	"fishls/internal/trace"
)

// DefaultChunkSize is the number of nodes visited between cancellation
// checks.
const DefaultChunkSize = 512

// Input is everything one run needs. A nil Checker enables every registered
// code subject to the document's own directives; a nil Forest is extracted
// from the tree.
type Input struct {
	Doc     *source.Document
	Tree    *syntax.Tree
	Forest  *symbols.Forest
	Index   *symbols.Index
	Checker *directive.Checker
	Options Options
}

// Engine evaluates a rule table over a tree. An Engine is safe for
// concurrent use once built.
type Engine struct {
	ChunkSize  int
	Yield      func()
	FileExists func(path string) bool
	Logf       func(format string, args ...any)

	rules    []Rule
	byType   map[string][]int
	document []int
}

// NewEngine builds an engine over rules, or over DefaultRules when none are
// given. Table order is evaluation order.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	e := &Engine{
		ChunkSize:  DefaultChunkSize,
		Yield:      runtime.Gosched,
		FileExists: fileExists,
		rules:      rules,
		byType:     make(map[string][]int),
	}
	for i, r := range rules {
		if r.Kind == KindDocument {
			e.document = append(e.document, i)
			continue
		}
		for _, typ := range r.Types {
			e.byType[typ] = append(e.byType[typ], i)
		}
	}
	return e
}

// Rules returns the rule table.
func (e *Engine) Rules() []Rule { return e.rules }

func (e *Engine) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, "rules: "+format+"\n", args...)
}

// Run walks the tree once and returns the sorted diagnostics. Cancellation
// returns ctx.Err() and no diagnostics.
func (e *Engine) Run(ctx context.Context, in Input) ([]diag.Diagnostic, error) {
	if in.Tree == nil || in.Tree.Root == nil {
		return nil, nil
	}
	ctx, span := trace.Start(ctx, trace.ScopePass, "rules")
	defer span.End("")

	checker := in.Checker
	if checker == nil {
		all := diag.AllCodes()
		checker = directive.NewChecker(directive.Compute(in.Tree.Root, all), all, in.Tree.LineCount()-1)
	}
	forest := in.Forest
	if forest == nil {
		forest = symbols.Extract(in.Doc, in.Tree.Root)
	}
	rc := &Context{
		Doc:        in.Doc,
		Root:       in.Tree.Root,
		Autoload:   in.Doc.Autoload(),
		Forest:     forest,
		Index:      in.Index,
		Directives: checker.Result(),
		Options:    in.Options,
		FileExists: e.FileExists,
		terminates: make(map[*syntax.Node]bool),
	}
	if rc.FileExists == nil {
		rc.FileExists = fileExists
	}

	var out []diag.Diagnostic
	emit := func(r *Rule, findings []Finding) {
		for _, f := range findings {
			var d diag.Diagnostic
			if f.Range != nil {
				d = diag.NewAt(r.Code, *f.Range, f.Detail)
				d.Node = f.Node
			} else {
				d = diag.New(r.Code, f.Node, f.Detail)
			}
			if !checker.Enabled(r.Code, d.Range.Start.Line) {
				continue
			}
			out = append(out, d)
		}
	}

	for _, i := range e.document {
		r := &e.rules[i]
		if checker.GloballyEnabled(r.Code) {
			emit(r, e.check(ctx, rc, r, rc.Root))
		}
	}

	chunk := e.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	stack := []*syntax.Node{rc.Root}
	visited := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range e.byType[n.Type] {
			r := &e.rules[i]
			if checker.GloballyEnabled(r.Code) {
				emit(r, e.check(ctx, rc, r, n))
			}
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
		visited++
		if visited%chunk == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if e.Yield != nil {
				e.Yield()
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	if limit := in.Options.MaxDiagnostics; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, d := range out {
		metrics.Diagnostics.WithLabelValues(strconv.Itoa(int(d.Code))).Inc()
	}
	span.Set("nodes", strconv.Itoa(visited)).Set("diagnostics", strconv.Itoa(len(out)))
	return out, nil
}

// check evaluates one rule on one node. A panicking check loses its findings
// for that node only.
func (e *Engine) check(ctx context.Context, rc *Context, r *Rule, n *syntax.Node) (findings []Finding) {
	defer func() {
		if p := recover(); p != nil {
			metrics.RulePanics.WithLabelValues(r.Code.ID()).Inc()
			e.logf("%s at %s:%d:%d panicked: %v", r.Code.Name(), rc.Doc.URI, n.Start.Row+1, n.Start.Column+1, p)
			trace.Error(ctx, fmt.Errorf("%s panicked at %d:%d: %v", r.Code.Name(), n.Start.Row+1, n.Start.Column+1, p))
			findings = nil
		}
	}()
	return r.Check(rc, n)
}
