// Package analysis ties parsing, symbol extraction, the workspace index and
// the diagnostic passes together behind one Analyzer.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"fishls/internal/config"
	"fishls/internal/diag"
	"fishls/internal/directive"
	"fishls/internal/metrics"
	"fishls/internal/rules"
	"fishls/internal/source"
	"fishls/internal/symbols"
	"fishls/internal/syntax"
	"fishls/internal/trace"
)

// ErrNoDocument reports a request for a document that is neither open nor
// analyzed.
var ErrNoDocument = errors.New("no such document")

// Trigger names why an analysis ran; it labels metrics and trace spans.
type Trigger string

const (
	TriggerOpen   Trigger = "open"
	TriggerChange Trigger = "change"
	TriggerIndex  Trigger = "index"
	TriggerCLI    Trigger = "cli"
)

// Result is the outcome of analyzing one document version.
type Result struct {
	Doc     *source.Document
	Tree    *syntax.Tree
	Forest  *symbols.Forest
	Symbols []*symbols.Symbol
	Flat    []*symbols.Symbol
}

// Options configures an Analyzer. Zero values select the built-in parser,
// a fresh store and index, the default configuration and the default rules.
type Options struct {
	Parser syntax.Parser
	Docs   *source.Store
	Index  *symbols.Index
	Config *config.Store
	Engine *rules.Engine
	Logf   func(format string, args ...any)
}

// Analyzer owns the per-document analysis results. All methods are safe for
// concurrent use; analyses of one URI are expected to be serialized by the
// caller.
type Analyzer struct {
	parser syntax.Parser
	docs   *source.Store
	index  *symbols.Index
	config *config.Store
	engine *rules.Engine
	logf   func(format string, args ...any)

	mu      sync.RWMutex
	results map[string]*Result
}

func New(opts Options) *Analyzer {
	a := &Analyzer{
		parser:  opts.Parser,
		docs:    opts.Docs,
		index:   opts.Index,
		config:  opts.Config,
		engine:  opts.Engine,
		logf:    opts.Logf,
		results: make(map[string]*Result),
	}
	if a.parser == nil {
		a.parser = syntax.NewFishParser()
	}
	if a.docs == nil {
		a.docs = source.NewStore()
	}
	if a.index == nil {
		a.index = symbols.NewIndex()
	}
	if a.config == nil {
		a.config = config.NewStore(nil)
	}
	if a.engine == nil {
		a.engine = rules.NewEngine()
	}
	if a.logf == nil {
		a.logf = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "analysis: "+format+"\n", args...)
		}
	}
	if a.engine.Logf == nil {
		a.engine.Logf = a.logf
	}
	return a
}

func (a *Analyzer) Docs() *source.Store   { return a.docs }
func (a *Analyzer) Index() *symbols.Index { return a.index }
func (a *Analyzer) Config() *config.Store { return a.config }

// Analyze parses doc, rebuilds its symbols and replaces its contribution to
// the workspace index.
func (a *Analyzer) Analyze(ctx context.Context, doc *source.Document) (*Result, error) {
	return a.analyze(ctx, doc, TriggerChange)
}

// AnalyzeAs is Analyze with an explicit trigger label.
func (a *Analyzer) AnalyzeAs(ctx context.Context, doc *source.Document, trigger Trigger) (*Result, error) {
	return a.analyze(ctx, doc, trigger)
}

func (a *Analyzer) analyze(ctx context.Context, doc *source.Document, trigger Trigger) (*Result, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	start := time.Now()
	ctx, span := trace.StartDocument(ctx, trace.ScopeDocument, "analyze", trace.Doc{URI: doc.URI, Version: doc.Version})
	span.Set("trigger", string(trigger))
	defer span.End("")

	tree, err := a.parser.Parse(ctx, doc.Bytes())
	if err != nil {
		err = fmt.Errorf("parse %s: %w", doc.URI, err)
		trace.Error(ctx, err)
		return nil, err
	}
	forest := symbols.Extract(doc, tree.Root)
	res := &Result{
		Doc:     doc,
		Tree:    tree,
		Forest:  forest,
		Symbols: forest.Roots(),
		Flat:    forest.Flat(),
	}
	a.index.Replace(doc.URI, forest)

	a.mu.Lock()
	a.results[doc.URI] = res
	count := len(a.results)
	a.mu.Unlock()

	metrics.Analyses.WithLabelValues(string(trigger)).Inc()
	metrics.ObserveSince(metrics.AnalysisDuration, start)
	metrics.IndexedDocuments.Set(float64(count))
	span.Set("symbols", strconv.Itoa(len(res.Flat)))
	return res, nil
}

// Result returns the last analysis of uri.
func (a *Analyzer) Result(uri string) (*Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	res, ok := a.results[uri]
	return res, ok
}

// Current returns an analysis of the newest known version of uri, analyzing
// the open document when the stored result is stale.
func (a *Analyzer) Current(ctx context.Context, uri string) (*Result, error) {
	doc, open := a.docs.Get(uri)
	res, ok := a.Result(uri)
	switch {
	case open && (!ok || res.Doc != doc):
		return a.analyze(ctx, doc, TriggerChange)
	case ok:
		return res, nil
	}
	return nil, fmt.Errorf("%s: %w", uri, ErrNoDocument)
}

// Forget drops uri's analysis and index contribution.
func (a *Analyzer) Forget(uri string) {
	a.index.Remove(uri)
	a.mu.Lock()
	delete(a.results, uri)
	count := len(a.results)
	a.mu.Unlock()
	metrics.IndexedDocuments.Set(float64(count))
}

// Close handles a closed editor buffer. A file that still exists on disk is
// re-analyzed from its saved content so unsaved symbols leave the index;
// otherwise it is forgotten.
func (a *Analyzer) Close(ctx context.Context, uri string) {
	a.docs.Close(uri)
	path := source.URIToPath(uri)
	if path == "" {
		a.Forget(uri)
		return
	}
	if err := a.Reload(ctx, path); err != nil {
		a.logf("close %s: %v", uri, err)
		a.Forget(uri)
	}
}

// Diagnostics runs the directive processor and the rule engine over the
// current version of uri using the configuration snapshot at call time. A
// document that is neither open nor analyzed yields an empty list.
func (a *Analyzer) Diagnostics(ctx context.Context, uri string) ([]diag.Diagnostic, error) {
	cfg := a.config.Snapshot()
	if !cfg.HandlerEnabled(config.HandlerDiagnostic) {
		return nil, nil
	}
	res, err := a.Current(ctx, uri)
	if errors.Is(err, ErrNoDocument) {
		return []diag.Diagnostic{}, nil
	}
	if err != nil {
		return nil, err
	}
	return a.DiagnosticsFor(ctx, res, cfg)
}

// DiagnosticsFor runs the diagnostic passes on an existing result.
func (a *Analyzer) DiagnosticsFor(ctx context.Context, res *Result, cfg *config.Config) ([]diag.Diagnostic, error) {
	if res == nil || res.Tree == nil {
		return nil, nil
	}
	enabled := cfg.EnabledCodes()
	directives := directive.Compute(res.Tree.Root, enabled)
	checker := directive.NewChecker(directives, enabled, res.Tree.LineCount()-1)
	return a.engine.Run(ctx, rules.Input{
		Doc:     res.Doc,
		Tree:    res.Tree,
		Forest:  res.Forest,
		Index:   a.index,
		Checker: checker,
		Options: rules.Options{
			StrictConditional: cfg.Diagnostics.StrictConditional,
			MaxDiagnostics:    cfg.Diagnostics.MaxDiagnostics,
		},
	})
}

// Directives reports the directive state of uri for introspection.
func (a *Analyzer) Directives(ctx context.Context, uri string) (directive.Summary, error) {
	res, err := a.Current(ctx, uri)
	if err != nil {
		return directive.Summary{}, err
	}
	enabled := a.config.Snapshot().EnabledCodes()
	result := directive.Compute(res.Tree.Root, enabled)
	return directive.NewChecker(result, enabled, res.Tree.LineCount()-1).Summary(), nil
}
