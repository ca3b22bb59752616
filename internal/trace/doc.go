// Package trace records spans and instant events for the language server
// and the CLI. Every event can name the document version it concerns, so a
// trace of an editing session reads as a history per file:
//
//	fishls lsp --trace=/tmp/fishls.ndjson --trace-level=detail
//
// Tracers travel in the context. Document spans carry the URI and version
// down to the passes they contain:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.StartDocument(ctx, trace.ScopeDocument, "analyze", trace.Doc{URI: uri, Version: v})
//	defer span.End("")
//	_, pass := trace.Start(ctx, trace.ScopePass, "rules") // still attributed to uri
//
// Heartbeats carry the values of registered gauges, such as pending
// diagnostic computations and indexed documents.
//
// Stdout is the protocol channel of the server, so output never defaults
// to it.
package trace
