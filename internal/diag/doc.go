// Package diag defines the diagnostic model shared by the rule engine, the
// diagnostic cache and the CLI.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Code – numeric identifier from the registry in codes.go. The registry
//     also fixes the default severity, the base message and a documentation
//     link for every code.
//   - Severity – Hint, Info, Warning or Error.
//   - Range – zero-based line/byte-column range in the document.
//   - Message – the base message, optionally followed by " | " and a detail.
//   - Node – the offending syntax node, kept for in-process consumers only.
//
// # Emitting diagnostics
//
// Producers report through the Reporter interface. BagReporter collects into
// a Bag with an optional limit; DedupReporter filters repeated findings.
// Package diag performs no IO; rendering for terminals lives in cmd/fishls.
package diag
