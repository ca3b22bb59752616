// Package tsadapter bridges github.com/smacker/go-tree-sitter grammars to
// the syntax tree model used by the analysis engine.
package tsadapter

import "errors"

// ErrUnavailable is returned when tree-sitter support is not compiled in.
var ErrUnavailable = errors.New("tree-sitter parsing requires cgo")
