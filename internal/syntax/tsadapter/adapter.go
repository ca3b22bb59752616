//go:build cgo

package tsadapter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"

	"fishls/internal/syntax"
)

// Parser converts tree-sitter parse trees into syntax trees. A new
// sitter.Parser is created per call so one Parser is safe for concurrent use.
type Parser struct {
	lang *sitter.Language
}

// New wraps a tree-sitter language, typically a compiled tree-sitter-fish
// grammar.
func New(lang *sitter.Language) *Parser {
	return &Parser{lang: lang}
}

// NewBash returns a parser for the bundled bash grammar, used for scripts
// that fish sources through compatibility shims and in adapter tests.
func NewBash() *Parser {
	return New(bash.GetLanguage())
}

// IsAvailable reports whether tree-sitter support was compiled in.
func IsAvailable() bool { return true }

func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	if p == nil || p.lang == nil {
		return nil, ErrUnavailable
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned nil root node")
	}
	return syntax.NewTree(convert(root), src), nil
}

func convert(n *sitter.Node) *syntax.Node {
	typ := n.Type()
	if n.IsError() {
		typ = syntax.ErrorType
	}
	out := syntax.NewNode(typ, n.IsNamed(), int(n.StartByte()), int(n.EndByte()))
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		out.AppendChild(convert(child), n.FieldNameForChild(i))
	}
	return out
}
