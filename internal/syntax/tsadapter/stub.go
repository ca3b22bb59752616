//go:build !cgo

package tsadapter

import (
	"context"

	"fishls/internal/syntax"
)

// Parser is unavailable without cgo; Parse always fails with ErrUnavailable.
type Parser struct{}

func NewBash() *Parser { return nil }

func IsAvailable() bool { return false }

func (p *Parser) Parse(ctx context.Context, src []byte) (*syntax.Tree, error) {
	return nil, ErrUnavailable
}
