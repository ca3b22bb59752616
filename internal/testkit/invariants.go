package testkit

import (
	"fmt"

	"fishls/internal/symbols"
	"fishls/internal/syntax"
)

// CheckForest runs the structural invariants of an extracted symbol forest:
// 1) every selection range lies within its definition range
// 2) every child's definition range lies within its parent's
// 3) parent back-references match the child lists
// 4) every symbol's scope node encloses its defining node
func CheckForest(f *symbols.Forest) error {
	if f == nil {
		return fmt.Errorf("nil forest")
	}
	for _, s := range f.Roots() {
		if s.Parent.IsValid() {
			return fmt.Errorf("root %s has parent %d", s.Name, s.Parent)
		}
	}
	for _, s := range f.Flat() {
		if !s.DefinitionRange.ContainsRange(s.SelectionRange) {
			return fmt.Errorf("%s: selection %v outside definition %v", s.Name, s.SelectionRange, s.DefinitionRange)
		}
		for _, c := range f.Children(s) {
			if c.Parent != s.ID {
				return fmt.Errorf("%s: child %s points at parent %d", s.Name, c.Name, c.Parent)
			}
			if !s.DefinitionRange.ContainsRange(c.DefinitionRange) {
				return fmt.Errorf("%s: child %s definition %v outside %v", s.Name, c.Name, c.DefinitionRange, s.DefinitionRange)
			}
		}
		if s.Scope.Node == nil {
			return fmt.Errorf("%s: missing scope node", s.Name)
		}
		if s.NameNode != nil && !s.Scope.Node.Encloses(s.NameNode) && !syntax.IsProgram(s.NameNode) {
			return fmt.Errorf("%s: scope %s does not enclose the definition", s.Name, s.Scope)
		}
	}
	return nil
}
