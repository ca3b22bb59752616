package symbols

import (
	"strings"

	"fishls/internal/scope"
	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Extract builds the symbol forest of doc in one pass over root. Children
// are collected bottom-up; parent back-references are assigned once every
// symbol exists.
func Extract(doc *source.Document, root *syntax.Node) *Forest {
	x := &extractor{
		forest:   NewForest(doc.URI, 0),
		uri:      doc.URI,
		autoload: doc.Autoload(),
	}
	var roots []SymbolID
	if root != nil && x.autoload.Kind == source.AutoloadNone {
		roots = append(roots, x.scriptArgv(root))
	}
	roots = append(roots, x.collect(root)...)
	x.forest.roots = roots
	x.link(NoSymbolID, roots)
	return x.forest
}

type extractor struct {
	forest   *Forest
	uri      string
	autoload source.Autoload
}

func (x *extractor) link(parent SymbolID, ids []SymbolID) {
	for _, id := range ids {
		s := x.forest.Get(id)
		s.Parent = parent
		x.link(id, s.Children)
	}
}

func (x *extractor) add(s Symbol) SymbolID {
	s.URI = x.uri
	return x.forest.New(&s)
}

func (x *extractor) collect(n *syntax.Node) []SymbolID {
	if n == nil {
		return nil
	}
	switch {
	case syntax.IsFunctionDefinition(n):
		if id := x.function(n); id.IsValid() {
			return []SymbolID{id}
		}
	case n.Type == "for_statement":
		return x.forLoop(n)
	case syntax.IsCommand(n):
		return append(x.command(n), x.collectChildren(n)...)
	}
	return x.collectChildren(n)
}

func (x *extractor) collectChildren(n *syntax.Node) []SymbolID {
	var out []SymbolID
	for _, c := range n.Children {
		out = append(out, x.collect(c)...)
	}
	return out
}

func (x *extractor) scriptArgv(root *syntax.Node) SymbolID {
	return x.add(Symbol{
		Name:            "argv",
		Kind:            KindVariable,
		Def:             DefArgv,
		DefinitionRange: source.NodeRange(root),
		SelectionRange:  source.Range{Start: source.FromPoint(root.Start), End: source.FromPoint(root.Start)},
		Scope:           scope.Scope{Tag: scope.Local, Node: root},
		Node:            root,
		NameNode:        root,
	})
}

func (x *extractor) function(fn *syntax.Node) SymbolID {
	name := fn.ChildByField("name")
	if name == nil || name.Text() == "" {
		return NoSymbolID
	}
	fnScope := scope.Scope{Tag: scope.Function, Node: fn}
	children := []SymbolID{x.add(Symbol{
		Name:            "argv",
		Kind:            KindVariable,
		Def:             DefArgv,
		DefinitionRange: source.NodeRange(fn),
		SelectionRange:  source.NodeRange(name),
		Scope:           fnScope,
		Node:            fn,
		NameNode:        name,
	})}

	variable := func(def DefKind, nameText string, node *syntax.Node) {
		if nameText == "" {
			return
		}
		children = append(children, x.add(Symbol{
			Name:            nameText,
			Kind:            KindVariable,
			Def:             def,
			DefinitionRange: source.NodeRange(node),
			SelectionRange:  source.NodeRange(node),
			Scope:           fnScope,
			Node:            fn,
			NameNode:        node,
			Detail:          firstLine(fn.Text()),
		}))
	}

	mode := fnOptOther
	skip := false
	for _, opt := range fn.ChildrenByField("option") {
		if skip {
			skip = false
			continue
		}
		text := opt.Text()
		if syntax.IsOption(opt) {
			kind, inline := classifyFunctionOption(text)
			mode = fnOptOther
			switch kind {
			case fnOptArguments:
				mode = fnOptArguments
				variable(DefFunctionArgument, inline, opt)
			case fnOptInherit, fnOptOnVariable:
				if inline != "" {
					variable(defForOption(kind), inline, opt)
				} else {
					mode = kind
				}
			case fnOptSkipValue:
				skip = true
			}
			continue
		}
		switch mode {
		case fnOptArguments:
			variable(DefFunctionArgument, text, opt)
		case fnOptInherit, fnOptOnVariable:
			variable(defForOption(mode), text, opt)
			mode = fnOptOther
		}
	}

	for _, c := range fn.Children {
		if c.Field == "" {
			children = append(children, x.collect(c)...)
		}
	}

	return x.add(Symbol{
		Name:            name.Text(),
		Kind:            KindFunction,
		Def:             DefFunction,
		DefinitionRange: source.NodeRange(fn),
		SelectionRange:  source.NodeRange(name),
		Scope:           scope.ForFunctionName(name, x.autoload),
		Node:            fn,
		NameNode:        name,
		Detail:          firstLine(fn.Text()),
		Children:        children,
	})
}

func defForOption(kind functionOption) DefKind {
	if kind == fnOptInherit {
		return DefInheritVariable
	}
	return DefEventVariable
}

func (x *extractor) forLoop(n *syntax.Node) []SymbolID {
	var values, body []SymbolID
	for _, c := range n.Children {
		switch c.Field {
		case "value":
			values = append(values, x.collect(c)...)
		case "":
			body = append(body, x.collect(c)...)
		}
	}
	variable := n.ChildByField("variable")
	if variable == nil || variable.Text() == "" {
		return append(values, body...)
	}
	id := x.add(Symbol{
		Name:            variable.Text(),
		Kind:            KindVariable,
		Def:             DefFor,
		DefinitionRange: source.NodeRange(n),
		SelectionRange:  source.NodeRange(variable),
		Scope:           scope.ForLoopVariable(variable),
		Node:            n,
		NameNode:        variable,
		Detail:          firstLine(n.Text()),
		Children:        body,
	})
	return append(values, id)
}

func (x *extractor) command(cmd *syntax.Node) []SymbolID {
	args := syntax.Arguments(cmd)
	switch syntax.CommandName(cmd) {
	case "set":
		if syntax.FindOption(args, "qeSn", "--query", "--erase", "--show", "--names") != nil {
			return nil
		}
		ops := syntax.OptionSpec{}.Operands(args)
		if len(ops) == 0 {
			return nil
		}
		return x.variables(cmd, DefSet, ops[:1])
	case "read":
		return x.variables(cmd, DefRead, syntax.ReadOptions.Operands(args))
	case "argparse":
		return x.argparse(cmd, args)
	case "alias":
		return x.alias(cmd, args)
	}
	return nil
}

func (x *extractor) variables(cmd *syntax.Node, def DefKind, names []*syntax.Node) []SymbolID {
	var out []SymbolID
	for _, n := range names {
		if isExpansion(n) {
			continue
		}
		name := variableName(n.Text())
		if name == "" {
			continue
		}
		sel := source.NodeRange(n)
		sel.End = sel.Start
		sel.End.Character += len(name)
		out = append(out, x.add(Symbol{
			Name:            name,
			Kind:            KindVariable,
			Def:             def,
			DefinitionRange: source.NodeRange(cmd),
			SelectionRange:  sel,
			Scope:           scope.ForVariable(n),
			Node:            cmd,
			NameNode:        n,
			Detail:          firstLine(cmd.Text()),
		}))
	}
	return out
}

func (x *extractor) argparse(cmd *syntax.Node, args []*syntax.Node) []SymbolID {
	var specs []*syntax.Node
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		if syntax.IsDoubleDash(arg) {
			break
		}
		if syntax.IsOption(arg) {
			skip = syntax.ArgparseOptions.TakesValue(arg.Text())
			continue
		}
		if isExpansion(arg) {
			continue
		}
		specs = append(specs, arg)
	}
	sc := scope.ForArgparse(cmd)
	var out []SymbolID
	for _, spec := range specs {
		for _, name := range argparseFlagNames(spec.Text()) {
			out = append(out, x.add(Symbol{
				Name:            name,
				Kind:            KindVariable,
				Def:             DefArgparse,
				DefinitionRange: source.NodeRange(cmd),
				SelectionRange:  source.NodeRange(spec),
				Scope:           sc,
				Node:            cmd,
				NameNode:        spec,
				Detail:          firstLine(cmd.Text()),
			}))
		}
	}
	return out
}

func (x *extractor) alias(cmd *syntax.Node, args []*syntax.Node) []SymbolID {
	ops := syntax.OptionSpec{}.Operands(args)
	if len(ops) == 0 {
		return nil
	}
	nameNode := ops[0]
	text := syntax.Unquote(nameNode.Text())
	name, _, _ := strings.Cut(text, "=")
	if name == "" || isExpansion(nameNode) {
		return nil
	}
	sel := source.NodeRange(nameNode)
	if name != nameNode.Text() {
		offset := strings.Index(nameNode.Text(), name)
		sel.Start.Character += offset
		sel.End = sel.Start
		sel.End.Character += len(name)
	}
	return []SymbolID{x.add(Symbol{
		Name:            name,
		Kind:            KindFunction,
		Def:             DefAlias,
		DefinitionRange: source.NodeRange(cmd),
		SelectionRange:  sel,
		Scope:           scope.ForAlias(cmd, x.autoload),
		Node:            cmd,
		NameNode:        nameNode,
		Detail:          firstLine(cmd.Text()),
	})}
}
