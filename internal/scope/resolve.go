package scope

import (
	"strings"

	"fishls/internal/source"
	"fishls/internal/syntax"
)

// Resolve returns the scope of the definition whose name token is n. It
// never fails; unrecognized sites default to local at the nearest scope
// construct.
func Resolve(n *syntax.Node, al source.Autoload) Scope {
	parent := n.Parent()
	switch {
	case parent == nil:
		return Scope{Tag: Local, Node: n}
	case syntax.IsFunctionDefinition(parent) && n.Field == "name":
		return ForFunctionName(n, al)
	case syntax.IsFunctionDefinition(parent):
		return Scope{Tag: Function, Node: parent}
	case parent.Type == "for_statement":
		return ForLoopVariable(n)
	case syntax.IsCommandNamed(parent, "set", "read"):
		return ForVariable(n)
	case syntax.IsCommandNamed(parent, "alias"):
		return ForAlias(parent, al)
	case syntax.IsCommandNamed(parent, "argparse"):
		return ForArgparse(parent)
	}
	return Scope{Tag: Local, Node: Nearest(n)}
}

// ForFunctionName resolves the scope of a function definition's name.
// Nested functions are scoped to their enclosing function. Top-level
// functions are global when the file autoloads them (functions/ file named
// after the function) or when the file is config.fish or in conf.d/.
func ForFunctionName(name *syntax.Node, al source.Autoload) Scope {
	fn := name.Parent()
	outer := fn.Ancestor(func(p *syntax.Node) bool {
		return syntax.IsFunctionDefinition(p) || syntax.IsProgram(p)
	})
	if outer == nil {
		outer = syntax.Root(fn)
	}
	if syntax.IsFunctionDefinition(outer) {
		return Scope{Tag: Function, Node: outer}
	}
	switch al.Kind {
	case source.AutoloadFunctions:
		if al.Name == name.Text() {
			return Scope{Tag: Global, Node: outer}
		}
	case source.AutoloadConfD, source.AutoloadConfig:
		return Scope{Tag: Global, Node: outer}
	}
	return Scope{Tag: Local, Node: outer}
}

// ForAlias resolves an alias definition like a function without the
// filename match.
func ForAlias(cmd *syntax.Node, al source.Autoload) Scope {
	if fn := syntax.EnclosingFunction(cmd); fn != nil {
		return Scope{Tag: Function, Node: fn}
	}
	root := syntax.Root(cmd)
	if al.Kind == source.AutoloadConfD || al.Kind == source.AutoloadConfig {
		return Scope{Tag: Global, Node: root}
	}
	return Scope{Tag: Local, Node: root}
}

// ForLoopVariable scopes a for-loop variable to the enclosing function, or
// globally at the top level.
func ForLoopVariable(n *syntax.Node) Scope {
	if fn := syntax.EnclosingFunction(n); fn != nil {
		return Scope{Tag: Function, Node: fn}
	}
	return Scope{Tag: Global, Node: syntax.Root(n)}
}

// ForArgparse scopes the _flag_ variables argparse defines.
func ForArgparse(cmd *syntax.Node) Scope {
	if fn := syntax.EnclosingFunction(cmd); fn != nil {
		return Scope{Tag: Function, Node: fn}
	}
	return Scope{Tag: Local, Node: syntax.Root(cmd)}
}

// ForVariable resolves a set/read definition from the scope flags present
// anywhere on its statement.
func ForVariable(n *syntax.Node) Scope {
	cmd := n.Parent()
	switch Flag(cmd) {
	case Global:
		return Scope{Tag: Global, Node: syntax.Root(n)}
	case Universal:
		return Scope{Tag: Universal, Node: syntax.Root(n)}
	case Local:
		return Scope{Tag: Local, Node: Nearest(n)}
	case Function:
		if fn := syntax.EnclosingFunction(n); fn != nil {
			return Scope{Tag: Function, Node: fn}
		}
		return Scope{Tag: Local, Node: syntax.Root(n)}
	}
	if fn := syntax.EnclosingFunction(n); fn != nil {
		return Scope{Tag: Function, Node: fn}
	}
	return Scope{Tag: Inherit, Node: Nearest(n)}
}

// Flag returns the scope flag given to a set/read command, or Inherit when
// none is present. Short flags may be combined, e.g. -gx.
func Flag(cmd *syntax.Node) Tag {
	found := Inherit
	for _, arg := range syntax.Arguments(cmd) {
		text := arg.Text()
		if text == "--" {
			break
		}
		if !syntax.IsOption(arg) {
			continue
		}
		if tag := optionTag(text); tag > found {
			found = tag
		}
	}
	return found
}

func optionTag(opt string) Tag {
	if strings.HasPrefix(opt, "--") {
		switch opt {
		case "--global":
			return Global
		case "--universal":
			return Universal
		case "--function":
			return Function
		case "--local":
			return Local
		}
		return Inherit
	}
	letters := opt[1:]
	switch {
	case strings.ContainsRune(letters, 'g'):
		return Global
	case strings.ContainsRune(letters, 'U'):
		return Universal
	case strings.ContainsRune(letters, 'f'):
		return Function
	case strings.ContainsRune(letters, 'l'):
		return Local
	}
	return Inherit
}
