package symbols

import (
	"strings"

	"fishls/internal/syntax"
)

// functionOption tells how a function header option affects extraction.
type functionOption uint8

const (
	fnOptOther functionOption = iota
	fnOptArguments
	fnOptInherit
	fnOptOnVariable
	fnOptSkipValue
)

func classifyFunctionOption(opt string) (kind functionOption, inline string) {
	if strings.HasPrefix(opt, "--") {
		name, value, hasValue := strings.Cut(opt, "=")
		switch name {
		case "--argument-names":
			return fnOptArguments, value
		case "--inherit-variable":
			return fnOptInherit, value
		case "--on-variable":
			return fnOptOnVariable, value
		case "--description", "--wraps", "--on-event", "--on-signal",
			"--on-process-exit", "--on-job-exit":
			if hasValue {
				return fnOptOther, ""
			}
			return fnOptSkipValue, ""
		}
		return fnOptOther, ""
	}
	if len(opt) < 2 {
		return fnOptOther, ""
	}
	rest := opt[2:]
	switch opt[1] {
	case 'a':
		return fnOptArguments, rest
	case 'V':
		return fnOptInherit, rest
	case 'v':
		return fnOptOnVariable, rest
	case 'd', 'w', 'e', 's', 'p', 'j':
		if rest != "" {
			return fnOptOther, ""
		}
		return fnOptSkipValue, ""
	}
	return fnOptOther, ""
}

// argparseFlagNames expands an argparse option spec such as "h/help" or
// "n/name=" into the variables it defines.
func argparseFlagNames(spec string) []string {
	spec = syntax.Unquote(spec)
	if i := strings.IndexAny(spec, "=!&"); i >= 0 {
		spec = spec[:i]
	}
	var out []string
	for _, part := range strings.Split(spec, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, "_flag_"+strings.ReplaceAll(part, "-", "_"))
	}
	return out
}

// variableName strips a trailing index from a set target, e.g. foo[1].
func variableName(text string) string {
	if i := strings.IndexByte(text, '['); i >= 0 {
		return text[:i]
	}
	return text
}

func isExpansion(n *syntax.Node) bool {
	if n == nil {
		return false
	}
	return n.Type == "variable_expansion" || strings.HasPrefix(n.Text(), "$")
}
