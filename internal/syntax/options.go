package syntax

import "strings"

// OptionSpec describes how a command treats its options.
type OptionSpec struct {
	// ValueShort lists the short letters that consume a value. Inside a
	// cluster the first such letter takes the rest of the token, or the
	// next argument when it ends the token.
	ValueShort string
	// ValueLong lists the long names that consume the next argument unless
	// written --name=value.
	ValueLong []string
}

var (
	ReadOptions = OptionSpec{
		ValueShort: "cdnpPR",
		ValueLong:  []string{"--command", "--delimiter", "--nchars", "--prompt", "--prompt-str", "--right-prompt"},
	}
	ArgparseOptions = OptionSpec{
		ValueShort: "nxNX",
		ValueLong:  []string{"--name", "--exclusive", "--min-args", "--max-args"},
	}
)

// TakesValue reports whether opt consumes the argument that follows it.
func (o OptionSpec) TakesValue(opt string) bool {
	if strings.HasPrefix(opt, "--") {
		if strings.Contains(opt, "=") {
			return false
		}
		for _, l := range o.ValueLong {
			if opt == l {
				return true
			}
		}
		return false
	}
	for j := 1; j < len(opt); j++ {
		if strings.IndexByte(o.ValueShort, opt[j]) >= 0 {
			return j == len(opt)-1
		}
	}
	return false
}

// Operands returns the non-option arguments of args, skipping values that
// belong to options. Everything after "--" is an operand.
func (o OptionSpec) Operands(args []*Node) []*Node {
	var out []*Node
	skip := false
	for i, arg := range args {
		if skip {
			skip = false
			continue
		}
		if IsDoubleDash(arg) {
			return append(out, args[i+1:]...)
		}
		if IsOption(arg) {
			skip = o.TakesValue(arg.Text())
			continue
		}
		out = append(out, arg)
	}
	return out
}

// FindOption returns the first option among args, before any "--", that
// carries one of the short letters (alone or inside a cluster) or one of the
// long names.
func FindOption(args []*Node, letters string, long ...string) *Node {
	for _, arg := range args {
		if IsDoubleDash(arg) {
			return nil
		}
		if !IsOption(arg) {
			continue
		}
		text := arg.Text()
		if strings.HasPrefix(text, "--") {
			name, _, _ := strings.Cut(text, "=")
			for _, l := range long {
				if name == l {
					return arg
				}
			}
			continue
		}
		if letters != "" && strings.ContainsAny(text[1:], letters) {
			return arg
		}
	}
	return nil
}
