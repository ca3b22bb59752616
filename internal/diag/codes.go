package diag

import (
	"sort"
	"strconv"
)

// Code is a stable numeric diagnostic identifier. The thousands digit groups
// related checks.
type Code uint16

const (
	UnknownCode Code = 0

	// Structure
	MissingEnd             Code = 1001
	ExtraEnd               Code = 1002
	ZeroIndexedArray       Code = 1003
	SourceFileDoesNotExist Code = 1004

	// Quoting and deprecated constructs
	SingleQuoteVariableExpansion Code = 2001
	UsedAlias                    Code = 2002
	UsedUniversalDefinition      Code = 2003

	// Command usage
	TestCommandMissingStringCharacters Code = 3001
	MissingQuietOption                 Code = 3002
	ExpansionInDefinition              Code = 3003

	// Functions and autoloading
	AutoloadedFunctionMissingDefinition Code = 4001
	AutoloadedFunctionFilenameMismatch  Code = 4002
	FunctionNameUsingReservedKeyword    Code = 4003
	UnusedLocalFunction                 Code = 4004

	ArgparseMissingEndStdin Code = 5001
	UnreachableCode         Code = 5555

	FishLspDeprecatedEnvName Code = 6001

	InvalidDiagnosticCode Code = 8001

	SyntaxError Code = 9999
)

// Source is the producer name attached to every diagnostic.
const Source = "fish-lsp"

type codeInfo struct {
	name     string
	severity Severity
	message  string
	href     string
}

const (
	docsURL = "https://fishshell.com/docs/current/"
	repoURL = "https://github.com/ndonfris/fish-lsp"
)

var registry = map[Code]codeInfo{
	UnknownCode:                         {"unknown", SevError, "unknown diagnostic", ""},
	MissingEnd:                          {"missingEnd", SevError, "missing closing token", docsURL + "cmds/end.html"},
	ExtraEnd:                            {"extraEnd", SevError, "extra closing token", docsURL + "cmds/end.html"},
	ZeroIndexedArray:                    {"zeroIndexedArray", SevError, "invalid array index", docsURL + "language.html#slices"},
	SourceFileDoesNotExist:              {"sourceFileDoesNotExist", SevError, "source filename does not exist", docsURL + "cmds/source.html"},
	SingleQuoteVariableExpansion:        {"singleQuoteVariableExpansion", SevWarning, "non-escaped expansion variable in single quote string", docsURL + "language.html#variable-expansion"},
	UsedAlias:                           {"usedAlias", SevWarning, "alias used, prefer using functions instead", docsURL + "cmds/alias.html"},
	UsedUniversalDefinition:             {"usedUniversalDefinition", SevWarning, "Universal scope set in non-interactive session", docsURL + "language.html#universal-variables"},
	TestCommandMissingStringCharacters:  {"testCommandMissingStringCharacters", SevWarning, "test command string check, should be wrapped as a string", docsURL + "cmds/test.html#examples"},
	MissingQuietOption:                  {"missingQuietOption", SevWarning, "Conditional command should include a silence option", docsURL + "search.html?q=-q"},
	ExpansionInDefinition:               {"expansionInDefinition", SevWarning, "Variable definition should not include expansion character", docsURL + "cmds/set.html"},
	AutoloadedFunctionMissingDefinition: {"autoloadedFunctionMissingDefinition", SevWarning, "Autoloaded function missing definition", docsURL + "cmds/functions.html"},
	AutoloadedFunctionFilenameMismatch:  {"autoloadedFunctionFilenameMismatch", SevError, "Autoloaded filename does not match function name", docsURL + "cmds/functions.html"},
	FunctionNameUsingReservedKeyword:    {"functionNameUsingReservedKeyword", SevError, "Function name uses reserved keyword", docsURL + "cmds/functions.html"},
	UnusedLocalFunction:                 {"unusedLocalFunction", SevWarning, "Unused local function", docsURL + "cmds/functions.html"},
	ArgparseMissingEndStdin:             {"argparseMissingEndStdin", SevError, "argparse missing end of stdin", docsURL + "cmds/argparse.html"},
	UnreachableCode:                     {"unreachableCode", SevWarning, "unreachable code", docsURL + "cmds/return.html"},
	FishLspDeprecatedEnvName:            {"fishLspDeprecatedEnvName", SevWarning, "Deprecated fish-lsp environment variable name", repoURL + "#environment-variables"},
	InvalidDiagnosticCode:               {"invalidDiagnosticCode", SevWarning, "Invalid diagnostic control code", repoURL + "/wiki/Diagnostic-Error-Codes"},
	SyntaxError:                         {"syntaxError", SevError, "fish syntax error", docsURL + "fish_for_bash_users.html#syntax-overview"},
}

var allCodes = func() []Code {
	out := make([]Code, 0, len(registry))
	for c := range registry {
		if c != UnknownCode {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}()

// AllCodes returns every registered code in ascending order.
func AllCodes() []Code {
	return append([]Code(nil), allCodes...)
}

// IsValid reports whether c is a registered diagnostic code.
func (c Code) IsValid() bool {
	_, ok := registry[c]
	return ok && c != UnknownCode
}

// ParseCode parses a decimal code and reports whether it is registered.
func ParseCode(s string) (Code, bool) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return UnknownCode, false
	}
	c := Code(n)
	return c, c.IsValid()
}

func (c Code) info() codeInfo {
	if info, ok := registry[c]; ok {
		return info
	}
	return registry[UnknownCode]
}

func (c Code) ID() string { return strconv.Itoa(int(c)) }

// Name is the camel-case identifier of the check.
func (c Code) Name() string { return c.info().name }

// Title is the base message shown to users.
func (c Code) Title() string { return c.info().message }

// Severity is the default severity of the check.
func (c Code) Severity() Severity { return c.info().severity }

// Href links to documentation for the check.
func (c Code) Href() string { return c.info().href }

func (c Code) String() string {
	return "[" + c.ID() + "]: " + c.Title()
}
