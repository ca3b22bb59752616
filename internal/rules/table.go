package rules

import "fishls/internal/diag"

var (
	commandTypes  = []string{"command"}
	sequenceTypes = []string{
		"program", "function_definition", "if_statement", "else_if_clause",
		"else_clause", "case_clause", "for_statement", "while_statement",
		"begin_statement",
	}
)

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: KindNode, Code: diag.MissingEnd, Types: []string{"ERROR"}, Check: checkMissingEnd},
		{Kind: KindNode, Code: diag.ExtraEnd, Types: commandTypes, Check: checkExtraEnd},
		{Kind: KindNode, Code: diag.ZeroIndexedArray, Types: []string{"index"}, Check: checkZeroIndex},
		{Kind: KindNode, Code: diag.SourceFileDoesNotExist, Types: commandTypes, Check: checkSourceFile},
		{Kind: KindNode, Code: diag.SingleQuoteVariableExpansion, Types: []string{"single_quote_string"}, Check: checkSingleQuoteExpansion},
		{Kind: KindNode, Code: diag.UsedAlias, Types: commandTypes, Check: checkAlias},
		{Kind: KindNode, Code: diag.UsedUniversalDefinition, Types: commandTypes, Check: checkUniversalDefinition},
		{Kind: KindNode, Code: diag.TestCommandMissingStringCharacters, Types: commandTypes, Check: checkTestStringCharacters},
		{Kind: KindNode, Code: diag.MissingQuietOption, Types: commandTypes, Check: checkQuietConditional},
		{Kind: KindNode, Code: diag.ExpansionInDefinition, Types: commandTypes, Check: checkExpansionInDefinition},
		{Kind: KindDocument, Code: diag.AutoloadedFunctionMissingDefinition, Check: checkAutoloadMissingDefinition},
		{Kind: KindDocument, Code: diag.AutoloadedFunctionFilenameMismatch, Check: checkAutoloadFilenameMismatch},
		{Kind: KindNode, Code: diag.FunctionNameUsingReservedKeyword, Types: []string{"function_definition"}, Check: checkReservedFunctionName},
		{Kind: KindDocument, Code: diag.UnusedLocalFunction, Check: checkUnusedLocalFunctions},
		{Kind: KindNode, Code: diag.ArgparseMissingEndStdin, Types: commandTypes, Check: checkArgparseEndStdin},
		{Kind: KindNode, Code: diag.UnreachableCode, Types: sequenceTypes, Check: checkUnreachable},
		{Kind: KindNode, Code: diag.FishLspDeprecatedEnvName, Types: []string{"command", "variable_name"}, Check: checkDeprecatedEnvName},
		{Kind: KindDocument, Code: diag.InvalidDiagnosticCode, Check: checkInvalidDirectiveCodes},
		{Kind: KindNode, Code: diag.SyntaxError, Types: []string{"ERROR"}, Check: checkSyntaxError},
	}
}
