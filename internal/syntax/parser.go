package syntax

import (
	"context"
	"strings"
)

// FishParser is a recursive-descent parser for fish scripts. It never fails
// on malformed input: unterminated blocks, strings and substitutions become
// ERROR nodes that keep their opening token as the first child.
type FishParser struct{}

func NewFishParser() *FishParser { return &FishParser{} }

// Parse builds a tree for src. The only error it returns is ctx.Err().
func (fp *FishParser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := &parser{src: src, ctx: ctx}
	root := NewNode("program", true, 0, len(src))
	p.parseSequence(root)
	if p.err != nil {
		return nil, p.err
	}
	return NewTree(root, src), nil
}

// Parse parses src with the built-in parser and a background context.
func Parse(src string) *Tree {
	tree, err := NewFishParser().Parse(context.Background(), []byte(src))
	if err != nil {
		return NewTree(NewNode("program", true, 0, 0), nil)
	}
	return tree
}

const cancelCheckInterval = 64

type parser struct {
	src        []byte
	pos        int
	ctx        context.Context
	err        error
	steps      int
	substDepth int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.peekAt(0) }

func (p *parser) peekAt(off int) byte {
	if p.pos+off >= len(p.src) {
		return 0
	}
	return p.src[p.pos+off]
}

func (p *parser) leaf(typ string, named bool, n int) *Node {
	node := NewNode(typ, named, p.pos, p.pos+n)
	p.pos += n
	return node
}

func (p *parser) keyword(n *Node, kw string) {
	n.AppendChild(p.leaf(kw, false, len(kw)), "")
}

func (p *parser) cancelled() bool {
	if p.err != nil {
		return true
	}
	p.steps++
	if p.steps%cancelCheckInterval == 0 {
		if err := p.ctx.Err(); err != nil {
			p.err = err
			return true
		}
	}
	return false
}

func isWordEnd(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ';', '|', '&', '<', '>', ')':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isVarChar(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (p *parser) startsWord() bool {
	return !p.eof() && !isWordEnd(p.peek()) && p.peek() != '#'
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '\\' && p.peekAt(1) == '\n':
			p.pos += 2
		case c == '\\' && p.peekAt(1) == '\r' && p.peekAt(2) == '\n':
			p.pos += 3
		default:
			return
		}
	}
}

// skipBlank also skips newlines; used after binary operators.
func (p *parser) skipBlank() {
	for {
		p.skipSpace()
		if p.peek() != '\n' || p.eof() {
			return
		}
		p.pos++
	}
}

// peekWord returns the plain token at the cursor, or "" when the token
// contains quoting or expansions and therefore cannot be a keyword.
func (p *parser) peekWord() string {
	i := p.pos
	for i < len(p.src) && !isWordEnd(p.src[i]) {
		switch p.src[i] {
		case '\'', '"', '$', '(', '\\', '[', '{':
			return ""
		}
		i++
	}
	return string(p.src[p.pos:i])
}

// redirectLen returns the length of a redirection operator at the cursor.
func (p *parser) redirectLen() int {
	i := p.pos
	for i < len(p.src) && isDigit(p.src[i]) {
		i++
	}
	if i == p.pos && i+1 < len(p.src) && p.src[i] == '&' && p.src[i+1] == '>' {
		i++
	}
	if i >= len(p.src) {
		return 0
	}
	c := p.src[i]
	if c != '>' && c != '<' {
		return 0
	}
	i++
	if c == '>' && i < len(p.src) && p.src[i] == '>' {
		i++
	}
	if c == '>' && i < len(p.src) && p.src[i] == '?' {
		i++
	}
	return i - p.pos
}

func (p *parser) operatorLen() int {
	if l := p.redirectLen(); l > 0 {
		return l
	}
	switch {
	case p.peek() == '&' && (p.peekAt(1) == '&' || p.peekAt(1) == '|'):
		return 2
	case p.peek() == '|' && p.peekAt(1) == '|':
		return 2
	}
	return 1
}

func (p *parser) stray(n int) *Node {
	e := NewNode(ErrorType, true, p.pos, p.pos+n)
	e.AppendChild(p.leaf(string(p.src[p.pos:p.pos+n]), false, n), "")
	return e
}

func (p *parser) comment() *Node {
	start := p.pos
	for !p.eof() && p.peek() != '\n' {
		p.pos++
	}
	end := p.pos
	if end > start && p.src[end-1] == '\r' {
		end--
	}
	return NewNode("comment", true, start, end)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// parseSequence appends statements, terminators and comments to parent until
// one of stops begins a statement, the input ends, or a ')' closes an
// enclosing command substitution. It returns the stop word, or "" otherwise.
func (p *parser) parseSequence(parent *Node, stops ...string) string {
	for {
		if p.cancelled() {
			p.pos = len(p.src)
			return ""
		}
		p.skipSpace()
		if p.eof() {
			return ""
		}
		switch c := p.peek(); {
		case c == '\n' || c == ';':
			parent.AppendChild(p.leaf(string(c), false, 1), "")
			continue
		case c == '&' && p.peekAt(1) != '&' && p.peekAt(1) != '|' && p.peekAt(1) != '>':
			parent.AppendChild(p.leaf("&", false, 1), "")
			continue
		case c == '#':
			parent.AppendChild(p.comment(), "")
			continue
		case c == ')':
			if p.substDepth > 0 {
				return ""
			}
			parent.AppendChild(p.stray(1), "")
			continue
		}
		if w := p.peekWord(); w != "" && contains(stops, w) {
			return w
		}
		stmt := p.parseStatement()
		if stmt == nil {
			parent.AppendChild(p.stray(p.operatorLen()), "")
			continue
		}
		parent.AppendChild(stmt, "")
	}
}

func (p *parser) chainOp() string {
	switch {
	case p.peek() == '&' && p.peekAt(1) == '&':
		return "&&"
	case p.peek() == '|' && p.peekAt(1) == '|':
		return "||"
	}
	return ""
}

func (p *parser) pipeOp() string {
	switch {
	case p.peek() == '|' && p.peekAt(1) != '|':
		return "|"
	case p.peek() == '&' && p.peekAt(1) == '|':
		return "&|"
	}
	return ""
}

// parseStatement parses a pipeline chain joined by && and ||.
func (p *parser) parseStatement() *Node {
	return p.parseBinary("conditional_execution", p.chainOp, p.parsePipeline)
}

func (p *parser) parsePipeline() *Node {
	return p.parseBinary("pipe", p.pipeOp, p.parseSimple)
}

func (p *parser) parseBinary(typ string, op func() string, operand func() *Node) *Node {
	left := operand()
	if left == nil {
		return nil
	}
	for {
		save := p.pos
		p.skipSpace()
		o := op()
		if o == "" {
			p.pos = save
			return left
		}
		node := NewNode(typ, true, left.StartByte, 0)
		node.AppendChild(left, "")
		opNode := p.leaf(o, false, len(o))
		node.AppendChild(opNode, "")
		p.skipBlank()
		right := operand()
		if right == nil {
			node.Type = ErrorType
			node.EndByte = opNode.EndByte
			return node
		}
		node.AppendChild(right, "")
		node.EndByte = right.EndByte
		left = node
	}
}

func (p *parser) parseSimple() *Node {
	p.skipSpace()
	if !p.startsWord() {
		return nil
	}
	switch w := p.peekWord(); w {
	case "function":
		return p.withRedirects(p.parseFunction())
	case "if":
		return p.withRedirects(p.parseIf())
	case "while":
		return p.withRedirects(p.parseWhile())
	case "for":
		return p.withRedirects(p.parseFor())
	case "switch":
		return p.withRedirects(p.parseSwitch())
	case "begin":
		return p.withRedirects(p.parseBegin())
	case "not", "!":
		return p.parsePrefixed("negated_statement", w)
	case "and", "or":
		return p.parsePrefixed("conditional_execution", w)
	case "return":
		n := NewNode("return", true, p.pos, 0)
		p.keyword(n, "return")
		n.EndByte = p.pos
		p.parseArguments(n, "argument")
		return n
	case "break", "continue":
		return p.leaf(w, true, len(w))
	}
	return p.parseCommand()
}

func (p *parser) parsePrefixed(typ, kw string) *Node {
	n := NewNode(typ, true, p.pos, 0)
	p.keyword(n, kw)
	p.skipSpace()
	inner := p.parsePipeline()
	if inner == nil {
		n.Type = ErrorType
		n.EndByte = p.pos
		return n
	}
	n.AppendChild(inner, "")
	n.EndByte = inner.EndByte
	return n
}

func (p *parser) withRedirects(stmt *Node) *Node {
	save := p.pos
	p.skipSpace()
	l := p.redirectLen()
	if l == 0 || stmt.IsError() {
		p.pos = save
		return stmt
	}
	w := NewNode("redirected_statement", true, stmt.StartByte, 0)
	w.AppendChild(stmt, "body")
	for l > 0 {
		r := p.parseRedirect(l)
		w.AppendChild(r, "redirect")
		w.EndByte = r.EndByte
		save = p.pos
		p.skipSpace()
		if l = p.redirectLen(); l == 0 {
			p.pos = save
		}
	}
	return w
}

func (p *parser) parseCommand() *Node {
	cmd := NewNode("command", true, p.pos, 0)
	name := p.parseArgument()
	cmd.AppendChild(name, "name")
	cmd.EndByte = name.EndByte
	p.parseArguments(cmd, "argument")
	return cmd
}

// parseArguments appends arguments and redirections to n until a
// terminator, operator or comment.
func (p *parser) parseArguments(n *Node, field string) {
	for {
		save := p.pos
		p.skipSpace()
		if l := p.redirectLen(); l > 0 {
			r := p.parseRedirect(l)
			n.AppendChild(r, "redirect")
			n.EndByte = r.EndByte
			continue
		}
		if !p.startsWord() {
			p.pos = save
			return
		}
		arg := p.parseArgument()
		n.AppendChild(arg, field)
		n.EndByte = arg.EndByte
	}
}

func (p *parser) parseRedirect(l int) *Node {
	start := p.pos
	op := p.leaf(string(p.src[p.pos:p.pos+l]), false, l)
	if p.peek() == '&' && (isDigit(p.peekAt(1)) || p.peekAt(1) == '-') {
		p.pos += 2
		return NewNode("stream_redirect", true, start, p.pos)
	}
	r := NewNode("file_redirect", true, start, op.EndByte)
	r.AppendChild(op, "operator")
	save := p.pos
	p.skipSpace()
	if !p.startsWord() {
		p.pos = save
		r.Type = ErrorType
		return r
	}
	dest := p.parseArgument()
	r.AppendChild(dest, "destination")
	r.EndByte = dest.EndByte
	return r
}

// parseArgument parses one shell word; multi-part words become a
// concatenation.
func (p *parser) parseArgument() *Node {
	start := p.pos
	var pieces []*Node
	for !p.eof() && !isWordEnd(p.peek()) {
		pieces = append(pieces, p.parsePiece())
	}
	switch len(pieces) {
	case 0:
		return NewNode("word", true, start, start)
	case 1:
		if pc := pieces[0]; pc.Type == "word" && isInteger(p.src[pc.StartByte:pc.EndByte]) {
			pc.Type = "integer"
		}
		return pieces[0]
	}
	n := NewNode("concatenation", true, start, p.pos)
	for _, pc := range pieces {
		n.AppendChild(pc, "")
	}
	return n
}

func isInteger(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if !isDigit(c) {
			return false
		}
	}
	return true
}

func (p *parser) parsePiece() *Node {
	switch c := p.peek(); {
	case c == '\'':
		return p.singleQuoted()
	case c == '"':
		return p.doubleQuoted()
	case c == '$' && p.peekAt(1) == '(':
		return p.substitution(2)
	case c == '$' && (isVarChar(p.peekAt(1)) || p.peekAt(1) == '$'):
		return p.variableExpansion()
	case c == '(':
		return p.substitution(1)
	}
	return p.plainWord()
}

func (p *parser) plainWord() *Node {
	start := p.pos
	for !p.eof() && !isWordEnd(p.peek()) {
		c := p.peek()
		if p.pos > start {
			if c == '\'' || c == '"' || c == '(' {
				break
			}
			if c == '$' && (isVarChar(p.peekAt(1)) || p.peekAt(1) == '$' || p.peekAt(1) == '(') {
				break
			}
		}
		if c == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
			continue
		}
		p.pos++
	}
	return NewNode("word", true, start, p.pos)
}

func (p *parser) singleQuoted() *Node {
	start := p.pos
	p.pos++
	for !p.eof() {
		switch p.peek() {
		case '\\':
			if nxt := p.peekAt(1); nxt == '\'' || nxt == '\\' {
				p.pos += 2
				continue
			}
		case '\'':
			p.pos++
			return NewNode("single_quote_string", true, start, p.pos)
		}
		p.pos++
	}
	e := NewNode(ErrorType, true, start, p.pos)
	e.AppendChild(NewNode("'", false, start, start+1), "")
	return e
}

func (p *parser) doubleQuoted() *Node {
	n := NewNode("double_quote_string", true, p.pos, 0)
	p.keyword(n, `"`)
	for !p.eof() {
		switch c := p.peek(); {
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos += 2
			continue
		case c == '"':
			p.keyword(n, `"`)
			n.EndByte = p.pos
			return n
		case c == '$' && p.peekAt(1) == '(':
			n.AppendChild(p.substitution(2), "")
			continue
		case c == '$' && (isVarChar(p.peekAt(1)) || p.peekAt(1) == '$'):
			n.AppendChild(p.variableExpansion(), "")
			continue
		}
		p.pos++
	}
	n.Type = ErrorType
	n.EndByte = p.pos
	return n
}

func (p *parser) variableExpansion() *Node {
	n := NewNode("variable_expansion", true, p.pos, 0)
	p.keyword(n, "$")
	if p.peek() == '$' {
		n.AppendChild(p.variableExpansion(), "")
	} else {
		start := p.pos
		for !p.eof() && isVarChar(p.peek()) {
			p.pos++
		}
		n.AppendChild(NewNode("variable_name", true, start, p.pos), "")
	}
	for p.peek() == '[' {
		n.AppendChild(p.listElementAccess(), "")
	}
	n.EndByte = p.pos
	return n
}

func (p *parser) listElementAccess() *Node {
	n := NewNode("list_element_access", true, p.pos, 0)
	p.keyword(n, "[")
	for {
		for p.peek() == ' ' || p.peek() == '\t' {
			p.pos++
		}
		if p.eof() || p.peek() == '\n' {
			n.Type = ErrorType
			break
		}
		if p.peek() == ']' {
			p.keyword(n, "]")
			break
		}
		n.AppendChild(p.indexItem(), "")
	}
	n.EndByte = p.pos
	return n
}

func (p *parser) indexItem() *Node {
	start := p.pos
	item := NewNode("index", true, start, 0)
	for !p.eof() {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == ']' {
			break
		}
		switch {
		case c == '$' && p.peekAt(1) == '(':
			item.AppendChild(p.substitution(2), "")
		case c == '$' && (isVarChar(p.peekAt(1)) || p.peekAt(1) == '$'):
			item.AppendChild(p.variableExpansion(), "")
		case c == '(':
			item.AppendChild(p.substitution(1), "")
		default:
			runStart := p.pos
			for !p.eof() {
				c = p.peek()
				if c == ' ' || c == '\t' || c == '\n' || c == ']' || c == '(' || c == '$' {
					break
				}
				p.pos++
			}
			if p.pos == runStart {
				p.pos++
			}
			typ := "word"
			if isInteger([]byte(strings.TrimPrefix(string(p.src[runStart:p.pos]), "-"))) {
				typ = "integer"
			}
			item.AppendChild(NewNode(typ, true, runStart, p.pos), "")
		}
	}
	item.EndByte = p.pos
	if strings.Contains(string(p.src[start:p.pos]), "..") {
		item.Type = "range"
	}
	return item
}

func (p *parser) substitution(openLen int) *Node {
	n := NewNode("command_substitution", true, p.pos, 0)
	p.keyword(n, string(p.src[p.pos:p.pos+openLen]))
	p.substDepth++
	p.parseSequence(n)
	p.substDepth--
	if p.peek() == ')' && !p.eof() {
		p.keyword(n, ")")
	} else {
		n.Type = ErrorType
	}
	n.EndByte = p.pos
	return n
}

// finishBlock consumes the closing end, or marks the block as an ERROR when
// the body ran out before one appeared.
func (p *parser) finishBlock(n *Node, stop string) *Node {
	if stop == "end" {
		p.keyword(n, "end")
	} else {
		n.Type = ErrorType
	}
	n.EndByte = p.pos
	return n
}

func closeAt(n *Node) {
	n.EndByte = n.StartByte
	if last := n.LastChild(); last != nil {
		n.EndByte = last.EndByte
	}
}

func (p *parser) condition(n *Node) {
	p.skipSpace()
	if cond := p.parseStatement(); cond != nil {
		n.AppendChild(cond, "condition")
	}
}

func (p *parser) parseFunction() *Node {
	n := NewNode("function_definition", true, p.pos, 0)
	p.keyword(n, "function")
	p.skipSpace()
	if p.startsWord() {
		n.AppendChild(p.parseArgument(), "name")
	}
	p.parseArguments(n, "option")
	return p.finishBlock(n, p.parseSequence(n, "end"))
}

func (p *parser) parseIf() *Node {
	n := NewNode("if_statement", true, p.pos, 0)
	p.keyword(n, "if")
	p.condition(n)
	stop := p.parseSequence(n, "end", "else")
	for stop == "else" {
		start := p.pos
		p.pos += len("else")
		p.skipSpace()
		isElseIf := p.peekWord() == "if"
		p.pos = start
		if isElseIf {
			c := NewNode("else_if_clause", true, start, 0)
			p.keyword(c, "else")
			p.skipSpace()
			p.keyword(c, "if")
			p.condition(c)
			stop = p.parseSequence(c, "end", "else")
			closeAt(c)
			n.AppendChild(c, "")
			continue
		}
		c := NewNode("else_clause", true, start, 0)
		p.keyword(c, "else")
		stop = p.parseSequence(c, "end")
		closeAt(c)
		n.AppendChild(c, "")
	}
	return p.finishBlock(n, stop)
}

func (p *parser) parseWhile() *Node {
	n := NewNode("while_statement", true, p.pos, 0)
	p.keyword(n, "while")
	p.condition(n)
	return p.finishBlock(n, p.parseSequence(n, "end"))
}

func (p *parser) parseFor() *Node {
	n := NewNode("for_statement", true, p.pos, 0)
	p.keyword(n, "for")
	p.skipSpace()
	if p.startsWord() {
		start := p.pos
		for !p.eof() && !isWordEnd(p.peek()) {
			p.pos++
		}
		n.AppendChild(NewNode("variable_name", true, start, p.pos), "variable")
	}
	p.skipSpace()
	if p.peekWord() == "in" {
		p.keyword(n, "in")
	}
	p.parseArguments(n, "value")
	return p.finishBlock(n, p.parseSequence(n, "end"))
}

func (p *parser) parseSwitch() *Node {
	n := NewNode("switch_statement", true, p.pos, 0)
	p.keyword(n, "switch")
	p.skipSpace()
	if p.startsWord() {
		n.AppendChild(p.parseArgument(), "value")
	}
	p.parseArguments(n, "argument")
	stop := p.parseSequence(n, "case", "end")
	for stop == "case" {
		c := NewNode("case_clause", true, p.pos, 0)
		p.keyword(c, "case")
		p.parseArguments(c, "value")
		stop = p.parseSequence(c, "case", "end")
		closeAt(c)
		n.AppendChild(c, "")
	}
	return p.finishBlock(n, stop)
}

func (p *parser) parseBegin() *Node {
	n := NewNode("begin_statement", true, p.pos, 0)
	p.keyword(n, "begin")
	return p.finishBlock(n, p.parseSequence(n, "end"))
}
