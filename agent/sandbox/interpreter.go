package sandbox

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Program is a compiled arithmetic expression over named parameters.
// The grammar is numbers, parameter names, + - * /, unary signs and parentheses.
type Program struct {
	Params []string
	// Defaults holds the values of trailing parameters declared with "=".
	Defaults map[string]float64
	root     node
}

func (p *Program) Arity() int {
	return len(p.Params)
}

func (p *Program) Call(args ...float64) (float64, error) {
	if len(args) > len(p.Params) {
		return 0, fmt.Errorf("%w: expects %d arguments, got %d", contractx.ErrExecution, len(p.Params), len(args))
	}
	env := make(map[string]float64, len(p.Params))
	for i, name := range p.Params {
		if i < len(args) {
			env[name] = args[i]
			continue
		}
		v, ok := p.Defaults[name]
		if !ok {
			return 0, fmt.Errorf("%w: missing argument %q", contractx.ErrExecution, name)
		}
		env[name] = v
	}
	value, err := p.root.eval(env)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", contractx.ErrExecution, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", contractx.ErrExecution)
	}
	return value, nil
}

// Compile accepts "lambda a, b: expr", "(a, b) => expr" or a bare expression.
// A bare expression takes its parameters from declared, in order.
func Compile(code string, declared []string) (*Program, error) {
	params, defaults, body, err := splitSignature(strings.TrimSpace(code), declared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrExecution, err)
	}

	known := make(map[string]bool, len(params))
	for _, name := range params {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid parameter name %q", contractx.ErrExecution, name)
		}
		if known[name] {
			return nil, fmt.Errorf("%w: duplicate parameter %q", contractx.ErrExecution, name)
		}
		known[name] = true
	}

	p := &exprParser{input: body, known: known}
	root, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrExecution, err)
	}
	p.skipSpaces()
	if p.hasNext() {
		return nil, fmt.Errorf("%w: unexpected token at position %d", contractx.ErrExecution, p.pos)
	}
	return &Program{Params: params, Defaults: defaults, root: root}, nil
}

func splitSignature(code string, declared []string) ([]string, map[string]float64, string, error) {
	if code == "" {
		return nil, nil, "", fmt.Errorf("code is empty")
	}

	if rest, ok := strings.CutPrefix(code, "lambda"); ok && (rest == "" || !isIdentChar(rune(rest[0]))) {
		header, body, found := strings.Cut(rest, ":")
		if !found {
			return nil, nil, "", fmt.Errorf("lambda has no body")
		}
		params, defaults, err := splitParams(header)
		return params, defaults, body, err
	}

	if header, body, found := strings.Cut(code, "=>"); found {
		header = strings.TrimSpace(header)
		header = strings.TrimSuffix(strings.TrimPrefix(header, "("), ")")
		params, defaults, err := splitParams(header)
		return params, defaults, body, err
	}

	params := make([]string, 0, len(declared))
	for _, name := range declared {
		if name = strings.TrimSpace(name); name != "" {
			params = append(params, name)
		}
	}
	return params, nil, code, nil
}

// splitParams reads "q, rate=0.15" as q and rate, with rate defaulting to
// 0.15. Defaults must be numeric literals and may only trail.
func splitParams(header string) ([]string, map[string]float64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil, nil
	}
	parts := strings.Split(header, ",")
	params := make([]string, 0, len(parts))
	var defaults map[string]float64
	for _, part := range parts {
		name, raw, hasDefault := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		params = append(params, name)
		if !hasDefault {
			if len(defaults) > 0 {
				return nil, nil, fmt.Errorf("parameter %q without default follows a default", name)
			}
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("default for %q is not a number", name)
		}
		if defaults == nil {
			defaults = make(map[string]float64)
		}
		defaults[name] = v
	}
	return params, defaults, nil
}

type node interface {
	eval(env map[string]float64) (float64, error)
}

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, error) { return float64(n), nil }

type paramNode string

func (n paramNode) eval(env map[string]float64) (float64, error) {
	v, ok := env[string(n)]
	if !ok {
		return 0, fmt.Errorf("unbound parameter %s", string(n))
	}
	return v, nil
}

type negateNode struct{ operand node }

func (n negateNode) eval(env map[string]float64) (float64, error) {
	v, err := n.operand.eval(env)
	return -v, err
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(env map[string]float64) (float64, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '/':
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type exprParser struct {
	input string
	pos   int
	known map[string]bool
}

func (p *exprParser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		if !p.hasNext() || (p.peek() != '+' && p.peek() != '-') {
			return left, nil
		}
		op := p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		if !p.hasNext() || (p.peek() != '*' && p.peek() != '/') {
			return left, nil
		}
		if p.peekAt(1) == '*' || p.peekAt(1) == '/' {
			return nil, fmt.Errorf("operator %q is not supported at position %d", p.input[p.pos:p.pos+2], p.pos)
		}
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseUnary() (node, error) {
	p.skipSpaces()
	if p.match('+') {
		return p.parseUnary()
	}
	if p.match('-') {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (node, error) {
	p.skipSpaces()
	if !p.hasNext() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if p.match('(') {
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return nil, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		return inner, nil
	}
	if ch := rune(p.peek()); unicode.IsLetter(ch) || ch == '_' {
		return p.parseIdentifier()
	}
	return p.parseNumber()
}

func (p *exprParser) parseIdentifier() (node, error) {
	start := p.pos
	for p.hasNext() && isIdentChar(rune(p.peek())) {
		p.pos++
	}
	name := p.input[start:p.pos]
	if !p.known[name] {
		return nil, fmt.Errorf("unknown name %q at position %d", name, start)
	}
	return paramNode(name), nil
}

func (p *exprParser) parseNumber() (node, error) {
	start := p.pos
	seenDot := false
	for p.hasNext() {
		ch := p.peek()
		if ch == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		if ch < '0' || ch > '9' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("unexpected character %q at position %d", p.peek(), start)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return numberNode(value), nil
}

func (p *exprParser) skipSpaces() {
	for p.hasNext() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *exprParser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *exprParser) peek() byte {
	return p.input[p.pos]
}

func (p *exprParser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.input) {
		return 0
	}
	return p.input[p.pos+offset]
}

func (p *exprParser) next() byte {
	ch := p.input[p.pos]
	p.pos++
	return ch
}

func (p *exprParser) match(ch byte) bool {
	if p.hasNext() && p.peek() == ch {
		p.pos++
		return true
	}
	return false
}

func isIdentChar(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
