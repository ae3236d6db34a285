package parser

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// Parser implements a recursive descent parser for Metapath expressions.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	static  *static.Context
	opts    CompileOptions
	depth   int
	// grouped is the last parenthesized expression, so that a predicate
	// after (step) filters the whole result instead of the step.
	grouped *cst.Node
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, sc *static.Context, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if sc == nil {
		sc = static.Default()
	}

	p := &Parser{
		lexer:  NewLexer(input),
		static: sc,
		opts:   options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire expression and returns the compiled expression.
func (p *Parser) Parse() (*cst.Expression, error) {
	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrSyntax, "Empty expression")
	}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	return cst.NewExpression(node, p.lexer.input, p.static), nil
}

// Binding powers, lowest first.
const (
	bpOr             = 10
	bpAnd            = 20
	bpCompare        = 30
	bpConcat         = 40
	bpRange          = 50
	bpAdditive       = 60
	bpMultiplicative = 70
	bpUnion          = 80
	bpIntersect      = 90
	bpInstance       = 95
	bpCastable       = 100
	bpCast           = 110
	bpArrow          = 120
	bpUnary          = 130
	bpMap            = 140
	bpPath           = 150
	bpPostfix        = 160
)

// Operator precedence table (binding power)
// Higher values bind more tightly
var precedence = map[TokenType]int{
	TokenEqual:        bpCompare,
	TokenNotEqual:     bpCompare,
	TokenLess:         bpCompare,
	TokenLessEqual:    bpCompare,
	TokenGreater:      bpCompare,
	TokenGreaterEqual: bpCompare,
	TokenConcat:       bpConcat,
	TokenPlus:         bpAdditive,
	TokenMinus:        bpAdditive,
	TokenStar:         bpMultiplicative,
	TokenPipe:         bpUnion,
	TokenArrow:        bpArrow,
	TokenBang:         bpMap,
	TokenSlash:        bpPath,
	TokenSlashSlash:   bpPath,
	TokenBracketOpen:  bpPostfix,
	TokenParenOpen:    bpPostfix,
	TokenQuestion:     bpPostfix,
}

// keywordPrecedence holds the binding power of operator keywords. They
// are operators only in infix position.
var keywordPrecedence = map[string]int{
	"or":        bpOr,
	"and":       bpAnd,
	"eq":        bpCompare,
	"ne":        bpCompare,
	"lt":        bpCompare,
	"le":        bpCompare,
	"gt":        bpCompare,
	"ge":        bpCompare,
	"to":        bpRange,
	"div":       bpMultiplicative,
	"idiv":      bpMultiplicative,
	"mod":       bpMultiplicative,
	"union":     bpUnion,
	"intersect": bpIntersect,
	"except":    bpIntersect,
	"instance":  bpInstance,
	"treat":     bpInstance,
	"castable":  bpCastable,
	"cast":      bpCast,
}

var generalComparisons = map[TokenType]item.CompareOp{
	TokenEqual:        item.OpEq,
	TokenNotEqual:     item.OpNe,
	TokenLess:         item.OpLt,
	TokenLessEqual:    item.OpLe,
	TokenGreater:      item.OpGt,
	TokenGreaterEqual: item.OpGe,
}

var valueComparisons = map[string]item.CompareOp{
	"eq": item.OpEq,
	"ne": item.OpNe,
	"lt": item.OpLt,
	"le": item.OpLe,
	"gt": item.OpGt,
	"ge": item.OpGe,
}

var arithmeticOps = map[string]item.ArithOp{
	"+":    item.OpAdd,
	"-":    item.OpSubtract,
	"*":    item.OpMultiply,
	"div":  item.OpDivide,
	"idiv": item.OpIntegerDivide,
	"mod":  item.OpMod,
}

// getPrecedence returns the binding power of the current token in infix
// position.
func (p *Parser) getPrecedence() int {
	if p.current.Type == TokenName {
		return keywordPrecedence[p.current.Value]
	}
	return precedence[p.current.Type]
}

func (p *Parser) isComparison() bool {
	if _, ok := generalComparisons[p.current.Type]; ok {
		return true
	}
	_, ok := valueComparisons[p.current.Value]
	return ok && p.current.Type == TokenName
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrSyntax, fmt.Sprintf("Expected %s but got %s", tt.String(), p.describe()))
	}
	p.advance()
	return nil
}

// expectKeyword consumes the name token kw.
func (p *Parser) expectKeyword(kw string) error {
	if p.current.Type != TokenName || p.current.Value != kw {
		return p.error(types.ErrSyntax, fmt.Sprintf("Expected %q but got %s", kw, p.describe()))
	}
	p.advance()
	return nil
}

func (p *Parser) describe() string {
	if p.current.Value != "" {
		return fmt.Sprintf("%q", p.current.Value)
	}
	return p.current.Type.String()
}

// error creates a parser error at the current token. A pending lexer
// error takes precedence.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if p.current.Type == TokenError {
		if err := p.lexer.Error(); err != nil {
			return err
		}
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// errorAt creates an error located at tok.
func errorAt(tok Token, code types.ErrorCode, message string) error {
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: tok.Position,
		Token:    tok.Value,
	}
}

// located attaches the position of tok to a resolution error.
func located(err error, tok Token) error {
	if merr, ok := err.(*types.Error); ok {
		return merr.WithPosition(tok.Position).WithToken(tok.Value)
	}
	return err
}

// parseExpr parses a comma-separated sequence expression.
func (p *Parser) parseExpr() (*cst.Node, error) {
	pos := p.current.Position
	first, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenComma {
		return first, nil
	}
	seq := cst.New(cst.KindSequence, pos, first)
	for p.current.Type == TokenComma {
		p.advance()
		next, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		seq.Children = append(seq.Children, next)
	}
	return seq, nil
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*cst.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrSyntax, "Expression nesting exceeds the maximum depth")
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence() {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *Parser) parsePrefix() (*cst.Node, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		p.advance()
		return literal(token, item.String(token.Value)), nil
	case TokenInteger:
		return p.parseInteger()
	case TokenDecimal:
		return p.parseDecimal()
	case TokenName, TokenEQName:
		p.advance()
		return p.parseName(token)
	case TokenDollar:
		return p.parseVariable()
	case TokenParenOpen:
		return p.parseParenthesized()
	case TokenBracketOpen:
		return p.parseSquareArray()
	case TokenMinus, TokenPlus:
		p.advance()
		operand, err := p.parseExpression(bpUnary)
		if err != nil {
			return nil, err
		}
		n := cst.New(cst.KindUnary, token.Position, operand)
		n.Arith = arithmeticOps[token.Value]
		return n, nil
	case TokenDot:
		p.advance()
		return cst.New(cst.KindContextItem, token.Position), nil
	case TokenDotDot:
		p.advance()
		return step(token.Position, cst.AxisParent, cst.NodeTest{Kind: cst.TestAnyNode}), nil
	case TokenAt:
		p.advance()
		test, err := p.parseNodeTest(cst.AxisFlag)
		if err != nil {
			return nil, err
		}
		return step(token.Position, cst.AxisFlag, test), nil
	case TokenStar:
		p.advance()
		return step(token.Position, cst.AxisChild, cst.NodeTest{Kind: cst.TestAnyName}), nil
	case TokenSlash, TokenSlashSlash:
		return p.parseRootedPath()
	case TokenQuestion:
		p.advance()
		return p.parseLookup(cst.New(cst.KindUnaryLookup, token.Position))
	case TokenEOF:
		return nil, p.error(types.ErrSyntax, "Unexpected end of expression")
	default:
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Unexpected token: %s", p.describe()))
	}
}

// parseInfix parses an infix expression (led - left denotation).
func (p *Parser) parseInfix(left *cst.Node) (*cst.Node, error) {
	token := p.current

	if token.Type == TokenName {
		return p.parseKeywordInfix(left)
	}

	switch token.Type {
	case TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		p.advance()
		n, err := p.parseBinary(cst.KindGeneralCompare, token, left, bpCompare)
		if err != nil {
			return nil, err
		}
		n.Compare = generalComparisons[token.Type]
		return n, p.checkNonAssociative()
	case TokenPlus, TokenMinus, TokenStar:
		p.advance()
		n, err := p.parseBinary(cst.KindArithmetic, token, left, p.bindingPower(token))
		if err != nil {
			return nil, err
		}
		n.Arith = arithmeticOps[token.Value]
		return n, nil
	case TokenConcat:
		p.advance()
		return p.parseBinary(cst.KindConcat, token, left, bpConcat)
	case TokenPipe:
		p.advance()
		return p.parseBinary(cst.KindUnion, token, left, bpUnion)
	case TokenBang:
		p.advance()
		return p.parseBinary(cst.KindSimpleMap, token, left, bpMap)
	case TokenSlash:
		p.advance()
		return p.parseStepAfter(left)
	case TokenSlashSlash:
		p.advance()
		return p.parseStepAfter(appendStep(left, descendantOrSelf(token.Position)))
	case TokenArrow:
		p.advance()
		return p.parseArrow(left, token)
	case TokenBracketOpen:
		return p.parsePredicate(left)
	case TokenParenOpen:
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		return cst.New(cst.KindDynamicCall, token.Position, append([]*cst.Node{left}, args...)...), nil
	case TokenQuestion:
		p.advance()
		return p.parseLookup(cst.New(cst.KindLookup, token.Position, left))
	default:
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Unexpected token: %s", p.describe()))
	}
}

func (p *Parser) bindingPower(tok Token) int {
	if tok.Type == TokenName {
		return keywordPrecedence[tok.Value]
	}
	return precedence[tok.Type]
}

// parseKeywordInfix handles operators spelled as names.
func (p *Parser) parseKeywordInfix(left *cst.Node) (*cst.Node, error) {
	token := p.current
	p.advance()

	switch token.Value {
	case "or":
		return p.parseBinary(cst.KindOr, token, left, bpOr)
	case "and":
		return p.parseBinary(cst.KindAnd, token, left, bpAnd)
	case "eq", "ne", "lt", "le", "gt", "ge":
		n, err := p.parseBinary(cst.KindValueCompare, token, left, bpCompare)
		if err != nil {
			return nil, err
		}
		n.Compare = valueComparisons[token.Value]
		return n, p.checkNonAssociative()
	case "to":
		n, err := p.parseBinary(cst.KindRange, token, left, bpRange)
		if err != nil {
			return nil, err
		}
		if p.current.Type == TokenName && p.current.Value == "to" {
			return nil, p.error(types.ErrSyntax, "Range expressions cannot be chained")
		}
		return n, nil
	case "div", "idiv", "mod":
		n, err := p.parseBinary(cst.KindArithmetic, token, left, bpMultiplicative)
		if err != nil {
			return nil, err
		}
		n.Arith = arithmeticOps[token.Value]
		return n, nil
	case "union":
		return p.parseBinary(cst.KindUnion, token, left, bpUnion)
	case "intersect":
		return p.parseBinary(cst.KindIntersect, token, left, bpIntersect)
	case "except":
		return p.parseBinary(cst.KindExcept, token, left, bpIntersect)
	case "cast", "castable":
		return p.parseCast(left, token)
	default: // instance of, treat as
		return nil, errorAt(token, types.ErrSyntax, fmt.Sprintf("%q expressions are not supported", token.Value))
	}
}

func (p *Parser) parseBinary(kind cst.Kind, op Token, left *cst.Node, bp int) (*cst.Node, error) {
	right, err := p.parseExpression(bp)
	if err != nil {
		return nil, err
	}
	return cst.New(kind, op.Position, left, right), nil
}

// checkNonAssociative rejects a = b = c.
func (p *Parser) checkNonAssociative() error {
	if p.isComparison() {
		return p.error(types.ErrSyntax, "Comparison operators are not associative")
	}
	return nil
}

// Literals

func literal(tok Token, v *item.Atomic) *cst.Node {
	n := cst.New(cst.KindLiteral, tok.Position)
	n.Value = v
	return n
}

func (p *Parser) parseInteger() (*cst.Node, error) {
	token := p.current
	i, err := item.ParseInteger(token.Value)
	if err != nil {
		return nil, p.error(types.ErrSyntax, err.Error())
	}
	p.advance()
	return literal(token, item.Integer(i)), nil
}

// parseDecimal parses decimal literals. Literals with an exponent are
// read as decimals too.
func (p *Parser) parseDecimal() (*cst.Node, error) {
	token := p.current
	s := token.Value
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.Replace(s, ".e", ".0e", 1)
	s = strings.Replace(s, ".E", ".0E", 1)
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Invalid numeric literal %q", token.Value))
	}
	p.advance()
	return literal(token, item.Decimal(d)), nil
}

// Names

// splitName splits a lexical QName into prefix and local part.
func splitName(s string) (prefix, local string) {
	if before, after, found := strings.Cut(s, ":"); found {
		return before, after
	}
	return "", s
}

// functionName resolves the name of a function call or reference.
func (p *Parser) functionName(tok Token) (types.QName, error) {
	if tok.Type == TokenEQName {
		q, ok := types.ParseEQName(tok.Value)
		if !ok {
			return types.QName{}, errorAt(tok, types.ErrSyntax, "Invalid braced URI name")
		}
		return p.static.QNames().Intern(q.Namespace, q.Local), nil
	}
	prefix, local := splitName(tok.Value)
	q, err := p.static.ResolveFunctionName(prefix, local)
	if err != nil {
		return types.QName{}, located(err, tok)
	}
	return q, nil
}

// variableName resolves the name of a variable reference or binding.
func (p *Parser) variableName() (types.QName, error) {
	tok := p.current
	var q types.QName
	switch tok.Type {
	case TokenEQName:
		parsed, ok := types.ParseEQName(tok.Value)
		if !ok {
			return types.QName{}, errorAt(tok, types.ErrSyntax, "Invalid braced URI name")
		}
		q = p.static.QNames().Intern(parsed.Namespace, parsed.Local)
	case TokenName:
		prefix, local := splitName(tok.Value)
		if local == "*" || prefix == "*" {
			return types.QName{}, p.error(types.ErrSyntax, "Invalid variable name")
		}
		var err error
		if q, err = p.static.ResolveName(prefix, local); err != nil {
			return types.QName{}, located(err, tok)
		}
	default:
		return types.QName{}, p.error(types.ErrSyntax, fmt.Sprintf("Expected variable name but got %s", p.describe()))
	}
	p.advance()
	return q, nil
}

func (p *Parser) parseVariable() (*cst.Node, error) {
	token := p.current
	p.advance()
	name, err := p.variableName()
	if err != nil {
		return nil, err
	}
	n := cst.New(cst.KindVariable, token.Position)
	n.Name = name
	return n, nil
}

// parseName dispatches on a name token that has already been consumed: a
// keyword expression, a function call or reference, a constructor, an axis
// step or an abbreviated child step.
func (p *Parser) parseName(token Token) (*cst.Node, error) {
	switch p.current.Type {
	case TokenAxis:
		return p.parseAxisStep(token)
	case TokenParenOpen:
		if token.Type == TokenName {
			switch token.Value {
			case "if":
				return p.parseIf(token)
			case "function":
				return p.parseInlineFunction(token)
			case "node":
				if err := p.parseEmptyParens(); err != nil {
					return nil, err
				}
				return step(token.Position, cst.AxisChild, cst.NodeTest{Kind: cst.TestAnyNode}), nil
			}
		}
		return p.parseFunctionCall(token)
	case TokenBraceOpen:
		if token.Type == TokenName && token.Value == "map" {
			return p.parseMap(token)
		}
		if token.Type == TokenName && token.Value == "array" {
			return p.parseCurlyArray(token)
		}
	case TokenHash:
		return p.parseFunctionRef(token)
	case TokenDollar:
		if token.Type == TokenName {
			switch token.Value {
			case "for":
				return p.parseBindingExpr(token, cst.KindFor, TokenName, "return")
			case "let":
				return p.parseBindingExpr(token, cst.KindLet, TokenAssign, "return")
			case "some":
				return p.parseBindingExpr(token, cst.KindSome, TokenName, "satisfies")
			case "every":
				return p.parseBindingExpr(token, cst.KindEvery, TokenName, "satisfies")
			}
		}
	}

	test, err := p.nameTest(token, cst.AxisChild)
	if err != nil {
		return nil, err
	}
	return step(token.Position, cst.AxisChild, test), nil
}

func (p *Parser) parseEmptyParens() error {
	if err := p.expect(TokenParenOpen); err != nil {
		return err
	}
	return p.expect(TokenParenClose)
}

// Paths

func step(pos int, axis cst.Axis, test cst.NodeTest) *cst.Node {
	n := cst.New(cst.KindStep, pos)
	n.Axis = axis
	n.Test = test
	return n
}

func descendantOrSelf(pos int) *cst.Node {
	return step(pos, cst.AxisDescendantOrSelf, cst.NodeTest{Kind: cst.TestAnyNode})
}

// appendStep adds a step to a path, creating the path if needed.
func appendStep(left, next *cst.Node) *cst.Node {
	if left.Kind == cst.KindPath {
		left.Children = append(left.Children, next)
		return left
	}
	return cst.New(cst.KindPath, left.Pos, left, next)
}

// parseStepAfter parses the step following / or //.
func (p *Parser) parseStepAfter(left *cst.Node) (*cst.Node, error) {
	next, err := p.parseExpression(bpPath)
	if err != nil {
		return nil, err
	}
	return appendStep(left, next), nil
}

// canStartStep reports whether the current token can begin a relative path.
func (p *Parser) canStartStep() bool {
	switch p.current.Type {
	case TokenName, TokenEQName, TokenStar, TokenAt, TokenDot, TokenDotDot,
		TokenDollar, TokenParenOpen, TokenString, TokenInteger, TokenDecimal:
		return true
	default:
		return false
	}
}

// parseRootedPath parses a path starting with / or //.
func (p *Parser) parseRootedPath() (*cst.Node, error) {
	token := p.current
	p.advance()
	root := cst.New(cst.KindRoot, token.Position)
	if token.Type == TokenSlash {
		if !p.canStartStep() {
			return root, nil
		}
		return p.parseStepAfter(root)
	}
	return p.parseStepAfter(cst.New(cst.KindPath, token.Position, root, descendantOrSelf(token.Position)))
}

func (p *Parser) parseAxisStep(token Token) (*cst.Node, error) {
	if token.Type != TokenName || strings.Contains(token.Value, ":") {
		return nil, errorAt(token, types.ErrSyntax, "Invalid axis name")
	}
	axis, ok := cst.AxisByName(token.Value)
	if !ok {
		return nil, errorAt(token, types.ErrAxisUnsupported, fmt.Sprintf("Axis %q is not supported", token.Value))
	}
	p.advance() // ::
	test, err := p.parseNodeTest(axis)
	if err != nil {
		return nil, err
	}
	return step(token.Position, axis, test), nil
}

// parseNodeTest parses the node test of a step on axis.
func (p *Parser) parseNodeTest(axis cst.Axis) (cst.NodeTest, error) {
	token := p.current
	switch token.Type {
	case TokenStar:
		p.advance()
		return cst.NodeTest{Kind: cst.TestAnyName}, nil
	case TokenName, TokenEQName:
		p.advance()
		if token.Type == TokenName && token.Value == "node" && p.current.Type == TokenParenOpen {
			if err := p.parseEmptyParens(); err != nil {
				return cst.NodeTest{}, err
			}
			return cst.NodeTest{Kind: cst.TestAnyNode}, nil
		}
		return p.nameTest(token, axis)
	default:
		return cst.NodeTest{}, p.error(types.ErrSyntax, fmt.Sprintf("Expected node test but got %s", p.describe()))
	}
}

// nameTest resolves a name or wildcard used as a node test. Flag names
// are unqualified unless prefixed; other names use the default model
// namespace.
func (p *Parser) nameTest(token Token, axis cst.Axis) (cst.NodeTest, error) {
	if token.Type == TokenEQName {
		q, ok := types.ParseEQName(token.Value)
		if !ok {
			return cst.NodeTest{}, errorAt(token, types.ErrSyntax, "Invalid braced URI name")
		}
		if q.Local == "*" {
			return cst.NodeTest{Kind: cst.TestLocalWildcard, Name: types.QName{Namespace: q.Namespace}}, nil
		}
		return cst.NodeTest{Kind: cst.TestName, Name: p.static.QNames().Intern(q.Namespace, q.Local)}, nil
	}

	prefix, local := splitName(token.Value)
	switch {
	case prefix == "*":
		return cst.NodeTest{Kind: cst.TestNamespaceAny, Name: p.static.QNames().Intern("", local)}, nil
	case local == "*":
		ns, ok := p.static.Namespace(prefix)
		if !ok {
			return cst.NodeTest{}, errorAt(token, types.ErrPrefixNotExpandable, fmt.Sprintf("namespace prefix %q is not bound", prefix))
		}
		return cst.NodeTest{Kind: cst.TestLocalWildcard, Name: types.QName{Namespace: ns}}, nil
	case axis == cst.AxisFlag:
		q, err := p.static.ResolveName(prefix, local)
		if err != nil {
			return cst.NodeTest{}, located(err, token)
		}
		return cst.NodeTest{Kind: cst.TestName, Name: q}, nil
	default:
		q, wildcard, err := p.static.ResolveModelName(prefix, local)
		if err != nil {
			return cst.NodeTest{}, located(err, token)
		}
		return cst.NodeTest{Kind: cst.TestName, Name: q, AnyNamespace: wildcard}, nil
	}
}

// parsePredicate attaches a predicate to an axis step, or wraps any other
// expression in a filter.
func (p *Parser) parsePredicate(left *cst.Node) (*cst.Node, error) {
	if err := p.expect(TokenBracketOpen); err != nil {
		return nil, err
	}
	pred, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	switch {
	case left.Kind == cst.KindStep && left != p.grouped:
		left.Predicates = append(left.Predicates, pred)
		return left, nil
	case left.Kind == cst.KindFilter && left != p.grouped:
		left.Predicates = append(left.Predicates, pred)
		return left, nil
	default:
		n := cst.New(cst.KindFilter, left.Pos, left)
		n.Predicates = []*cst.Node{pred}
		return n, nil
	}
}

// Primary expressions

func (p *Parser) parseParenthesized() (*cst.Node, error) {
	token := p.current
	p.advance()
	if p.current.Type == TokenParenClose {
		p.advance()
		return cst.New(cst.KindEmpty, token.Position), nil
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	p.grouped = inner
	return inner, nil
}

// parseArguments parses a parenthesized argument list.
func (p *Parser) parseArguments() ([]*cst.Node, error) {
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	var args []*cst.Node
	if p.current.Type == TokenParenClose {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return args, nil
}

// parseFunctionCall parses a static function call. Constructor functions
// in the XML Schema namespace compile to casts.
func (p *Parser) parseFunctionCall(token Token) (*cst.Node, error) {
	name, err := p.functionName(token)
	if err != nil {
		return nil, err
	}
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	if name.Namespace == types.NSXMLSchema {
		return p.constructor(token, name, args)
	}
	if _, err := p.static.Library().Lookup(name, len(args)); err != nil {
		return nil, located(err, token)
	}
	n := cst.New(cst.KindFunctionCall, token.Position, args...)
	n.Name = name
	return n, nil
}

func (p *Parser) constructor(token Token, name types.QName, args []*cst.Node) (*cst.Node, error) {
	t, ok := item.TypeByName(name.Local)
	if !ok {
		return nil, errorAt(token, types.ErrNoFunctionMatch, fmt.Sprintf("unknown function %s", name))
	}
	if len(args) != 1 {
		return nil, errorAt(token, types.ErrNoFunctionMatch, fmt.Sprintf("function %s does not accept %d arguments", name, len(args)))
	}
	n := cst.New(cst.KindCast, token.Position, args[0])
	n.Type = t
	n.Optional = true
	return n, nil
}

// parseFunctionRef parses name#arity.
func (p *Parser) parseFunctionRef(token Token) (*cst.Node, error) {
	name, err := p.functionName(token)
	if err != nil {
		return nil, err
	}
	p.advance() // #
	if p.current.Type != TokenInteger {
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Expected arity but got %s", p.describe()))
	}
	arity, err := item.ParseInteger(p.current.Value)
	if err != nil || !arity.IsInt64() || arity.Int64() > 1<<16 {
		return nil, p.error(types.ErrSyntax, "Invalid function arity")
	}
	p.advance()
	if _, err := p.static.Library().Lookup(name, int(arity.Int64())); err != nil {
		return nil, located(err, token)
	}
	n := cst.New(cst.KindFunctionRef, token.Position)
	n.Name = name
	n.Arity = int(arity.Int64())
	return n, nil
}

// parseArrow parses e => f(args), e => $f(args) and e => (expr)(args).
func (p *Parser) parseArrow(left *cst.Node, arrow Token) (*cst.Node, error) {
	token := p.current
	switch token.Type {
	case TokenName, TokenEQName:
		p.advance()
		name, err := p.functionName(token)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		args = append([]*cst.Node{left}, args...)
		if name.Namespace == types.NSXMLSchema {
			return p.constructor(token, name, args)
		}
		if _, err := p.static.Library().Lookup(name, len(args)); err != nil {
			return nil, located(err, token)
		}
		n := cst.New(cst.KindFunctionCall, arrow.Position, args...)
		n.Name = name
		return n, nil
	case TokenDollar, TokenParenOpen:
		var fn *cst.Node
		var err error
		if token.Type == TokenDollar {
			fn, err = p.parseVariable()
		} else {
			fn, err = p.parseParenthesized()
		}
		if err != nil {
			return nil, err
		}
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		return cst.New(cst.KindDynamicCall, arrow.Position, append([]*cst.Node{fn, left}, args...)...), nil
	default:
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Expected function after => but got %s", p.describe()))
	}
}

// parseBindingExpr parses for, let, some and every expressions. sep is
// the token between a variable and its expression ("in" or :=); body is
// the keyword introducing the final expression.
func (p *Parser) parseBindingExpr(token Token, kind cst.Kind, sep TokenType, body string) (*cst.Node, error) {
	n := cst.New(kind, token.Position)
	for {
		if err := p.expect(TokenDollar); err != nil {
			return nil, err
		}
		name, err := p.variableName()
		if err != nil {
			return nil, err
		}
		if sep == TokenAssign {
			err = p.expect(TokenAssign)
		} else {
			err = p.expectKeyword("in")
		}
		if err != nil {
			return nil, err
		}
		expr, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Bindings = append(n.Bindings, cst.Binding{Name: name, Expr: expr})
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expectKeyword(body); err != nil {
		return nil, err
	}
	ret, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	n.Children = []*cst.Node{ret}
	return n, nil
}

func (p *Parser) parseIf(token Token) (*cst.Node, error) {
	p.advance() // (
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	els, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return cst.New(cst.KindIf, token.Position, cond, then, els), nil
}

// parseInlineFunction parses function($a as T, $b) as R { body }.
func (p *Parser) parseInlineFunction(token Token) (*cst.Node, error) {
	p.advance() // (
	n := cst.New(cst.KindInlineFunction, token.Position)
	seen := make(map[types.QName]bool)
	for p.current.Type != TokenParenClose {
		if len(n.Params) > 0 {
			if err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		if err := p.expect(TokenDollar); err != nil {
			return nil, err
		}
		nameTok := p.current
		name, err := p.variableName()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, errorAt(nameTok, types.ErrSyntax, fmt.Sprintf("Duplicate parameter $%s", name))
		}
		seen[name] = true
		param := cst.Param{Name: name}
		if p.current.Type == TokenName && p.current.Value == "as" {
			p.advance()
			st, err := p.parseSequenceType()
			if err != nil {
				return nil, err
			}
			param.Type = &st
		}
		n.Params = append(n.Params, param)
	}
	p.advance() // )

	if p.current.Type == TokenName && p.current.Value == "as" {
		p.advance()
		st, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		n.Return = &st
	}

	if err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	body := cst.New(cst.KindEmpty, p.current.Position)
	if p.current.Type != TokenBraceClose {
		var err error
		if body, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	n.Children = []*cst.Node{body}
	return n, nil
}

// parseSequenceType parses a sequence type annotation. Typed function,
// array and map tests are reduced to their wildcard forms.
func (p *Parser) parseSequenceType() (functions.SequenceType, error) {
	token := p.current
	var text string
	switch token.Type {
	case TokenName, TokenEQName:
		p.advance()
		if p.current.Type == TokenParenOpen && token.Type == TokenName {
			if err := p.skipBalanced(); err != nil {
				return functions.SequenceType{}, err
			}
			text = token.Value + "()"
			switch token.Value {
			case "function", "array", "map":
				text = token.Value + "(*)"
			case "empty-sequence":
				return functions.SequenceType{Item: functions.ItemType{Kind: functions.EmptySequence}, Occurrence: functions.ZeroOrOne}, nil
			}
		} else {
			t, err := p.atomicTypeName(token, types.ErrUnknownType)
			if err != nil {
				return functions.SequenceType{}, err
			}
			text = t.Name()
			if t == item.TypeAnyAtomic {
				text = "any-atomic-type"
			}
		}
	default:
		return functions.SequenceType{}, p.error(types.ErrSyntax, fmt.Sprintf("Expected sequence type but got %s", p.describe()))
	}

	switch p.current.Type {
	case TokenQuestion, TokenStar, TokenPlus:
		text += p.current.Value
		p.advance()
	}
	st, err := functions.ParseSequenceType(text)
	if err != nil {
		return functions.SequenceType{}, errorAt(token, types.ErrUnknownType, err.Error())
	}
	return st, nil
}

// skipBalanced consumes a parenthesized token group.
func (p *Parser) skipBalanced() error {
	depth := 0
	for {
		switch p.current.Type {
		case TokenParenOpen:
			depth++
		case TokenParenClose:
			depth--
		case TokenEOF, TokenError:
			return p.error(types.ErrSyntax, "Unterminated type")
		}
		p.advance()
		if depth == 0 {
			return nil
		}
	}
}

// atomicTypeName resolves the name of an atomic type in the Metapath or
// XML Schema namespace. any-atomic-type is returned as TypeAnyAtomic.
func (p *Parser) atomicTypeName(token Token, code types.ErrorCode) (item.AtomicType, error) {
	var ns, local string
	if token.Type == TokenEQName {
		q, ok := types.ParseEQName(token.Value)
		if !ok {
			return 0, errorAt(token, types.ErrSyntax, "Invalid braced URI name")
		}
		ns, local = q.Namespace, q.Local
	} else {
		prefix, l := splitName(token.Value)
		if prefix != "" {
			uri, ok := p.static.Namespace(prefix)
			if !ok {
				return 0, errorAt(token, types.ErrPrefixNotExpandable, fmt.Sprintf("namespace prefix %q is not bound", prefix))
			}
			ns = uri
		}
		local = l
	}
	if ns != "" && ns != types.NSMetapath && ns != types.NSXMLSchema {
		return 0, errorAt(token, code, fmt.Sprintf("unknown type %s", token.Value))
	}
	if local == "any-atomic-type" || local == "anyAtomicType" {
		return item.TypeAnyAtomic, nil
	}
	t, ok := item.TypeByName(local)
	if !ok {
		return 0, errorAt(token, code, fmt.Sprintf("unknown type %s", token.Value))
	}
	return t, nil
}

// parseCast parses the target of cast as and castable as.
func (p *Parser) parseCast(left *cst.Node, op Token) (*cst.Node, error) {
	if err := p.expectKeyword("as"); err != nil {
		return nil, err
	}
	token := p.current
	if token.Type != TokenName && token.Type != TokenEQName {
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Expected type name but got %s", p.describe()))
	}
	p.advance()
	t, err := p.atomicTypeName(token, types.ErrCastUnknownType)
	if err != nil {
		return nil, err
	}
	if t == item.TypeAnyAtomic {
		return nil, errorAt(token, types.ErrCastAnyAtomic, "cannot cast to any-atomic-type")
	}
	kind := cst.KindCast
	if op.Value == "castable" {
		kind = cst.KindCastable
	}
	n := cst.New(kind, op.Position, left)
	n.Type = t
	if p.current.Type == TokenQuestion {
		p.advance()
		n.Optional = true
	}
	return n, nil
}

// Constructors

func (p *Parser) parseSquareArray() (*cst.Node, error) {
	token := p.current
	p.advance()
	n := cst.New(cst.KindArray, token.Position)
	for p.current.Type != TokenBracketClose {
		if len(n.Children) > 0 {
			if err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		member, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, member)
	}
	p.advance()
	return n, nil
}

func (p *Parser) parseCurlyArray(token Token) (*cst.Node, error) {
	p.advance() // {
	if p.current.Type == TokenBraceClose {
		p.advance()
		return cst.New(cst.KindCurlyArray, token.Position, cst.New(cst.KindEmpty, token.Position)), nil
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return cst.New(cst.KindCurlyArray, token.Position, body), nil
}

// parseMap parses map { key : value, ... }.
func (p *Parser) parseMap(token Token) (*cst.Node, error) {
	p.advance() // {
	n := cst.New(cst.KindMap, token.Position)
	for p.current.Type != TokenBraceClose {
		if len(n.Children) > 0 {
			if err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		key, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		value, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, key, value)
	}
	p.advance()
	return n, nil
}

// parseLookup parses the key specifier following ?.
func (p *Parser) parseLookup(n *cst.Node) (*cst.Node, error) {
	token := p.current
	switch token.Type {
	case TokenName:
		if strings.Contains(token.Value, ":") {
			return nil, p.error(types.ErrSyntax, "Lookup keys must be NCNames")
		}
		p.advance()
		n.Lookup = cst.LookupName
		n.Value = item.String(token.Value)
	case TokenInteger:
		lit, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		n.Lookup = cst.LookupInteger
		n.Value = lit.Value
	case TokenStar:
		p.advance()
		n.Lookup = cst.LookupWildcard
	case TokenParenOpen:
		key, err := p.parseParenthesized()
		if err != nil {
			return nil, err
		}
		n.Lookup = cst.LookupExpr
		n.Children = append(n.Children, key)
	default:
		return nil, p.error(types.ErrSyntax, fmt.Sprintf("Expected lookup key but got %s", p.describe()))
	}
	return n, nil
}
