package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wandmagic/metapath/pkg/types"
)

const eof = -1

// Lexer converts a Metapath expression into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// Keywords are not reserved: words such as "div" or "for" are returned as
// names and the parser decides from their position whether they are
// operators, keywords or path steps.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	// Check if skipWhitespace encountered an error (e.g., unclosed comment)
	if l.err != nil {
		return Token{Type: TokenError, Position: l.current}
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// .5 is a decimal, not the context item followed by a number
	if ch == '.' && isDigit(l.peek()) {
		l.backup()
		return l.scanNumber()
	}

	// *:local is a wildcard name test
	if ch == '*' && l.peek() == ':' && isNameStart(l.peekAt(1)) {
		l.nextRune()
		l.scanNCName()
		return l.newToken(TokenName)
	}

	// Check for two-character symbols first (e.g., !=, <=, ..)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	if ch == '$' {
		return l.newToken(TokenDollar)
	}

	// String literals (single or double quoted)
	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals
	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	if ch == 'Q' && l.peek() == '{' {
		return l.scanEQName()
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.error(types.ErrSyntax, "Unexpected character")
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed. A doubled quote stands for
// one quote character.
func (l *Lexer) scanString(quote rune) Token {
	escaped := false
Loop:
	for {
		switch l.nextRune() {
		case quote:
			if l.acceptRune(quote) {
				escaped = true
				continue
			}
			break Loop
		case eof:
			return l.error(types.ErrSyntax, "Unterminated string literal")
		}
	}

	// the closing quote is consumed and not part of the value
	t := Token{
		Type:     TokenString,
		Value:    l.input[l.start : l.current-utf8.RuneLen(quote)],
		Position: l.start,
	}
	l.width = 0
	l.ignore()
	if escaped {
		q := string(quote)
		t.Value = strings.ReplaceAll(t.Value, q+q, q)
	}
	return t
}

// scanNumber reads a numeric literal from the current position.
// Format: ([0-9]+ ("." [0-9]*)? | "." [0-9]+) ([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	tt := TokenInteger
	l.acceptAll(isDigit)

	// Decimal part
	if l.peek() == '.' && l.peekAt(1) != '.' {
		l.nextRune()
		l.acceptAll(isDigit)
		tt = TokenDecimal
	}

	// Exponent part
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error(types.ErrSyntax, "Invalid numeric literal")
		}
		tt = TokenDecimal
	}

	// 12abc is not a number followed by a name
	if isNameStart(l.peek()) {
		l.nextRune()
		return l.error(types.ErrSyntax, "Invalid numeric literal")
	}

	return l.newToken(tt)
}

// scanEQName reads a braced URI name, Q{uri}local or Q{uri}*. The Q has
// already been consumed.
func (l *Lexer) scanEQName() Token {
	l.nextRune() // {
	for {
		switch l.nextRune() {
		case '}':
			if l.acceptRune('*') {
				return l.newToken(TokenEQName)
			}
			if !isNameStart(l.peek()) {
				return l.error(types.ErrSyntax, "Invalid braced URI name")
			}
			l.scanNCName()
			return l.newToken(TokenEQName)
		case '{', eof:
			return l.error(types.ErrSyntax, "Unterminated braced URI literal")
		}
	}
}

// scanName reads an NCName or a lexical QName. prefix:* is returned as a
// single name token; prefix::axis is left for the symbol table.
func (l *Lexer) scanName() Token {
	l.scanNCName()
	if l.peek() == ':' {
		switch next := l.peekAt(1); {
		case next == '*':
			l.nextRune()
			l.nextRune()
		case isNameStart(next):
			l.nextRune()
			l.scanNCName()
		}
	}
	return l.newToken(TokenName)
}

func (l *Lexer) scanNCName() {
	l.accept(isNameStart)
	l.acceptAll(isNameChar)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = &types.Error{
		Code:     code,
		Message:  message,
		Position: t.Position,
		Token:    t.Value,
	}
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

// peekAt returns the rune n runes past the current position without
// consuming anything.
func (l *Lexer) peekAt(n int) rune {
	pos := l.current
	for ; n >= 0; n-- {
		if pos >= l.length {
			return eof
		}
		r, w := utf8.DecodeRuneInString(l.input[pos:])
		if n == 0 {
			return r
		}
		pos += w
	}
	return eof
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips whitespace and (: comments :), which nest.
func (l *Lexer) skipWhitespace() {
	for {
		if l.err != nil {
			return
		}

		l.acceptAll(isWhitespace)
		l.ignore()

		if l.peek() != '(' || l.peekAt(1) != ':' {
			return
		}
		l.nextRune()
		l.nextRune()
		depth := 1
		for depth > 0 {
			switch l.nextRune() {
			case eof:
				l.err = &types.Error{
					Code:     types.ErrSyntax,
					Message:  "Unclosed comment",
					Position: l.start,
				}
				return
			case '(':
				if l.acceptRune(':') {
					depth++
				}
			case ':':
				if l.acceptRune(')') {
					depth--
				}
			}
		}
		l.ignore()
	}
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	switch {
	case isNameStart(r), isDigit(r), r == '-', r == '.', r == '·':
		return true
	default:
		return unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd)
	}
}
