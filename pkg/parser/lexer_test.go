package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/parser"
	"github.com/wandmagic/metapath/pkg/types"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []parser.Token
	expectErr bool
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := parser.NewLexer(tt.input)
			var got []parser.Token
			for {
				tok := lex.Next()
				if tok.Type == parser.TokenEOF {
					break
				}
				if tok.Type == parser.TokenError {
					require.True(t, tt.expectErr, "unexpected lexer error: %v", lex.Error())
					assert.True(t, types.IsCode(lex.Error(), types.ErrSyntax))
					return
				}
				got = append(got, tok)
			}
			require.False(t, tt.expectErr, "expected a lexer error")
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLexerWhitespaceAndComments(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "leading whitespace",
			input:    "   abc",
			expected: []parser.Token{{Type: parser.TokenName, Value: "abc", Position: 3}},
		},
		{
			name:     "comment",
			input:    "(: note :) abc",
			expected: []parser.Token{{Type: parser.TokenName, Value: "abc", Position: 11}},
		},
		{
			name:     "nested comment",
			input:    "(: a (: b :) c :)x",
			expected: []parser.Token{{Type: parser.TokenName, Value: "x", Position: 17}},
		},
		{
			name:      "unclosed comment",
			input:     "(: never ends",
			expectErr: true,
		},
	})
}

func TestLexerStrings(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "double quoted",
			input:    `"hello"`,
			expected: []parser.Token{{Type: parser.TokenString, Value: "hello", Position: 1}},
		},
		{
			name:     "single quoted",
			input:    `'world'`,
			expected: []parser.Token{{Type: parser.TokenString, Value: "world", Position: 1}},
		},
		{
			name:     "doubled quote",
			input:    `'it''s'`,
			expected: []parser.Token{{Type: parser.TokenString, Value: "it's", Position: 1}},
		},
		{
			name:     "backslash is literal",
			input:    `"a\nb"`,
			expected: []parser.Token{{Type: parser.TokenString, Value: `a\nb`, Position: 1}},
		},
		{
			name:  "strings around an operator",
			input: `'a' || "b"`,
			expected: []parser.Token{
				{Type: parser.TokenString, Value: "a", Position: 1},
				{Type: parser.TokenConcat, Value: "||", Position: 4},
				{Type: parser.TokenString, Value: "b", Position: 8},
			},
		},
		{
			name:  "doubled quote at end of input",
			input: `x = 'a'''`,
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "x", Position: 0},
				{Type: parser.TokenEqual, Value: "=", Position: 2},
				{Type: parser.TokenString, Value: "a'", Position: 5},
			},
		},
		{
			name:      "unterminated",
			input:     `"abc`,
			expectErr: true,
		},
	})
}

func TestLexerNumbers(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "integer",
			input:    "42",
			expected: []parser.Token{{Type: parser.TokenInteger, Value: "42", Position: 0}},
		},
		{
			name:     "decimal",
			input:    "3.14",
			expected: []parser.Token{{Type: parser.TokenDecimal, Value: "3.14", Position: 0}},
		},
		{
			name:     "leading dot",
			input:    ".5",
			expected: []parser.Token{{Type: parser.TokenDecimal, Value: ".5", Position: 0}},
		},
		{
			name:     "exponent",
			input:    "1e3",
			expected: []parser.Token{{Type: parser.TokenDecimal, Value: "1e3", Position: 0}},
		},
		{
			name:      "letters after digits",
			input:     "12abc",
			expectErr: true,
		},
	})
}

func TestLexerNames(t *testing.T) {
	runLexerTests(t, []lexerTestCase{
		{
			name:     "hyphenated name",
			input:    "a-b",
			expected: []parser.Token{{Type: parser.TokenName, Value: "a-b", Position: 0}},
		},
		{
			name:     "prefixed name",
			input:    "meta:date",
			expected: []parser.Token{{Type: parser.TokenName, Value: "meta:date", Position: 0}},
		},
		{
			name:     "prefix wildcard",
			input:    "oscal:*",
			expected: []parser.Token{{Type: parser.TokenName, Value: "oscal:*", Position: 0}},
		},
		{
			name:     "local wildcard",
			input:    "*:title",
			expected: []parser.Token{{Type: parser.TokenName, Value: "*:title", Position: 0}},
		},
		{
			name:     "braced URI name",
			input:    "Q{urn:x}title",
			expected: []parser.Token{{Type: parser.TokenEQName, Value: "Q{urn:x}title", Position: 0}},
		},
		{
			name:  "axis",
			input: "child::a",
			expected: []parser.Token{
				{Type: parser.TokenName, Value: "child", Position: 0},
				{Type: parser.TokenAxis, Value: "::", Position: 5},
				{Type: parser.TokenName, Value: "a", Position: 7},
			},
		},
		{
			name:  "variable",
			input: "$x",
			expected: []parser.Token{
				{Type: parser.TokenDollar, Value: "$", Position: 0},
				{Type: parser.TokenName, Value: "x", Position: 1},
			},
		},
	})
}

func TestLexerSymbols(t *testing.T) {
	input := "// / .. . := => || != <= >= ? # @ !"
	want := []parser.TokenType{
		parser.TokenSlashSlash, parser.TokenSlash, parser.TokenDotDot, parser.TokenDot,
		parser.TokenAssign, parser.TokenArrow, parser.TokenConcat, parser.TokenNotEqual,
		parser.TokenLessEqual, parser.TokenGreaterEqual, parser.TokenQuestion,
		parser.TokenHash, parser.TokenAt, parser.TokenBang,
	}
	lex := parser.NewLexer(input)
	for _, tt := range want {
		tok := lex.Next()
		assert.Equal(t, tt, tok.Type, "token %q", tok.Value)
	}
	assert.Equal(t, parser.TokenEOF, lex.Next().Type)
}
