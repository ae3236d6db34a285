package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals and names
	TokenString  // "hello" or 'hello', with doubled quotes unescaped
	TokenInteger // 123
	TokenDecimal // 3.14, .5, 1e-10
	TokenName    // name, prefix:name, *:name, prefix:*
	TokenEQName  // Q{uri}local or Q{uri}*
	TokenDollar  // $

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot      // .
	TokenDotDot   // ..
	TokenComma    // ,
	TokenColon    // :
	TokenAxis     // ::
	TokenAssign   // :=
	TokenQuestion // ?
	TokenAt       // @
	TokenHash     // #

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *

	// Path operators
	TokenSlash      // /
	TokenSlashSlash // //

	// Other operators
	TokenPipe   // |
	TokenConcat // ||
	TokenBang   // !
	TokenArrow  // =>

	// Comparison operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString:
		return "(string)"
	case TokenInteger:
		return "(integer)"
	case TokenDecimal:
		return "(decimal)"
	case TokenName, TokenEQName:
		return "(name)"
	case TokenDollar:
		return "$"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenBraceOpen:
		return "{"
	case TokenBraceClose:
		return "}"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenDot:
		return "."
	case TokenDotDot:
		return ".."
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenAxis:
		return "::"
	case TokenAssign:
		return ":="
	case TokenQuestion:
		return "?"
	case TokenAt:
		return "@"
	case TokenHash:
		return "#"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenSlashSlash:
		return "//"
	case TokenPipe:
		return "|"
	case TokenConcat:
		return "||"
	case TokenBang:
		return "!"
	case TokenArrow:
		return "=>"
	case TokenEqual:
		return "="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in a Metapath expression.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	':': TokenColon,
	'?': TokenQuestion,
	'@': TokenAt,
	'#': TokenHash,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'|': TokenPipe,
	'!': TokenBang,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'.': {{'.', TokenDotDot}},
	'/': {{'/', TokenSlashSlash}},
	'|': {{'|', TokenConcat}},
	'=': {{'>', TokenArrow}},
	':': {{':', TokenAxis}, {'=', TokenAssign}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}
