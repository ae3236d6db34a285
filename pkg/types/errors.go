package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a Metapath error code.
type ErrorCode string

// Error codes follow the XPath 3.1 error code scheme, using the MP family
// prefix for the static, dynamic and type errors.
const (
	// MPST: static errors
	ErrSyntax              ErrorCode = "MPST0003"
	ErrNotDefined          ErrorCode = "MPST0008"
	ErrAxisUnsupported     ErrorCode = "MPST0010"
	ErrNoFunctionMatch     ErrorCode = "MPST0017"
	ErrUnknownType         ErrorCode = "MPST0051"
	ErrCastUnknownType     ErrorCode = "MPST0052"
	ErrCastAnyAtomic       ErrorCode = "MPST0080"
	ErrPrefixNotExpandable ErrorCode = "MPST0081"

	// MPDY: dynamic errors
	ErrContextAbsent ErrorCode = "MPDY0002"

	// MPTY: type errors
	ErrType             ErrorCode = "MPTY0004"
	ErrPathMixed        ErrorCode = "MPTY0018"
	ErrPathStepNotNodes ErrorCode = "MPTY0019"
	ErrFocusNotNode     ErrorCode = "MPTY0020"

	// FOAR: arithmetic
	ErrDivisionByZero         ErrorCode = "FOAR0001"
	ErrNumericOverflow        ErrorCode = "FOAR0002"
	ErrOperationNotSupported  ErrorCode = "FOAR0003"
	ErrDateTimeOverflow       ErrorCode = "FODT0001"
	ErrDurationOverflow       ErrorCode = "FODT0002"
	ErrInvalidTimezone        ErrorCode = "FODT0003"
	ErrInvalidValueForCast    ErrorCode = "FORG0001"
	ErrInvalidResolveURI      ErrorCode = "FORG0002"
	ErrZeroOrOne              ErrorCode = "FORG0003"
	ErrOneOrMore              ErrorCode = "FORG0004"
	ErrExactlyOne             ErrorCode = "FORG0005"
	ErrInvalidArgumentType    ErrorCode = "FORG0006"
	ErrInconsistentTimezone   ErrorCode = "FORG0008"
	ErrInvalidLexicalValue    ErrorCode = "FOCA0002"
	ErrValueTooLarge          ErrorCode = "FOCA0003"
	ErrArrayIndexOutOfBounds  ErrorCode = "FOAY0001"
	ErrArrayNegativeLength    ErrorCode = "FOAY0002"
	ErrRegexFlags             ErrorCode = "FORX0001"
	ErrRegexPattern           ErrorCode = "FORX0002"
	ErrRegexZeroLengthMatch   ErrorCode = "FORX0003"
	ErrRegexReplacement       ErrorCode = "FORX0004"
	ErrDocumentRetrieval      ErrorCode = "FODC0002"
	ErrBaseURIUndefined       ErrorCode = "FONS0005"
	ErrAtomizeFunction        ErrorCode = "FOTY0013"
	ErrDuplicateMapKey        ErrorCode = "FOJS0003"
	ErrFunctionNotDeepEqual   ErrorCode = "FOTY0015"
	ErrUnidentified           ErrorCode = "FOER0000"
	ErrCodepointNotValid      ErrorCode = "FOCH0001"
	ErrNormalizationForm      ErrorCode = "FOCH0003"
	ErrInvalidCollationOption ErrorCode = "FOCH0002"
)

// Error represents a structured Metapath error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new Metapath error. A negative position means the
// error is not tied to a source offset.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Errorf creates a runtime error without a source position.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: -1,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithPosition sets the source offset when the error has none yet.
func (e *Error) WithPosition(pos int) *Error {
	if e.Position < 0 {
		e.Position = pos
	}
	return e
}

// IsStatic reports whether the error was raised while compiling.
func (e *Error) IsStatic() bool {
	return len(e.Code) > 4 && e.Code[:4] == "MPST"
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
