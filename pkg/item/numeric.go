package item

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/types"
)

// DecimalPrecision is the number of significant digits kept by inexact
// decimal operations such as division.
const DecimalPrecision = 34

var (
	// decimalContext is used for operations whose result may not be exact.
	decimalContext = func() *apd.Context {
		c := apd.BaseContext.WithPrecision(DecimalPrecision)
		c.Rounding = apd.RoundHalfEven
		return c
	}()

	// exactContext serves addition, subtraction, multiplication and
	// quantization. Its precision is far above any lexical literal, so
	// those operations are exact in practice; Quantize needs a non-zero
	// precision to succeed at all.
	exactContext = func() *apd.Context {
		c := apd.BaseContext.WithPrecision(exactPrecision)
		c.Rounding = apd.RoundHalfUp
		return c
	}()
)

const exactPrecision = 1000

func decimalFromBigInt(b *big.Int) *apd.Decimal {
	d, _, err := apd.NewFromString(b.String())
	if err != nil {
		// big.Int always renders a valid coefficient
		panic(err)
	}
	return d
}

// truncToBigInt drops the fractional part of d. Non-finite values yield 0.
func truncToBigInt(d *apd.Decimal) *big.Int {
	if d.Form != apd.Finite {
		return new(big.Int)
	}
	b, ok := new(big.Int).SetString(d.Coeff.String(), 10)
	if !ok {
		return new(big.Int)
	}
	switch {
	case d.Exponent > 0:
		b.Mul(b, pow10(d.Exponent))
	case d.Exponent < 0:
		b.Quo(b, pow10(-d.Exponent))
	}
	if d.Negative {
		b.Neg(b)
	}
	return b
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// scale returns the number of fractional digits of d.
func scale(d *apd.Decimal) int32 {
	if d.Exponent >= 0 {
		return 0
	}
	return -d.Exponent
}

// reduce strips trailing zeros.
func reduce(d *apd.Decimal) *apd.Decimal {
	r, _ := new(apd.Decimal).Reduce(d)
	return r
}

func isIntegral(d *apd.Decimal) bool {
	if d.Exponent >= 0 {
		return true
	}
	return reduce(d).Exponent >= 0
}

// Int64 returns the value of an integer item if it fits in an int64.
func (a *Atomic) Int64() (int64, bool) {
	if !a.typ.IsInteger() || !a.i.IsInt64() {
		return 0, false
	}
	return a.i.Int64(), true
}

// ToInt converts an integer item to an int. Values outside the int range
// fail with FOCA0003.
func (a *Atomic) ToInt() (int, error) {
	n, ok := a.Int64()
	if !ok {
		if !a.typ.IsInteger() {
			return 0, types.Errorf(types.ErrType, "expected an integer but found %s", a.typ)
		}
		return 0, types.Errorf(types.ErrValueTooLarge, "integer %s is too large", a.i)
	}
	if int64(int(n)) != n {
		return 0, types.Errorf(types.ErrValueTooLarge, "integer %d is too large", n)
	}
	return int(n), nil
}

// Sign returns -1, 0 or +1 for a numeric or duration item.
func (a *Atomic) Sign() int {
	switch {
	case a.typ.IsInteger():
		return a.i.Sign()
	case a.typ == TypeYearMonthDuration:
		return compareInt64(a.months, 0)
	case a.d != nil:
		return a.d.Sign()
	default:
		return 0
	}
}

// Abs returns the absolute value of a numeric item.
func Abs(a *Atomic) *Atomic {
	if a.typ.IsInteger() {
		if a.i.Sign() >= 0 {
			return a
		}
		return Integer(new(big.Int).Abs(a.i))
	}
	return Decimal(new(apd.Decimal).Abs(a.d))
}

// Negate returns the arithmetic negation of a numeric item.
func Negate(a *Atomic) (*Atomic, error) {
	switch {
	case a.typ.IsInteger():
		return Integer(new(big.Int).Neg(a.i)), nil
	case a.typ == TypeDecimal:
		return Decimal(new(apd.Decimal).Neg(a.d)), nil
	case a.typ == TypeDayTimeDuration:
		return DayTimeDuration(new(apd.Decimal).Neg(a.d)), nil
	case a.typ == TypeYearMonthDuration:
		return YearMonthDuration(-a.months), nil
	default:
		return nil, types.Errorf(types.ErrType, "unary minus is not defined for %s", a.typ)
	}
}

// Ceiling returns the smallest integral value not less than a.
func Ceiling(a *Atomic) *Atomic {
	if a.typ.IsInteger() {
		return a
	}
	var r apd.Decimal
	_, _ = exactContext.Ceil(&r, a.d)
	return Decimal(&r)
}

// Floor returns the largest integral value not greater than a.
func Floor(a *Atomic) *Atomic {
	if a.typ.IsInteger() {
		return a
	}
	var r apd.Decimal
	_, _ = exactContext.Floor(&r, a.d)
	return Decimal(&r)
}

// Round rounds a numeric item to the given number of fractional digits,
// with halves rounded away from zero. A negative precision rounds to a
// power of ten. Integer input yields an integer.
func Round(a *Atomic, precision int32) *Atomic {
	return roundWith(a, precision, apd.RoundHalfUp)
}

// RoundHalfToEven rounds like Round but sends halves to the even neighbour.
func RoundHalfToEven(a *Atomic, precision int32) *Atomic {
	return roundWith(a, precision, apd.RoundHalfEven)
}

func roundWith(a *Atomic, precision int32, mode apd.Rounder) *Atomic {
	if a.typ.IsInteger() && precision >= 0 {
		return a
	}
	c := *exactContext
	c.Rounding = mode
	var r apd.Decimal
	if _, err := c.Quantize(&r, a.Decimal(), -precision); err != nil {
		return a
	}
	if a.typ.IsInteger() {
		return Integer(truncToBigInt(&r))
	}
	return Decimal(&r)
}
