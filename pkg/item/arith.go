package item

import (
	"math"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/types"
)

// ArithOp is a binary arithmetic operator.
type ArithOp uint8

const (
	OpAdd ArithOp = iota + 1
	OpSubtract
	OpMultiply
	OpDivide
	OpIntegerDivide
	OpMod
)

// String returns the operator as written in an expression.
func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "div"
	case OpIntegerDivide:
		return "idiv"
	case OpMod:
		return "mod"
	default:
		return "?"
	}
}

// Arithmetic applies op to two atomic operands. Temporal values without a
// timezone are interpreted in implicit; nil means UTC.
func Arithmetic(op ArithOp, a, b *Atomic, implicit *time.Location) (*Atomic, error) {
	if implicit == nil {
		implicit = time.UTC
	}
	ta, tb := a.typ, b.typ
	switch {
	case ta.IsNumeric() && tb.IsNumeric():
		return numericArith(op, a, b)

	case ta == TypeYearMonthDuration && tb == TypeYearMonthDuration:
		switch op {
		case OpAdd:
			return monthsResult(new(big.Int).Add(big.NewInt(a.months), big.NewInt(b.months)))
		case OpSubtract:
			return monthsResult(new(big.Int).Sub(big.NewInt(a.months), big.NewInt(b.months)))
		case OpDivide:
			return divideDecimals(apd.New(a.months, 0), apd.New(b.months, 0))
		}
	case ta == TypeDayTimeDuration && tb == TypeDayTimeDuration:
		switch op {
		case OpAdd:
			return secondsResult(exactContext.Add, a.d, b.d)
		case OpSubtract:
			return secondsResult(exactContext.Sub, a.d, b.d)
		case OpDivide:
			return divideDecimals(a.d, b.d)
		}

	case ta == TypeYearMonthDuration && tb.IsNumeric():
		switch op {
		case OpMultiply:
			return scaleMonths(a.months, b.Decimal(), false)
		case OpDivide:
			return scaleMonths(a.months, b.Decimal(), true)
		}
	case ta.IsNumeric() && tb == TypeYearMonthDuration && op == OpMultiply:
		return scaleMonths(b.months, a.Decimal(), false)
	case ta == TypeDayTimeDuration && tb.IsNumeric():
		switch op {
		case OpMultiply:
			return secondsResult(decimalContext.Mul, a.d, b.Decimal())
		case OpDivide:
			if b.Sign() == 0 {
				return nil, divisionByZero()
			}
			return secondsResult(decimalContext.Quo, a.d, b.Decimal())
		}
	case ta.IsNumeric() && tb == TypeDayTimeDuration && op == OpMultiply:
		return secondsResult(decimalContext.Mul, b.d, a.Decimal())

	case (ta == TypeDate || ta == TypeDateTime) && tb == TypeYearMonthDuration:
		switch op {
		case OpAdd:
			return addMonthsTo(a, b.months)
		case OpSubtract:
			return addMonthsTo(a, -b.months)
		}
	case ta == TypeYearMonthDuration && (tb == TypeDate || tb == TypeDateTime) && op == OpAdd:
		return addMonthsTo(b, a.months)

	case ta.IsTemporal() && tb == TypeDayTimeDuration:
		switch op {
		case OpAdd:
			return addSecondsTo(a, b.d)
		case OpSubtract:
			return addSecondsTo(a, new(apd.Decimal).Neg(b.d))
		}
	case ta == TypeDayTimeDuration && tb.IsTemporal() && op == OpAdd:
		return addSecondsTo(b, a.d)

	case ta.IsTemporal() && ta == tb && op == OpSubtract:
		return DayTimeDuration(secondsBetween(instant(a, implicit), instant(b, implicit))), nil
	}
	return nil, types.Errorf(types.ErrOperationNotSupported,
		"operator %s is not supported for %s and %s", op, ta, tb)
}

func divisionByZero() *types.Error {
	return types.Errorf(types.ErrDivisionByZero, "division by zero")
}

func numericArith(op ArithOp, a, b *Atomic) (*Atomic, error) {
	bothInt := a.typ.IsInteger() && b.typ.IsInteger()
	if bothInt {
		x, y := a.i, b.i
		switch op {
		case OpAdd:
			return Integer(new(big.Int).Add(x, y)), nil
		case OpSubtract:
			return Integer(new(big.Int).Sub(x, y)), nil
		case OpMultiply:
			return Integer(new(big.Int).Mul(x, y)), nil
		case OpIntegerDivide:
			if y.Sign() == 0 {
				return nil, divisionByZero()
			}
			return Integer(new(big.Int).Quo(x, y)), nil
		case OpMod:
			if y.Sign() == 0 {
				return nil, divisionByZero()
			}
			return Integer(new(big.Int).Rem(x, y)), nil
		}
	}

	x, y := a.Decimal(), b.Decimal()
	var r apd.Decimal
	var err error
	switch op {
	case OpAdd:
		_, err = exactContext.Add(&r, x, y)
	case OpSubtract:
		_, err = exactContext.Sub(&r, x, y)
	case OpMultiply:
		_, err = exactContext.Mul(&r, x, y)
	case OpDivide:
		return divideDecimals(x, y)
	case OpIntegerDivide:
		if y.IsZero() {
			return nil, divisionByZero()
		}
		if _, err = decimalContext.QuoInteger(&r, x, y); err != nil {
			return nil, types.Errorf(types.ErrNumericOverflow, "integer division overflow").WithCause(err)
		}
		return Integer(truncToBigInt(&r)), nil
	case OpMod:
		if y.IsZero() {
			return nil, divisionByZero()
		}
		_, err = decimalContext.Rem(&r, x, y)
	default:
		return nil, types.Errorf(types.ErrOperationNotSupported, "unknown operator %d", op)
	}
	if err != nil {
		return nil, types.Errorf(types.ErrNumericOverflow, "numeric operation %s overflowed", op).WithCause(err)
	}
	return Decimal(&r), nil
}

func divideDecimals(x, y *apd.Decimal) (*Atomic, error) {
	if y.IsZero() {
		return nil, divisionByZero()
	}
	var r apd.Decimal
	if _, err := decimalContext.Quo(&r, x, y); err != nil {
		return nil, types.Errorf(types.ErrNumericOverflow, "division overflowed").WithCause(err)
	}
	// drop the padding zeros Quo adds, keeping at least the operands' scale
	q := reduce(&r)
	if want := max(scale(x), scale(y)); q.Exponent > -want {
		if _, err := exactContext.Quantize(q, q, -want); err != nil {
			return nil, types.Errorf(types.ErrNumericOverflow, "division overflowed").WithCause(err)
		}
	}
	return Decimal(q), nil
}

func durationOverflow() *types.Error {
	return types.Errorf(types.ErrDurationOverflow, "duration overflow or underflow")
}

func monthsResult(m *big.Int) (*Atomic, error) {
	if !m.IsInt64() || abs64(m.Int64()) > maxDurationMonths {
		return nil, durationOverflow()
	}
	return YearMonthDuration(m.Int64()), nil
}

func abs64(n int64) int64 {
	if n < 0 {
		if n == math.MinInt64 {
			return math.MaxInt64
		}
		return -n
	}
	return n
}

func scaleMonths(months int64, factor *apd.Decimal, divide bool) (*Atomic, error) {
	var r apd.Decimal
	var err error
	if divide {
		if factor.IsZero() {
			return nil, divisionByZero()
		}
		_, err = decimalContext.Quo(&r, apd.New(months, 0), factor)
	} else {
		_, err = decimalContext.Mul(&r, apd.New(months, 0), factor)
	}
	if err != nil {
		return nil, durationOverflow()
	}
	var rounded apd.Decimal
	if _, err := exactContext.Quantize(&rounded, &r, 0); err != nil {
		return nil, durationOverflow()
	}
	return monthsResult(truncToBigInt(&rounded))
}

func secondsResult(fn func(d, x, y *apd.Decimal) (apd.Condition, error), x, y *apd.Decimal) (*Atomic, error) {
	var r apd.Decimal
	if _, err := fn(&r, x, y); err != nil {
		return nil, durationOverflow()
	}
	if new(apd.Decimal).Abs(&r).Cmp(maxDurationSeconds) > 0 {
		return nil, durationOverflow()
	}
	return DayTimeDuration(&r), nil
}

// instant returns the absolute time of a temporal value, placing values
// without a timezone in implicit.
func instant(a *Atomic, implicit *time.Location) time.Time {
	if a.tz {
		return a.t
	}
	return wallClock(a.t, implicit)
}

func secondsBetween(x, y time.Time) *apd.Decimal {
	secs := x.Unix() - y.Unix()
	nanos := int64(x.Nanosecond() - y.Nanosecond())
	r := apd.New(secs, 0)
	if nanos != 0 {
		_, _ = exactContext.Add(r, r, apd.New(nanos, -9))
	}
	return r
}

func addMonthsTo(a *Atomic, months int64) (*Atomic, error) {
	t := a.t
	total := int64(t.Year())*12 + int64(t.Month()-1) + months
	year := floorDiv(total, 12)
	month := time.Month(total-year*12) + 1
	if year < 1 || year > 999999 {
		return nil, types.Errorf(types.ErrDateTimeOverflow, "date overflow adding %d months", months)
	}
	day := t.Day()
	if last := daysIn(int(year), month); day > last {
		day = last
	}
	r := time.Date(int(year), month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if a.typ == TypeDate {
		return Date(r, a.tz), nil
	}
	return DateTime(r, a.tz), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func addSecondsTo(a *Atomic, secs *apd.Decimal) (*Atomic, error) {
	whole := truncToBigInt(secs)
	frac := new(apd.Decimal)
	_, _ = exactContext.Sub(frac, secs, decimalFromBigInt(whole))

	const secsPerDay = 86400
	days, rem := new(big.Int).QuoRem(whole, big.NewInt(secsPerDay), new(big.Int))
	if !days.IsInt64() || abs64(days.Int64()) > 366*1000000 {
		return nil, types.Errorf(types.ErrDateTimeOverflow, "date overflow adding %s seconds", secs.Text('f'))
	}

	nanos := new(apd.Decimal)
	_, _ = exactContext.Mul(nanos, frac, apd.New(1, 9))
	ns := truncToBigInt(nanos).Int64()

	t := a.t.AddDate(0, 0, int(days.Int64())).
		Add(time.Duration(rem.Int64()) * time.Second).
		Add(time.Duration(ns))
	if t.Year() < 1 || t.Year() > 999999 {
		return nil, types.Errorf(types.ErrDateTimeOverflow, "date overflow")
	}
	switch a.typ {
	case TypeDate:
		return Date(t, a.tz), nil
	case TypeTime:
		return Time(t, a.tz), nil
	default:
		return DateTime(t, a.tz), nil
	}
}
