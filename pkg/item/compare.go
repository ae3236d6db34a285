package item

import (
	"bytes"
	"strings"
	"time"

	"github.com/wandmagic/metapath/pkg/types"
)

// CompareOp is a comparison operator.
type CompareOp uint8

const (
	OpEq CompareOp = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// ValueName returns the value-comparison keyword for op.
func (op CompareOp) ValueName() string {
	switch op {
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	default:
		return "?"
	}
}

// String returns the general-comparison symbol for op.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

func (op CompareOp) ordering() bool {
	return op != OpEq && op != OpNe
}

func (op CompareOp) test(cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// CompareValues compares two atomic items. When either operand is in the
// string family, URI or UUID, both are compared by string value. Otherwise
// the operands must be of comparable types; the result orders a against b.
// ordered is false for types that only support equality.
func CompareValues(a, b *Atomic, implicit *time.Location) (cmp int, ordered bool, err error) {
	if implicit == nil {
		implicit = time.UTC
	}
	ta, tb := a.typ, b.typ
	switch {
	case ta.IsStringLike() || tb.IsStringLike():
		return strings.Compare(a.String(), b.String()), true, nil
	case ta.IsNumeric() && tb.IsNumeric():
		return compareNumeric(a, b), true, nil
	case ta == TypeBoolean && tb == TypeBoolean:
		return compareBool(a.b, b.b), true, nil
	case ta.IsTemporal() && ta == tb:
		return instant(a, implicit).Compare(instant(b, implicit)), true, nil
	case ta == TypeDayTimeDuration && tb == TypeDayTimeDuration:
		return a.d.Cmp(b.d), true, nil
	case ta == TypeYearMonthDuration && tb == TypeYearMonthDuration:
		return compareInt64(a.months, b.months), true, nil
	case ta.IsDuration() && tb.IsDuration():
		// mixed duration kinds are equal only when both are zero
		if a.Sign() == 0 && b.Sign() == 0 {
			return 0, false, nil
		}
		return 1, false, nil
	case ta == TypeBase64Binary && tb == TypeBase64Binary:
		return bytes.Compare(a.bin, b.bin), true, nil
	case ta == TypeQName && tb == TypeQName:
		if a.qn == b.qn {
			return 0, false, nil
		}
		return 1, false, nil
	}
	return 0, false, types.Errorf(types.ErrType, "cannot compare %s with %s", ta, tb)
}

// ValueCompare applies a comparison operator to two atomic items.
func ValueCompare(op CompareOp, a, b *Atomic, implicit *time.Location) (bool, error) {
	cmp, ordered, err := CompareValues(a, b, implicit)
	if err != nil {
		return false, err
	}
	if op.ordering() && !ordered {
		return false, types.Errorf(types.ErrType, "operator %s is not defined for %s and %s", op.ValueName(), a.typ, b.typ)
	}
	return op.test(cmp), nil
}

func compareNumeric(a, b *Atomic) int {
	if a.typ.IsInteger() && b.typ.IsInteger() {
		return a.i.Cmp(b.i)
	}
	return a.Decimal().Cmp(b.Decimal())
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
