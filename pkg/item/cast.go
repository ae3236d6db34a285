package item

import (
	"encoding/base64"
	"math/big"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

var (
	tokenPattern  = regexp.MustCompile(`^(\p{L}|_)(\p{L}|\p{N}|[.\-_])*$`)
	ncnamePattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}.\-_]*$`)
	emailPattern  = regexp.MustCompile(`^.+@.+$`)
	hostPattern   = regexp.MustCompile(`^\S+$`)
)

func castError(s string, target AtomicType, cause error) *types.Error {
	err := types.Errorf(types.ErrInvalidValueForCast, "cannot cast %q to %s", s, target)
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// Parse creates an item of the target type from its lexical form. Invalid
// input fails with FORG0001.
func Parse(target AtomicType, s string) (*Atomic, error) {
	switch target {
	case TypeAnyAtomic:
		return nil, types.Errorf(types.ErrCastAnyAtomic, "cannot cast to %s", target)
	case TypeString:
		return String(s), nil
	case TypeBoolean:
		switch strings.TrimSpace(s) {
		case "", "0", "false":
			return Boolean(false), nil
		default:
			return Boolean(true), nil
		}
	case TypeInteger, TypeNonNegativeInteger, TypePositiveInteger:
		i, err := ParseInteger(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return integerOf(target, i)
	case TypeDecimal:
		d, err := ParseDecimal(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return Decimal(d), nil
	case TypeDate:
		t, tz, err := ParseDate(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return Date(t, tz), nil
	case TypeDateTime:
		t, tz, err := ParseDateTime(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return DateTime(t, tz), nil
	case TypeTime:
		t, tz, err := ParseTime(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return Time(t, tz), nil
	case TypeDayTimeDuration:
		d, err := ParseDayTimeDuration(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return DayTimeDuration(d), nil
	case TypeYearMonthDuration:
		m, err := ParseYearMonthDuration(s)
		if err != nil {
			return nil, castError(s, target, err)
		}
		return YearMonthDuration(m), nil
	case TypeURI:
		return URI(strings.TrimSpace(s)), nil
	case TypeUUID:
		u, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, castError(s, target, err)
		}
		return UUID(u), nil
	case TypeBase64Binary:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, castError(s, target, err)
		}
		return Base64Binary(b), nil
	case TypeQName:
		q, ok := types.ParseEQName(strings.TrimSpace(s))
		if !ok {
			return nil, castError(s, target, nil)
		}
		return QNameValue(q), nil
	case TypeToken, TypeNCName, TypeEmailAddress, TypeHostname, TypeIPv4Address, TypeIPv6Address:
		return derivedString(target, s)
	default:
		return nil, types.Errorf(types.ErrCastUnknownType, "unknown atomic type %d", target)
	}
}

func derivedString(target AtomicType, s string) (*Atomic, error) {
	v := strings.TrimSpace(s)
	var ok bool
	switch target {
	case TypeToken:
		ok = tokenPattern.MatchString(v)
	case TypeNCName:
		ok = ncnamePattern.MatchString(v)
	case TypeEmailAddress:
		ok = emailPattern.MatchString(v)
	case TypeHostname:
		ok = hostPattern.MatchString(v)
	case TypeIPv4Address:
		addr, err := netip.ParseAddr(v)
		ok = err == nil && addr.Is4()
	case TypeIPv6Address:
		addr, err := netip.ParseAddr(v)
		ok = err == nil && addr.Is6()
	}
	if !ok {
		return nil, castError(s, target, nil)
	}
	return typed(target, v), nil
}

func integerOf(target AtomicType, i *big.Int) (*Atomic, error) {
	switch target {
	case TypeNonNegativeInteger:
		if i.Sign() < 0 {
			return nil, castError(i.String(), target, nil)
		}
	case TypePositiveInteger:
		if i.Sign() <= 0 {
			return nil, castError(i.String(), target, nil)
		}
	}
	return &Atomic{typ: target, i: i}, nil
}

// Cast converts an atomic item to the target type.
func Cast(a *Atomic, target AtomicType) (*Atomic, error) {
	if a.typ == target {
		return a, nil
	}
	src := a.typ
	switch {
	case target == TypeAnyAtomic:
		return nil, types.Errorf(types.ErrCastAnyAtomic, "cannot cast to %s", target)
	case src.IsStringLike():
		return Parse(target, a.s)
	case target.IsString() || target == TypeURI:
		return Parse(target, a.String())
	}

	switch target {
	case TypeBoolean:
		if src.IsNumeric() {
			return Boolean(a.Sign() != 0), nil
		}
	case TypeInteger, TypeNonNegativeInteger, TypePositiveInteger:
		switch {
		case src.IsInteger():
			return integerOf(target, a.i)
		case src == TypeDecimal:
			return integerOf(target, truncToBigInt(a.d))
		case src == TypeBoolean:
			if a.b {
				return integerOf(target, big.NewInt(1))
			}
			return integerOf(target, big.NewInt(0))
		}
	case TypeDecimal:
		switch {
		case src.IsInteger():
			return Decimal(decimalFromBigInt(a.i)), nil
		case src == TypeBoolean:
			if a.b {
				return Decimal(apd.New(1, 0)), nil
			}
			return Decimal(apd.New(0, 0)), nil
		}
	case TypeDate:
		if src == TypeDateTime {
			return Date(a.t, a.tz), nil
		}
	case TypeDateTime:
		if src == TypeDate {
			return DateTime(a.t, a.tz), nil
		}
	case TypeTime:
		if src == TypeDateTime {
			return Time(a.t, a.tz), nil
		}
	}
	return nil, types.Errorf(types.ErrType, "cannot cast %s to %s", src, target)
}

// Castable reports whether a can be cast to target.
func Castable(a *Atomic, target AtomicType) bool {
	_, err := Cast(a, target)
	return err == nil
}

var modelTypes = map[model.DataType]AtomicType{
	model.TypeString:          TypeString,
	model.TypeBoolean:         TypeBoolean,
	model.TypeInteger:         TypeInteger,
	model.TypeDecimal:         TypeDecimal,
	model.TypeDate:            TypeDate,
	model.TypeDateTime:        TypeDateTime,
	model.TypeTime:            TypeTime,
	model.TypeDayTimeDuration: TypeDayTimeDuration,
	model.TypeYMDuration:      TypeYearMonthDuration,
	model.TypeURI:             TypeURI,
	model.TypeUUID:            TypeUUID,
	model.TypeBase64:          TypeBase64Binary,
	model.TypeToken:           TypeToken,
}

// FromModelValue converts a flag or field value to an atomic item. Data
// types unknown to the engine are treated as strings.
func FromModelValue(v model.Value) (*Atomic, error) {
	t, ok := modelTypes[v.Type]
	if !ok {
		if t, ok = TypeByName(string(v.Type)); !ok {
			return String(v.Lexical), nil
		}
	}
	return Parse(t, v.Lexical)
}

// WithTimezone returns a copy of a temporal item moved to loc. A nil loc
// removes the timezone, keeping the wall-clock value.
func WithTimezone(a *Atomic, loc *time.Location) *Atomic {
	var t time.Time
	hasTZ := loc != nil
	switch {
	case loc == nil:
		t = wallClock(a.t, time.UTC)
	case a.tz:
		t = a.t.In(loc)
	default:
		t = wallClock(a.t, loc)
	}
	switch a.typ {
	case TypeDate:
		return Date(t, hasTZ)
	case TypeTime:
		return Time(t, hasTZ)
	default:
		return DateTime(t, hasTZ)
	}
}

// wallClock keeps the calendar fields of t and attaches loc.
func wallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
