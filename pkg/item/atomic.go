package item

import (
	"encoding/base64"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/wandmagic/metapath/pkg/types"
)

// AtomicType identifies the type of an atomic item.
type AtomicType uint8

const (
	TypeAnyAtomic AtomicType = iota
	TypeBoolean
	TypeInteger
	TypeNonNegativeInteger
	TypePositiveInteger
	TypeDecimal
	TypeString
	TypeToken
	TypeNCName
	TypeEmailAddress
	TypeHostname
	TypeIPv4Address
	TypeIPv6Address
	TypeDate
	TypeDateTime
	TypeTime
	TypeDayTimeDuration
	TypeYearMonthDuration
	TypeURI
	TypeUUID
	TypeBase64Binary
	TypeQName
)

var atomicTypeNames = [...]string{
	TypeAnyAtomic:          "any-atomic-type",
	TypeBoolean:            "boolean",
	TypeInteger:            "integer",
	TypeNonNegativeInteger: "non-negative-integer",
	TypePositiveInteger:    "positive-integer",
	TypeDecimal:            "decimal",
	TypeString:             "string",
	TypeToken:              "token",
	TypeNCName:             "ncname",
	TypeEmailAddress:       "email-address",
	TypeHostname:           "hostname",
	TypeIPv4Address:        "ip-v4-address",
	TypeIPv6Address:        "ip-v6-address",
	TypeDate:               "date",
	TypeDateTime:           "date-time",
	TypeTime:               "time",
	TypeDayTimeDuration:    "day-time-duration",
	TypeYearMonthDuration:  "year-month-duration",
	TypeURI:                "uri",
	TypeUUID:               "uuid",
	TypeBase64Binary:       "base64",
	TypeQName:              "qname",
}

// Name returns the Metaschema data type name.
func (t AtomicType) Name() string {
	if int(t) < len(atomicTypeNames) {
		return atomicTypeNames[t]
	}
	return "unknown"
}

func (t AtomicType) String() string { return t.Name() }

// TypeByName resolves a Metaschema data type name. The XML Schema names of
// the common types are accepted as aliases.
func TypeByName(name string) (AtomicType, bool) {
	for t, n := range atomicTypeNames {
		if n == name && AtomicType(t) != TypeAnyAtomic {
			return AtomicType(t), true
		}
	}
	switch name {
	case "dateTime":
		return TypeDateTime, true
	case "dayTimeDuration":
		return TypeDayTimeDuration, true
	case "yearMonthDuration":
		return TypeYearMonthDuration, true
	case "anyURI":
		return TypeURI, true
	case "base64Binary":
		return TypeBase64Binary, true
	case "QName":
		return TypeQName, true
	case "nonNegativeInteger":
		return TypeNonNegativeInteger, true
	case "positiveInteger":
		return TypePositiveInteger, true
	case "NCName":
		return TypeNCName, true
	}
	return 0, false
}

// IsNumeric reports whether t is integer, one of its subtypes, or decimal.
func (t AtomicType) IsNumeric() bool {
	return t == TypeDecimal || t.IsInteger()
}

// IsInteger reports whether t is integer or one of its subtypes.
func (t AtomicType) IsInteger() bool {
	switch t {
	case TypeInteger, TypeNonNegativeInteger, TypePositiveInteger:
		return true
	default:
		return false
	}
}

// IsString reports whether t is string or one of its derived types.
func (t AtomicType) IsString() bool {
	switch t {
	case TypeString, TypeToken, TypeNCName, TypeEmailAddress, TypeHostname, TypeIPv4Address, TypeIPv6Address:
		return true
	default:
		return false
	}
}

// IsStringLike reports whether values of t compare by their string value:
// the string family plus URI and UUID.
func (t AtomicType) IsStringLike() bool {
	return t.IsString() || t == TypeURI || t == TypeUUID
}

// IsTemporal reports whether t is date, dateTime or time.
func (t AtomicType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime || t == TypeTime
}

// IsDuration reports whether t is one of the duration types.
func (t AtomicType) IsDuration() bool {
	return t == TypeDayTimeDuration || t == TypeYearMonthDuration
}

// DerivesFrom reports whether a value of type t is also an instance of base.
func (t AtomicType) DerivesFrom(base AtomicType) bool {
	switch {
	case t == base, base == TypeAnyAtomic:
		return true
	case base == TypeInteger:
		return t.IsInteger()
	case base == TypeDecimal:
		return t.IsNumeric()
	case base == TypeString:
		return t.IsString()
	case base == TypeNonNegativeInteger:
		return t == TypePositiveInteger
	case base == TypeToken:
		return t == TypeNCName
	default:
		return false
	}
}

// Atomic is an atomic item. The populated field depends on the type:
//
//	boolean                   b
//	integer family            i
//	decimal, day-time         d (day-time durations hold seconds)
//	string family, uri, uuid  s
//	date, date-time, time     t, tz
//	year-month duration       months
//	base64                    bin
//	qname                     qn
type Atomic struct {
	typ    AtomicType
	b      bool
	i      *big.Int
	d      *apd.Decimal
	s      string
	t      time.Time
	tz     bool
	months int64
	bin    []byte
	qn     types.QName
}

// ItemKind implements Item.
func (*Atomic) ItemKind() Kind { return KindAtomic }

// Type returns the atomic type.
func (a *Atomic) Type() AtomicType { return a.typ }

var (
	trueItem  = &Atomic{typ: TypeBoolean, b: true}
	falseItem = &Atomic{typ: TypeBoolean, b: false}
)

// Boolean returns the boolean item for b.
func Boolean(b bool) *Atomic {
	if b {
		return trueItem
	}
	return falseItem
}

// String creates a string item.
func String(s string) *Atomic {
	return &Atomic{typ: TypeString, s: s}
}

// Integer creates an integer item.
func Integer(i *big.Int) *Atomic {
	return &Atomic{typ: TypeInteger, i: i}
}

// Int creates an integer item from an int64.
func Int(n int64) *Atomic {
	return Integer(big.NewInt(n))
}

// Decimal creates a decimal item.
func Decimal(d *apd.Decimal) *Atomic {
	return &Atomic{typ: TypeDecimal, d: d}
}

// Date creates a date item. When hasTZ is false the value carries no
// timezone and t holds the wall-clock date in UTC.
func Date(t time.Time, hasTZ bool) *Atomic {
	y, m, d := t.Date()
	return &Atomic{typ: TypeDate, t: time.Date(y, m, d, 0, 0, 0, 0, t.Location()), tz: hasTZ}
}

// DateTime creates a date-time item.
func DateTime(t time.Time, hasTZ bool) *Atomic {
	return &Atomic{typ: TypeDateTime, t: t, tz: hasTZ}
}

// Time creates a time item. Only the clock and location of t are used.
func Time(t time.Time, hasTZ bool) *Atomic {
	return &Atomic{typ: TypeTime, t: onReferenceDate(t), tz: hasTZ}
}

// DayTimeDuration creates a day-time duration of the given seconds.
func DayTimeDuration(seconds *apd.Decimal) *Atomic {
	return &Atomic{typ: TypeDayTimeDuration, d: seconds}
}

// DayTimeDurationOf converts a time.Duration.
func DayTimeDurationOf(d time.Duration) *Atomic {
	return DayTimeDuration(apd.New(int64(d), -9))
}

// YearMonthDuration creates a year-month duration of the given months.
func YearMonthDuration(months int64) *Atomic {
	return &Atomic{typ: TypeYearMonthDuration, months: months}
}

// URI creates a URI item.
func URI(s string) *Atomic {
	return &Atomic{typ: TypeURI, s: s}
}

// UUID creates a UUID item.
func UUID(u uuid.UUID) *Atomic {
	return &Atomic{typ: TypeUUID, s: u.String()}
}

// Base64Binary creates a base64 binary item.
func Base64Binary(b []byte) *Atomic {
	return &Atomic{typ: TypeBase64Binary, bin: b}
}

// QNameValue creates a QName item.
func QNameValue(q types.QName) *Atomic {
	return &Atomic{typ: TypeQName, qn: q}
}

// typed creates a string-valued item of a derived type without validation.
func typed(t AtomicType, s string) *Atomic {
	return &Atomic{typ: t, s: s}
}

// Bool returns the value of a boolean item.
func (a *Atomic) Bool() bool { return a.b }

// BigInt returns the value of an integer item.
func (a *Atomic) BigInt() *big.Int { return a.i }

// Decimal returns the numeric value as a decimal. Integers are converted;
// day-time durations return their seconds.
func (a *Atomic) Decimal() *apd.Decimal {
	if a.typ.IsInteger() {
		return decimalFromBigInt(a.i)
	}
	return a.d
}

// Time returns the value of a temporal item.
func (a *Atomic) Time() time.Time { return a.t }

// HasTimezone reports whether a temporal item carries an explicit timezone.
func (a *Atomic) HasTimezone() bool { return a.tz }

// Months returns the value of a year-month duration.
func (a *Atomic) Months() int64 { return a.months }

// Bytes returns the value of a base64 item.
func (a *Atomic) Bytes() []byte { return a.bin }

// QName returns the value of a QName item.
func (a *Atomic) QName() types.QName { return a.qn }

// String returns the canonical lexical form.
func (a *Atomic) String() string {
	switch a.typ {
	case TypeBoolean:
		if a.b {
			return "true"
		}
		return "false"
	case TypeInteger, TypeNonNegativeInteger, TypePositiveInteger:
		return a.i.String()
	case TypeDecimal:
		return formatDecimal(a.d)
	case TypeDate:
		return formatDate(a.t, a.tz)
	case TypeDateTime:
		return formatDateTime(a.t, a.tz)
	case TypeTime:
		return formatTime(a.t, a.tz)
	case TypeDayTimeDuration:
		return formatDayTimeDuration(a.d)
	case TypeYearMonthDuration:
		return formatYearMonthDuration(a.months)
	case TypeBase64Binary:
		return base64.StdEncoding.EncodeToString(a.bin)
	case TypeQName:
		return a.qn.String()
	default:
		return a.s
	}
}

// Equal reports whether two atomic items are the same value, using the
// map-key notion of sameness.
func (a *Atomic) Equal(b *Atomic) bool {
	return a.MapKey() == b.MapKey()
}
