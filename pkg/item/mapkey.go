package item

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

type keyClass uint8

const (
	keyNone keyClass = iota
	keyBoolean
	keyNumeric
	keyString
	keyDate
	keyDateTime
	keyTime
	keyDayTime
	keyYearMonth
	keyBinary
	keyQName
)

// MapKey is the comparable projection of an atomic item used for map keys
// and value de-duplication. Numbers compare by value regardless of scale or
// integer/decimal kind. Temporal values compare by their UTC instant within
// their own kind. The string family, URIs and UUIDs share one key space.
type MapKey struct {
	class keyClass
	value string
}

// MapKey derives the key for a.
func (a *Atomic) MapKey() MapKey {
	switch {
	case a.typ == TypeBoolean:
		return MapKey{keyBoolean, a.String()}
	case a.typ.IsInteger():
		return MapKey{keyNumeric, a.i.String()}
	case a.typ == TypeDecimal:
		return MapKey{keyNumeric, formatDecimal(reduce(a.d))}
	case a.typ.IsStringLike():
		return MapKey{keyString, a.s}
	case a.typ == TypeDate:
		return MapKey{keyDate, a.t.UTC().Format(time.RFC3339Nano)}
	case a.typ == TypeDateTime:
		return MapKey{keyDateTime, a.t.UTC().Format(time.RFC3339Nano)}
	case a.typ == TypeTime:
		return MapKey{keyTime, a.t.UTC().Format(time.RFC3339Nano)}
	case a.typ == TypeDayTimeDuration:
		return MapKey{keyDayTime, formatDecimal(reduce(a.d))}
	case a.typ == TypeYearMonthDuration:
		return MapKey{keyYearMonth, strconv.FormatInt(a.months, 10)}
	case a.typ == TypeBase64Binary:
		return MapKey{keyBinary, string(a.bin)}
	case a.typ == TypeQName:
		return MapKey{keyQName, a.qn.String()}
	default:
		return MapKey{keyNone, a.String()}
	}
}

// Hash returns a 64-bit hash of the key. Equal keys have equal hashes.
func (k MapKey) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.Write([]byte{byte(k.class)})
	_, _ = d.WriteString(k.value)
	return d.Sum64()
}

// String renders the key for diagnostics.
func (k MapKey) String() string {
	return k.value
}
