package item

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

var (
	datePattern = regexp.MustCompile(`^(\d{4,})-(\d{2})-(\d{2})$`)
	timePattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?$`)

	dayTimePattern   = regexp.MustCompile(`^(-)?P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	yearMonthPattern = regexp.MustCompile(`^(-)?P(?:(\d+)Y)?(?:(\d+)M)?$`)

	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// referenceDate anchors time values so they can be compared as instants.
var referenceDate = time.Date(1972, time.December, 31, 0, 0, 0, 0, time.UTC)

func onReferenceDate(t time.Time) time.Time {
	return time.Date(1972, time.December, 31, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// splitTimezone separates a trailing "Z" or ±hh:mm designator.
func splitTimezone(s string) (main, tz string) {
	if strings.HasSuffix(s, "Z") {
		return s[:len(s)-1], "Z"
	}
	if len(s) >= 6 {
		tail := s[len(s)-6:]
		if (tail[0] == '+' || tail[0] == '-') && tail[3] == ':' {
			return s[:len(s)-6], tail
		}
	}
	return s, ""
}

// parseTimezone converts a designator to a location. An empty designator
// yields UTC.
func parseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "Z" {
		return time.UTC, nil
	}
	hh, err1 := strconv.Atoi(tz[1:3])
	mm, err2 := strconv.Atoi(tz[4:6])
	if err1 != nil || err2 != nil || hh > 14 || mm > 59 || (hh == 14 && mm != 0) {
		return nil, fmt.Errorf("invalid timezone %q", tz)
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return FixedZone(offset), nil
}

// ParseTimezone parses a timezone designator: "Z" or ±hh:mm.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "Z" {
		return time.UTC, nil
	}
	if len(tz) != 6 || (tz[0] != '+' && tz[0] != '-') || tz[3] != ':' {
		return nil, fmt.Errorf("invalid timezone %q", tz)
	}
	return parseTimezone(tz)
}

// FixedZone returns a location with the given offset in seconds. A zero
// offset yields UTC.
func FixedZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

func parseDateParts(s string) (year, month, day int, ok bool) {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	day, _ = strconv.Atoi(m[3])
	if year < 1 || month < 1 || month > 12 || day < 1 || day > daysIn(year, time.Month(month)) {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func parseTimeParts(s string) (hour, minute, second, nanos int, ok bool) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	second, _ = strconv.Atoi(m[3])
	if frac := m[4]; frac != "" {
		digits := frac[1:]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		digits += strings.Repeat("0", 9-len(digits))
		nanos, _ = strconv.Atoi(digits)
	}
	if hour == 24 {
		return hour, minute, second, nanos, minute == 0 && second == 0 && nanos == 0
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, 0, false
	}
	return hour, minute, second, nanos, true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a date with an optional timezone.
func ParseDate(s string) (time.Time, bool, error) {
	main, tz := splitTimezone(strings.TrimSpace(s))
	loc, err := parseTimezone(tz)
	if err != nil {
		return time.Time{}, false, err
	}
	y, m, d, ok := parseDateParts(main)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), tz != "", nil
}

// ParseDateTime parses a date-time with an optional timezone.
func ParseDateTime(s string) (time.Time, bool, error) {
	main, tz := splitTimezone(strings.TrimSpace(s))
	loc, err := parseTimezone(tz)
	if err != nil {
		return time.Time{}, false, err
	}
	datePart, timePart, found := strings.Cut(main, "T")
	if !found {
		return time.Time{}, false, fmt.Errorf("invalid date-time %q", s)
	}
	y, mo, d, ok := parseDateParts(datePart)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid date-time %q", s)
	}
	h, mi, sec, ns, ok := parseTimeParts(timePart)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid date-time %q", s)
	}
	// 24:00:00 is the first instant of the following day
	return time.Date(y, time.Month(mo), d, h, mi, sec, ns, loc), tz != "", nil
}

// ParseTime parses a time with an optional timezone.
func ParseTime(s string) (time.Time, bool, error) {
	main, tz := splitTimezone(strings.TrimSpace(s))
	loc, err := parseTimezone(tz)
	if err != nil {
		return time.Time{}, false, err
	}
	h, mi, sec, ns, ok := parseTimeParts(main)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid time %q", s)
	}
	if h == 24 {
		h = 0
	}
	return time.Date(1972, time.December, 31, h, mi, sec, ns, loc), tz != "", nil
}

func formatTimezone(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 {
		return "Z"
	}
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, offset%3600/60)
}

func formatFraction(ns int) string {
	if ns == 0 {
		return ""
	}
	return strings.TrimRight(fmt.Sprintf(".%09d", ns), "0")
}

func formatDate(t time.Time, hasTZ bool) string {
	s := fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	if hasTZ {
		s += formatTimezone(t)
	}
	return s
}

func formatClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second()) + formatFraction(t.Nanosecond())
}

func formatDateTime(t time.Time, hasTZ bool) string {
	s := fmt.Sprintf("%04d-%02d-%02dT", t.Year(), int(t.Month()), t.Day()) + formatClock(t)
	if hasTZ {
		s += formatTimezone(t)
	}
	return s
}

func formatTime(t time.Time, hasTZ bool) string {
	s := formatClock(t)
	if hasTZ {
		s += formatTimezone(t)
	}
	return s
}

// maxDurationSeconds bounds day-time durations to a signed 64-bit count of
// seconds.
var maxDurationSeconds = apd.New(math.MaxInt64, 0)

// maxDurationMonths bounds year-month durations to a signed 32-bit count of
// years.
const maxDurationMonths = int64(math.MaxInt32)*12 + 11

// ParseDayTimeDuration parses a day-time duration into seconds.
func ParseDayTimeDuration(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	m := dayTimePattern.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "") || strings.HasSuffix(s, "T") {
		return nil, fmt.Errorf("invalid day-time duration %q", s)
	}

	whole := new(big.Int)
	add := func(digits string, factor int64) {
		if digits == "" {
			return
		}
		v, _ := new(big.Int).SetString(digits, 10)
		whole.Add(whole, v.Mul(v, big.NewInt(factor)))
	}
	add(m[2], 86400)
	add(m[3], 3600)
	add(m[4], 60)

	secs := decimalFromBigInt(whole)
	if m[5] != "" {
		frac, _, err := apd.NewFromString(m[5])
		if err != nil {
			return nil, err
		}
		if _, err := exactContext.Add(secs, secs, frac); err != nil {
			return nil, err
		}
	}
	if m[1] == "-" && !secs.IsZero() {
		secs.Negative = true
	}
	if new(apd.Decimal).Abs(secs).Cmp(maxDurationSeconds) > 0 {
		return nil, fmt.Errorf("day-time duration %q out of range", s)
	}
	return secs, nil
}

// ParseYearMonthDuration parses a year-month duration into months.
func ParseYearMonthDuration(s string) (int64, error) {
	s = strings.TrimSpace(s)
	m := yearMonthPattern.FindStringSubmatch(s)
	if m == nil || (m[2] == "" && m[3] == "") {
		return 0, fmt.Errorf("invalid year-month duration %q", s)
	}
	var years, months int64
	var err error
	if m[2] != "" {
		if years, err = strconv.ParseInt(m[2], 10, 64); err != nil || years > math.MaxInt32 {
			return 0, fmt.Errorf("year-month duration %q out of range", s)
		}
	}
	if m[3] != "" {
		if months, err = strconv.ParseInt(m[3], 10, 64); err != nil || months > maxDurationMonths {
			return 0, fmt.Errorf("year-month duration %q out of range", s)
		}
	}
	total := years*12 + months
	if total > maxDurationMonths {
		return 0, fmt.Errorf("year-month duration %q out of range", s)
	}
	if m[1] == "-" {
		total = -total
	}
	return total, nil
}

func formatYearMonthDuration(months int64) string {
	if months == 0 {
		return "P0M"
	}
	var sb strings.Builder
	if months < 0 {
		sb.WriteByte('-')
		months = -months
	}
	sb.WriteByte('P')
	if y := months / 12; y != 0 {
		sb.WriteString(strconv.FormatInt(y, 10))
		sb.WriteByte('Y')
	}
	if mo := months % 12; mo != 0 {
		sb.WriteString(strconv.FormatInt(mo, 10))
		sb.WriteByte('M')
	}
	return sb.String()
}

func formatDayTimeDuration(secs *apd.Decimal) string {
	if secs.IsZero() {
		return "PT0S"
	}
	var sb strings.Builder
	if secs.Negative {
		sb.WriteByte('-')
	}
	sb.WriteByte('P')

	abs := new(apd.Decimal).Abs(secs)
	whole := truncToBigInt(abs)
	frac := new(apd.Decimal)
	_, _ = exactContext.Sub(frac, abs, decimalFromBigInt(whole))

	rest := new(big.Int)
	days, rest := new(big.Int).QuoRem(whole, big.NewInt(86400), rest)
	hours, rest := new(big.Int).QuoRem(rest, big.NewInt(3600), new(big.Int))
	minutes, seconds := new(big.Int).QuoRem(rest, big.NewInt(60), new(big.Int))

	if days.Sign() != 0 {
		sb.WriteString(days.String())
		sb.WriteByte('D')
	}
	if hours.Sign() == 0 && minutes.Sign() == 0 && seconds.Sign() == 0 && frac.IsZero() {
		return sb.String()
	}
	sb.WriteByte('T')
	if hours.Sign() != 0 {
		sb.WriteString(hours.String())
		sb.WriteByte('H')
	}
	if minutes.Sign() != 0 {
		sb.WriteString(minutes.String())
		sb.WriteByte('M')
	}
	if seconds.Sign() != 0 || !frac.IsZero() {
		sec := decimalFromBigInt(seconds)
		_, _ = exactContext.Add(sec, sec, frac)
		sb.WriteString(formatDecimal(reduce(sec)))
		sb.WriteByte('S')
	}
	return sb.String()
}

// ParseInteger parses an integer lexical form.
func ParseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !integerPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	i, ok := new(big.Int).SetString(strings.TrimPrefix(s, "+"), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}

// ParseDecimal parses a decimal lexical form, preserving its scale.
func ParseDecimal(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid decimal %q", s)
	}
	d, _, err := apd.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d, nil
}

func formatDecimal(d *apd.Decimal) string {
	if d.IsZero() && d.Negative {
		d = new(apd.Decimal).Abs(d)
	}
	return d.Text('f')
}
