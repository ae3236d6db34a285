package builtin

import (
	"context"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func datetimeFunctions() []*functions.Function {
	return []*functions.Function{
		mp("current-dateTime", "() as date-time", dyn, fnCurrentDateTime),
		mp("current-date", "() as date", dyn, fnCurrentDate),
		mp("current-time", "() as time", dyn, fnCurrentTime),
		mp("implicit-timezone", "() as day-time-duration", dyn, fnImplicitTimezone),
		mp("dateTime", "(date?, time?) as date-time?", det, fnDateTime),

		mp("adjust-dateTime-to-timezone", "(date-time?) as date-time?", dyn, fnAdjustTimezone),
		mp("adjust-dateTime-to-timezone", "(date-time?, day-time-duration?) as date-time?", det, fnAdjustTimezone),
		mp("adjust-date-to-timezone", "(date?) as date?", dyn, fnAdjustTimezone),
		mp("adjust-date-to-timezone", "(date?, day-time-duration?) as date?", det, fnAdjustTimezone),
		mp("adjust-time-to-timezone", "(time?) as time?", dyn, fnAdjustTimezone),
		mp("adjust-time-to-timezone", "(time?, day-time-duration?) as time?", det, fnAdjustTimezone),

		mp("year-from-dateTime", "(date-time?) as integer?", det, temporalPart(year)),
		mp("month-from-dateTime", "(date-time?) as integer?", det, temporalPart(month)),
		mp("day-from-dateTime", "(date-time?) as integer?", det, temporalPart(day)),
		mp("hours-from-dateTime", "(date-time?) as integer?", det, temporalPart(hours)),
		mp("minutes-from-dateTime", "(date-time?) as integer?", det, temporalPart(minutes)),
		mp("seconds-from-dateTime", "(date-time?) as decimal?", det, temporalPart(seconds)),
		mp("timezone-from-dateTime", "(date-time?) as day-time-duration?", det, temporalPart(timezone)),
		mp("year-from-date", "(date?) as integer?", det, temporalPart(year)),
		mp("month-from-date", "(date?) as integer?", det, temporalPart(month)),
		mp("day-from-date", "(date?) as integer?", det, temporalPart(day)),
		mp("timezone-from-date", "(date?) as day-time-duration?", det, temporalPart(timezone)),
		mp("hours-from-time", "(time?) as integer?", det, temporalPart(hours)),
		mp("minutes-from-time", "(time?) as integer?", det, temporalPart(minutes)),
		mp("seconds-from-time", "(time?) as decimal?", det, temporalPart(seconds)),
		mp("timezone-from-time", "(time?) as day-time-duration?", det, temporalPart(timezone)),

		mp("years-from-duration", "(any-atomic-type?) as integer?", det, durationPart(years)),
		mp("months-from-duration", "(any-atomic-type?) as integer?", det, durationPart(months)),
		mp("days-from-duration", "(any-atomic-type?) as integer?", det, durationPart(days)),
		mp("hours-from-duration", "(any-atomic-type?) as integer?", det, durationPart(hoursOf)),
		mp("minutes-from-duration", "(any-atomic-type?) as integer?", det, durationPart(minutesOf)),
		mp("seconds-from-duration", "(any-atomic-type?) as decimal?", det, durationPart(secondsOf)),
	}
}

func fnCurrentDateTime(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return single(item.DateTime(env.CurrentDateTime(), true)), nil
}

func fnCurrentDate(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return single(item.Date(env.CurrentDateTime(), true)), nil
}

func fnCurrentTime(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return single(item.Time(env.CurrentDateTime(), true)), nil
}

func offsetDuration(t time.Time) *item.Atomic {
	_, off := t.Zone()
	return item.DayTimeDurationOf(time.Duration(off) * time.Second)
}

func fnImplicitTimezone(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return single(offsetDuration(env.CurrentDateTime().In(env.ImplicitTimezone()))), nil
}

func fnDateTime(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	d, t := optAtomic(args[0]), optAtomic(args[1])
	if d == nil || t == nil {
		return nil, nil
	}
	dv, tv := d.Time(), t.Time()
	loc, hasTZ := dv.Location(), d.HasTimezone()
	switch {
	case d.HasTimezone() && t.HasTimezone():
		_, do := dv.Zone()
		_, to := tv.Zone()
		if do != to {
			return nil, types.Errorf(types.ErrInconsistentTimezone, "date %s and time %s have different timezones", d, t)
		}
	case t.HasTimezone():
		loc, hasTZ = tv.Location(), true
	}
	y, m, day := dv.Date()
	combined := time.Date(y, m, day, tv.Hour(), tv.Minute(), tv.Second(), tv.Nanosecond(), loc)
	return single(item.DateTime(combined, hasTZ)), nil
}

// timezoneArg converts a day-time duration to a fixed zone. The offset
// must be a whole number of minutes within fourteen hours.
func timezoneArg(a *item.Atomic) (*time.Location, error) {
	var whole, frac apd.Decimal
	a.Decimal().Modf(&whole, &frac)
	secs, err := whole.Int64()
	if err != nil || !frac.IsZero() || secs%60 != 0 || secs < -14*3600 || secs > 14*3600 {
		return nil, types.Errorf(types.ErrInvalidTimezone, "invalid timezone %s", a)
	}
	return item.FixedZone(int(secs)), nil
}

func fnAdjustTimezone(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	v := optAtomic(args[0])
	if v == nil {
		return nil, nil
	}
	loc := env.ImplicitTimezone()
	if len(args) > 1 {
		loc = nil
		if tz := optAtomic(args[1]); tz != nil {
			var err error
			if loc, err = timezoneArg(tz); err != nil {
				return nil, err
			}
		}
	}
	return single(item.WithTimezone(v, loc)), nil
}

type temporalField func(a *item.Atomic) *item.Atomic

func temporalPart(f temporalField) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		if r := f(a); r != nil {
			return single(r), nil
		}
		return nil, nil
	}
}

func year(a *item.Atomic) *item.Atomic    { return item.Int(int64(a.Time().Year())) }
func month(a *item.Atomic) *item.Atomic   { return item.Int(int64(a.Time().Month())) }
func day(a *item.Atomic) *item.Atomic     { return item.Int(int64(a.Time().Day())) }
func hours(a *item.Atomic) *item.Atomic   { return item.Int(int64(a.Time().Hour())) }
func minutes(a *item.Atomic) *item.Atomic { return item.Int(int64(a.Time().Minute())) }

func seconds(a *item.Atomic) *item.Atomic {
	t := a.Time()
	d := apd.New(int64(t.Second())*1e9+int64(t.Nanosecond()), -9)
	d.Reduce(d)
	return item.Decimal(d)
}

func timezone(a *item.Atomic) *item.Atomic {
	if !a.HasTimezone() {
		return nil
	}
	return offsetDuration(a.Time())
}

type durationField func(a *item.Atomic) *item.Atomic

func durationPart(f durationField) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		if !a.Type().IsDuration() {
			return nil, types.Errorf(types.ErrType, "expected a duration but found %s", a.Type())
		}
		return single(f(a)), nil
	}
}

func years(a *item.Atomic) *item.Atomic  { return item.Int(a.Months() / 12) }
func months(a *item.Atomic) *item.Atomic { return item.Int(a.Months() % 12) }

// splitSeconds returns the whole and fractional seconds of a day-time
// duration; year-month durations have none.
func splitSeconds(a *item.Atomic) (int64, *apd.Decimal) {
	if a.Type() != item.TypeDayTimeDuration {
		return 0, apd.New(0, 0)
	}
	var whole, frac apd.Decimal
	a.Decimal().Modf(&whole, &frac)
	n, _ := whole.Int64()
	return n, &frac
}

func days(a *item.Atomic) *item.Atomic {
	s, _ := splitSeconds(a)
	return item.Int(s / 86400)
}

func hoursOf(a *item.Atomic) *item.Atomic {
	s, _ := splitSeconds(a)
	return item.Int(s % 86400 / 3600)
}

func minutesOf(a *item.Atomic) *item.Atomic {
	s, _ := splitSeconds(a)
	return item.Int(s % 3600 / 60)
}

func secondsOf(a *item.Atomic) *item.Atomic {
	s, frac := splitSeconds(a)
	d := new(apd.Decimal)
	_, _ = apd.BaseContext.Add(d, apd.New(s%60, 0), frac)
	d.Reduce(d)
	return item.Decimal(d)
}
