package builtin

import (
	"context"
	"time"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func numericFunctions() []*functions.Function {
	return []*functions.Function{
		mp("abs", "(decimal?) as decimal?", det, unaryNumeric(item.Abs)),
		mp("ceiling", "(decimal?) as decimal?", det, unaryNumeric(item.Ceiling)),
		mp("floor", "(decimal?) as decimal?", det, unaryNumeric(item.Floor)),
		mp("round", "(decimal?) as decimal?", det, fnRound(item.Round)),
		mp("round", "(decimal?, integer) as decimal?", det, fnRound(item.Round)),
		mp("round-half-to-even", "(decimal?) as decimal?", det, fnRound(item.RoundHalfToEven)),
		mp("round-half-to-even", "(decimal?, integer) as decimal?", det, fnRound(item.RoundHalfToEven)),
		mp("sum", "(any-atomic-type*) as any-atomic-type", dyn, fnSum),
		mp("sum", "(any-atomic-type*, any-atomic-type?) as any-atomic-type?", dyn, fnSum),
		mp("avg", "(any-atomic-type*) as any-atomic-type?", dyn, fnAvg),
		mp("min", "(any-atomic-type*) as any-atomic-type?", dyn, fnMinMax(-1)),
		mp("max", "(any-atomic-type*) as any-atomic-type?", dyn, fnMinMax(1)),
	}
}

func unaryNumeric(op func(*item.Atomic) *item.Atomic) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		return single(op(a)), nil
	}
}

func fnRound(op func(*item.Atomic, int32) *item.Atomic) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		var precision int32
		if len(args) > 1 {
			p, err := optInt(args[1])
			if err != nil {
				return nil, err
			}
			precision = int32(max(min(p, 1<<20), -(1 << 20)))
		}
		return single(op(a, precision)), nil
	}
}

// aggregateFamily classifies an item for sum and avg; values of different
// families cannot be combined.
func aggregateFamily(a *item.Atomic) (item.AtomicType, error) {
	t := a.Type()
	switch {
	case t.IsNumeric():
		return item.TypeDecimal, nil
	case t.IsDuration():
		return t, nil
	default:
		return 0, types.Errorf(types.ErrInvalidArgumentType, "cannot aggregate a value of type %s", t)
	}
}

func total(values item.Sequence, implicit *time.Location) (*item.Atomic, error) {
	sum := values[0].(*item.Atomic)
	family, err := aggregateFamily(sum)
	if err != nil {
		return nil, err
	}
	for _, it := range values[1:] {
		a := it.(*item.Atomic)
		f, err := aggregateFamily(a)
		if err != nil {
			return nil, err
		}
		if f != family {
			return nil, types.Errorf(types.ErrInvalidArgumentType, "cannot add %s to %s", a.Type(), sum.Type())
		}
		if sum, err = item.Arithmetic(item.OpAdd, sum, a, implicit); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

func fnSum(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		if len(args) > 1 {
			return args[1], nil
		}
		return single(item.Int(0)), nil
	}
	sum, err := total(args[0], env.ImplicitTimezone())
	if err != nil {
		return nil, err
	}
	return single(sum), nil
}

func fnAvg(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, nil
	}
	sum, err := total(args[0], env.ImplicitTimezone())
	if err != nil {
		return nil, err
	}
	avg, err := item.Arithmetic(item.OpDivide, sum, item.Int(int64(len(args[0]))), env.ImplicitTimezone())
	if err != nil {
		return nil, err
	}
	return single(avg), nil
}

// fnMinMax returns the smallest (want -1) or largest (want 1) value. Mixed
// integer and decimal input yields a decimal.
func fnMinMax(want int) functions.Handler {
	return func(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		if len(args[0]) == 0 {
			return nil, nil
		}
		best := args[0][0].(*item.Atomic)
		promote := best.Type() == item.TypeDecimal
		for _, it := range args[0][1:] {
			a := it.(*item.Atomic)
			c, ordered, err := item.CompareValues(a, best, env.ImplicitTimezone())
			if err != nil || !ordered {
				return nil, types.Errorf(types.ErrInvalidArgumentType, "cannot compare %s with %s", a.Type(), best.Type())
			}
			if a.Type() == item.TypeDecimal {
				promote = true
			}
			if c == want {
				best = a
			}
		}
		if promote && best.Type().IsInteger() {
			d, err := item.Cast(best, item.TypeDecimal)
			if err != nil {
				return nil, err
			}
			best = d
		}
		return single(best), nil
	}
}
