package builtin

import (
	"context"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// The math functions compute in float64. There is no double type, so
// results that are not finite raise FOAR0002.

func mathFn(local, sig string, h functions.Handler) *functions.Function {
	return functions.MustNew(types.NSMath, local, sig, det, h)
}

func mathFunctions() []*functions.Function {
	return []*functions.Function{
		mathFn("pi", "() as decimal", func(context.Context, functions.Env, item.Item, []item.Sequence) (item.Sequence, error) {
			return floatResult(math.Pi)
		}),
		mathFn("exp", "(decimal?) as decimal?", unaryMath(math.Exp)),
		mathFn("exp10", "(decimal?) as decimal?", unaryMath(func(x float64) float64 { return math.Pow(10, x) })),
		mathFn("log", "(decimal?) as decimal?", unaryMath(math.Log)),
		mathFn("log10", "(decimal?) as decimal?", unaryMath(math.Log10)),
		mathFn("sqrt", "(decimal?) as decimal?", unaryMath(math.Sqrt)),
		mathFn("sin", "(decimal?) as decimal?", unaryMath(math.Sin)),
		mathFn("cos", "(decimal?) as decimal?", unaryMath(math.Cos)),
		mathFn("tan", "(decimal?) as decimal?", unaryMath(math.Tan)),
		mathFn("asin", "(decimal?) as decimal?", unaryMath(math.Asin)),
		mathFn("acos", "(decimal?) as decimal?", unaryMath(math.Acos)),
		mathFn("atan", "(decimal?) as decimal?", unaryMath(math.Atan)),
		mathFn("atan2", "(decimal, decimal) as decimal", binaryMath(math.Atan2)),
		mathFn("pow", "(decimal?, decimal) as decimal?", binaryMath(math.Pow)),
	}
}

func toFloat(a *item.Atomic) float64 {
	f, _ := a.Decimal().Float64()
	return f
}

func floatResult(f float64) (item.Sequence, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, types.Errorf(types.ErrNumericOverflow, "result %v is not a finite number", f)
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, types.Errorf(types.ErrNumericOverflow, "cannot represent %v", f).WithCause(err)
	}
	return single(item.Decimal(d)), nil
}

func unaryMath(f func(float64) float64) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		return floatResult(f(toFloat(a)))
	}
}

func binaryMath(f func(x, y float64) float64) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		x, y := optAtomic(args[0]), optAtomic(args[1])
		if x == nil {
			return nil, nil
		}
		return floatResult(f(toFloat(x), toFloat(y)))
	}
}
