package builtin

import (
	"context"
	"slices"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func sequenceFunctions() []*functions.Function {
	return []*functions.Function{
		mp("boolean", "(item()*) as boolean", det, fnBoolean),
		mp("not", "(item()*) as boolean", det, fnNot),
		mp("true", "() as boolean", det, constant(true)),
		mp("false", "() as boolean", det, constant(false)),
		mp("count", "(item()*) as integer", det, fnCount),
		mp("empty", "(item()*) as boolean", det, fnEmpty),
		mp("exists", "(item()*) as boolean", det, fnExists),
		mp("head", "(item()*) as item()?", det, fnHead),
		mp("tail", "(item()*) as item()*", det, fnTail),
		mp("reverse", "(item()*) as item()*", det, fnReverse),
		mp("remove", "(item()*, integer) as item()*", det, fnRemove),
		mp("insert-before", "(item()*, integer, item()*) as item()*", det, fnInsertBefore),
		mp("subsequence", "(item()*, decimal) as item()*", det, fnSubsequence),
		mp("subsequence", "(item()*, decimal, decimal) as item()*", det, fnSubsequence),
		mp("index-of", "(any-atomic-type*, any-atomic-type) as integer*", dyn, fnIndexOf),
		mp("distinct-values", "(any-atomic-type*) as any-atomic-type*", det, fnDistinctValues),
		mp("deep-equal", "(item()*, item()*) as boolean", dyn, fnDeepEqual),
		mp("exactly-one", "(item()*) as item()", det, fnExactlyOne),
		mp("zero-or-one", "(item()*) as item()?", det, fnZeroOrOne),
		mp("one-or-more", "(item()*) as item()+", det, fnOneOrMore),
		mp("data", "() as any-atomic-type*", usesFocus, fnData),
		mp("data", "(item()*) as any-atomic-type*", det, fnData),
		mp("position", "() as integer", usesFocus, fnPosition),
		mp("last", "() as integer", usesFocus, fnLast),
	}
}

func constant(b bool) functions.Handler {
	return func(context.Context, functions.Env, item.Item, []item.Sequence) (item.Sequence, error) {
		return boolean(b), nil
	}
}

func fnBoolean(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	b, err := item.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return boolean(b), nil
}

func fnNot(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	b, err := item.EffectiveBooleanValue(args[0])
	if err != nil {
		return nil, err
	}
	return boolean(!b), nil
}

func fnCount(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return intResult(len(args[0])), nil
}

func fnEmpty(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(len(args[0]) == 0), nil
}

func fnExists(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(len(args[0]) > 0), nil
}

func fnHead(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, nil
	}
	return args[0][:1], nil
}

func fnTail(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) <= 1 {
		return nil, nil
	}
	return args[0][1:], nil
}

func fnReverse(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	out := slices.Clone(args[0])
	slices.Reverse(out)
	return out, nil
}

func fnRemove(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	pos, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	seq := args[0]
	if pos < 1 || pos > len(seq) {
		return seq, nil
	}
	return slices.Concat(seq[:pos-1], seq[pos:]), nil
}

func fnInsertBefore(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	pos, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	seq := args[0]
	pos = min(max(pos, 1), len(seq)+1)
	return slices.Concat(seq[:pos-1], args[2], seq[pos-1:]), nil
}

func fnSubsequence(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	seq := args[0]
	start := roundedFloat(optAtomic(args[1]))
	end := float64(len(seq)) + 1
	if len(args) > 2 {
		end = start + roundedFloat(optAtomic(args[2]))
	}
	var out item.Sequence
	for i, it := range seq {
		pos := float64(i + 1)
		if pos >= start && pos < end {
			out = append(out, it)
		}
	}
	return out, nil
}

func fnIndexOf(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	search := optAtomic(args[1])
	var out item.Sequence
	for i, it := range args[0] {
		eq, err := item.ValueCompare(item.OpEq, it.(*item.Atomic), search, env.ImplicitTimezone())
		if err == nil && eq {
			out = append(out, item.Int(int64(i+1)))
		}
	}
	return out, nil
}

func fnDistinctValues(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	seen := make(map[item.MapKey]bool, len(args[0]))
	var out item.Sequence
	for _, it := range args[0] {
		k := it.(*item.Atomic).MapKey()
		if !seen[k] {
			seen[k] = true
			out = append(out, it)
		}
	}
	return out, nil
}

func fnDeepEqual(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(item.DeepEqual(args[0], args[1], env.ImplicitTimezone())), nil
}

func fnExactlyOne(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	it, err := args[0].ExactlyOne()
	if err != nil {
		return nil, err
	}
	return single(it), nil
}

func fnZeroOrOne(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if _, err := args[0].ZeroOrOne(); err != nil {
		return nil, err
	}
	return args[0], nil
}

func fnOneOrMore(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, types.Errorf(types.ErrOneOrMore, "expected at least one item")
	}
	return args[0], nil
}

func fnData(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	atoms, err := item.Atomize(contextArg(focus, args))
	if err != nil {
		return nil, err
	}
	out := make(item.Sequence, len(atoms))
	for i, a := range atoms {
		out[i] = a
	}
	return out, nil
}

func fnPosition(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return intResult(env.Position()), nil
}

func fnLast(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	return intResult(env.Size()), nil
}
