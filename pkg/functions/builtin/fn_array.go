package builtin

import (
	"context"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func array(local, sig string, props functions.Property, h functions.Handler) *functions.Function {
	return functions.MustNew(types.NSArray, local, sig, props, h)
}

func arrayFunctions() []*functions.Function {
	return []*functions.Function{
		array("get", "(array(*), integer) as item()*", det, fnArrayGet),
		array("size", "(array(*)) as integer", det, fnArraySize),
		array("put", "(array(*), integer, item()*) as array(*)", det, fnArrayPut),
		array("append", "(array(*), item()*) as array(*)", det, fnArrayAppend),
		array("subarray", "(array(*), integer) as array(*)", det, fnArraySubarray),
		array("subarray", "(array(*), integer, integer) as array(*)", det, fnArraySubarray),
		array("remove", "(array(*), integer*) as array(*)", det, fnArrayRemove),
		array("insert-before", "(array(*), integer, item()*) as array(*)", det, fnArrayInsertBefore),
		array("head", "(array(*)) as item()*", det, fnArrayHead),
		array("tail", "(array(*)) as array(*)", det, fnArrayTail),
		array("reverse", "(array(*)) as array(*)", det, fnArrayReverse),
		array("join", "(array(*)*) as array(*)", det, fnArrayJoin),
		array("flatten", "(item()*) as item()*", det, fnArrayFlatten),
		array("for-each", "(array(*), function(*)) as array(*)", det, fnArrayForEach),
		array("filter", "(array(*), function(*)) as array(*)", det, fnArrayFilter),
	}
}

func arrayArg(s item.Sequence) *item.Array { return s[0].(*item.Array) }

func intArgs(s item.Sequence) ([]int, error) {
	out := make([]int, len(s))
	for i, it := range s {
		n, err := it.(*item.Atomic).ToInt()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func fnArrayGet(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	pos, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	return arrayArg(args[0]).Get(pos)
}

func fnArraySize(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return intResult(arrayArg(args[0]).Size()), nil
}

func fnArrayPut(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	pos, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	a, err := arrayArg(args[0]).Put(pos, args[2])
	if err != nil {
		return nil, err
	}
	return single(a), nil
}

func fnArrayAppend(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return single(arrayArg(args[0]).Append(args[1])), nil
}

func fnArraySubarray(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	a := arrayArg(args[0])
	start, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	length := a.Size() - start + 1
	if len(args) > 2 {
		if length, err = optInt(args[2]); err != nil {
			return nil, err
		}
	}
	sub, err := a.Subarray(start, length)
	if err != nil {
		return nil, err
	}
	return single(sub), nil
}

func fnArrayRemove(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	positions, err := intArgs(args[1])
	if err != nil {
		return nil, err
	}
	a, err := arrayArg(args[0]).Remove(positions...)
	if err != nil {
		return nil, err
	}
	return single(a), nil
}

func fnArrayInsertBefore(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	pos, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	a, err := arrayArg(args[0]).InsertBefore(pos, args[2])
	if err != nil {
		return nil, err
	}
	return single(a), nil
}

func fnArrayHead(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return arrayArg(args[0]).Get(1)
}

func fnArrayTail(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	a := arrayArg(args[0])
	if a.Size() == 0 {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "tail of an empty array")
	}
	tail, err := a.Subarray(2, a.Size()-1)
	if err != nil {
		return nil, err
	}
	return single(tail), nil
}

func fnArrayReverse(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return single(arrayArg(args[0]).Reverse()), nil
}

func fnArrayJoin(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	var members []item.Sequence
	for _, it := range args[0] {
		members = append(members, it.(*item.Array).Members()...)
	}
	return single(item.NewArray(members...)), nil
}

func flatten(seq item.Sequence, out item.Sequence) item.Sequence {
	for _, it := range seq {
		if a, ok := it.(*item.Array); ok {
			for _, m := range a.Members() {
				out = flatten(m, out)
			}
			continue
		}
		out = append(out, it)
	}
	return out
}

func fnArrayFlatten(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return flatten(args[0], nil), nil
}

func functionArg(s item.Sequence, arity int) (item.Function, error) {
	fn := s[0].(item.Function)
	if fn.Arity() != arity {
		return nil, types.Errorf(types.ErrType, "expected a function of arity %d but found arity %d", arity, fn.Arity())
	}
	return fn, nil
}

func fnArrayForEach(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[1], 1)
	if err != nil {
		return nil, err
	}
	members := arrayArg(args[0]).Members()
	out := make([]item.Sequence, len(members))
	for i, m := range members {
		if out[i], err = env.Call(ctx, fn, []item.Sequence{m}); err != nil {
			return nil, err
		}
	}
	return single(item.NewArray(out...)), nil
}

func fnArrayFilter(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[1], 1)
	if err != nil {
		return nil, err
	}
	var out []item.Sequence
	for _, m := range arrayArg(args[0]).Members() {
		keep, err := callPredicate(ctx, env, fn, m)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, m)
		}
	}
	return single(item.NewArray(out...)), nil
}

// callPredicate calls fn and requires a single boolean result.
func callPredicate(ctx context.Context, env functions.Env, fn item.Function, args ...item.Sequence) (bool, error) {
	res, err := env.Call(ctx, fn, args)
	if err != nil {
		return false, err
	}
	if len(res) == 1 {
		if b, ok := res[0].(*item.Atomic); ok && b.Type() == item.TypeBoolean {
			return b.Bool(), nil
		}
	}
	return false, types.Errorf(types.ErrType, "predicate function must return a single boolean")
}
