package builtin

import (
	"context"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
)

func hofFunctions() []*functions.Function {
	return []*functions.Function{
		mp("function-lookup", "(qname, integer) as function(*)?", usesFocus|dyn, fnFunctionLookup),
		mp("for-each", "(item()*, function(*)) as item()*", det, fnForEach),
		mp("filter", "(item()*, function(*)) as item()*", det, fnFilter),
		mp("fold-left", "(item()*, item()*, function(*)) as item()*", det, fnFoldLeft),
		mp("fold-right", "(item()*, item()*, function(*)) as item()*", det, fnFoldRight),
	}
}

// fnFunctionLookup returns a reference to a library function, or the
// empty sequence when none matches the name and arity.
func fnFunctionLookup(_ context.Context, env functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	name := optAtomic(args[0]).QName()
	arity, err := optInt(args[1])
	if err != nil {
		return nil, err
	}
	lib := env.Library()
	if lib == nil {
		return nil, nil
	}
	fn, err := lib.Lookup(name, arity)
	if err != nil {
		return nil, nil
	}
	return single(functions.NewRef(fn, arity, focus)), nil
}

func fnForEach(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[1], 1)
	if err != nil {
		return nil, err
	}
	var out item.Sequence
	for _, it := range args[0] {
		res, err := env.Call(ctx, fn, []item.Sequence{{it}})
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func fnFilter(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[1], 1)
	if err != nil {
		return nil, err
	}
	var out item.Sequence
	for _, it := range args[0] {
		keep, err := callPredicate(ctx, env, fn, item.Sequence{it})
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, it)
		}
	}
	return out, nil
}

func fnFoldLeft(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[2], 2)
	if err != nil {
		return nil, err
	}
	acc := args[1]
	for _, it := range args[0] {
		if acc, err = env.Call(ctx, fn, []item.Sequence{acc, {it}}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func fnFoldRight(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[2], 2)
	if err != nil {
		return nil, err
	}
	acc := args[1]
	for i := len(args[0]) - 1; i >= 0; i-- {
		if acc, err = env.Call(ctx, fn, []item.Sequence{{args[0][i]}, acc}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
