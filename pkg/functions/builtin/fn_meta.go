package builtin

import (
	"context"

	"github.com/google/uuid"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func meta(local, sig string, props functions.Property, h functions.Handler) *functions.Function {
	return functions.MustNew(types.NSMetapath, local, sig, props, h)
}

func metaFunctions() []*functions.Function {
	return []*functions.Function{
		meta("recurse-depth", "(string) as node()*", usesFocus|dyn, fnRecurseDepth),
		meta("recurse-depth", "(node()*, string) as node()*", det|dyn, fnRecurseDepth),
		meta("base64-encode", "(string?) as base64?", det, fnBase64Encode),
		meta("base64-decode", "(base64?) as string?", det, fnBase64Decode),
		meta("random-uuid", "() as uuid", 0, fnRandomUUID),
	}
}

// fnRecurseDepth evaluates a path against each node and, depth first,
// against every node it selects, returning each node before its results.
func fnRecurseDepth(ctx context.Context, env functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	var initial item.Sequence
	var path string
	if len(args) == 1 {
		if _, ok := focus.(item.Node); !ok {
			return nil, types.Errorf(types.ErrFocusNotNode, "recurse-depth requires a node context item")
		}
		initial, path = item.Sequence{focus}, optString(args[0])
	} else {
		initial, path = args[0], optString(args[1])
	}
	return recurseDepth(ctx, env, initial, path, nil)
}

func recurseDepth(ctx context.Context, env functions.Env, nodes item.Sequence, path string, out item.Sequence) (item.Sequence, error) {
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, n)
		next, err := env.Evaluate(ctx, path, n)
		if err != nil {
			return nil, err
		}
		if _, ok := next.Nodes(); !ok {
			return nil, types.Errorf(types.ErrPathStepNotNodes, "recursion path %q must select nodes", path)
		}
		if out, err = recurseDepth(ctx, env, next, path, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fnBase64Encode(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, nil
	}
	return single(item.Base64Binary([]byte(optString(args[0])))), nil
}

func fnBase64Decode(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	a := optAtomic(args[0])
	if a == nil {
		return nil, nil
	}
	return stringResult(string(a.Bytes())), nil
}

func fnRandomUUID(context.Context, functions.Env, item.Item, []item.Sequence) (item.Sequence, error) {
	return single(item.UUID(uuid.New())), nil
}

// castFunctions returns a constructor function per atomic type, plus the
// date and date-time variants that require a timezone.
func castFunctions() []*functions.Function {
	var out []*functions.Function
	for t := item.TypeBoolean; t <= item.TypeQName; t++ {
		out = append(out, meta(t.Name(), "(any-atomic-type?) as "+t.Name()+"?", det, castHandler(t, false)))
	}
	out = append(out,
		meta("date-with-timezone", "(any-atomic-type?) as date?", det, castHandler(item.TypeDate, true)),
		meta("date-time-with-timezone", "(any-atomic-type?) as date-time?", det, castHandler(item.TypeDateTime, true)),
	)
	return out
}

func castHandler(target item.AtomicType, requireTZ bool) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		a := optAtomic(args[0])
		if a == nil {
			return nil, nil
		}
		v, err := item.Cast(a, target)
		if err != nil {
			return nil, err
		}
		if requireTZ && !v.HasTimezone() {
			return nil, types.Errorf(types.ErrInvalidValueForCast, "value %q has no timezone", a.String())
		}
		return single(v), nil
	}
}
