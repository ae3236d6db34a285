package builtin

import (
	"context"
	"slices"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func mapFn(local, sig string, props functions.Property, h functions.Handler) *functions.Function {
	return functions.MustNew(types.NSMap, local, sig, props, h)
}

func mapFunctions() []*functions.Function {
	return []*functions.Function{
		mapFn("merge", "(map(*)*) as map(*)", det, fnMapMerge),
		mapFn("merge", "(map(*)*, map(*)) as map(*)", det, fnMapMerge),
		mapFn("size", "(map(*)) as integer", det, fnMapSize),
		mapFn("keys", "(map(*)) as any-atomic-type*", det, fnMapKeys),
		mapFn("contains", "(map(*), any-atomic-type) as boolean", det, fnMapContains),
		mapFn("get", "(map(*), any-atomic-type) as item()*", det, fnMapGet),
		mapFn("find", "(item()*, any-atomic-type) as array(*)", det, fnMapFind),
		mapFn("put", "(map(*), any-atomic-type, item()*) as map(*)", det, fnMapPut),
		mapFn("entry", "(any-atomic-type, item()*) as map(*)", det, fnMapEntry),
		mapFn("remove", "(map(*), any-atomic-type*) as map(*)", det, fnMapRemove),
		mapFn("for-each", "(map(*), function(*)) as item()*", det, fnMapForEach),
	}
}

func mapArg(s item.Sequence) *item.Map { return s[0].(*item.Map) }

// Duplicate key handling for map:merge.
const (
	duplicatesUseFirst = "use-first"
	duplicatesUseLast  = "use-last"
	duplicatesUseAny   = "use-any"
	duplicatesCombine  = "combine"
	duplicatesReject   = "reject"
)

func mergeOption(options *item.Map) (string, error) {
	v, ok := options.Get(item.String("duplicates"))
	if !ok {
		return duplicatesUseFirst, nil
	}
	a, err := item.AtomizeOne(v)
	if err != nil || a == nil {
		return "", types.Errorf(types.ErrType, "the duplicates option must be a single string")
	}
	switch s := a.String(); s {
	case duplicatesUseFirst, duplicatesUseLast, duplicatesUseAny, duplicatesCombine, duplicatesReject:
		return s, nil
	default:
		return "", types.Errorf(types.ErrType, "invalid duplicates option %q", s)
	}
}

func fnMapMerge(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	policy := duplicatesUseFirst
	if len(args) > 1 {
		var err error
		if policy, err = mergeOption(mapArg(args[1])); err != nil {
			return nil, err
		}
	}

	merged := item.NewMap()
	for _, it := range args[0] {
		for _, e := range it.(*item.Map).Entries() {
			existing, dup := merged.Get(e.Key)
			switch {
			case !dup, policy == duplicatesUseLast:
				merged = merged.Put(e.Key, e.Value)
			case policy == duplicatesCombine:
				merged = merged.Put(e.Key, slices.Concat(existing, e.Value))
			case policy == duplicatesReject:
				return nil, types.Errorf(types.ErrDuplicateMapKey, "duplicate map key %s", e.Key)
			}
		}
	}
	return single(merged), nil
}

func fnMapSize(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return intResult(mapArg(args[0]).Size()), nil
}

func fnMapKeys(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	keys := mapArg(args[0]).Keys()
	out := make(item.Sequence, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out, nil
}

func fnMapContains(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(mapArg(args[0]).Contains(optAtomic(args[1]))), nil
}

func fnMapGet(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	v, _ := mapArg(args[0]).Get(optAtomic(args[1]))
	return v, nil
}

// find collects the values bound to key in every map reachable from seq
// through arrays and map values.
func find(seq item.Sequence, key *item.Atomic, out []item.Sequence) []item.Sequence {
	for _, it := range seq {
		switch v := it.(type) {
		case *item.Map:
			if val, ok := v.Get(key); ok {
				out = append(out, val)
			}
			for _, e := range v.Entries() {
				out = find(e.Value, key, out)
			}
		case *item.Array:
			for _, m := range v.Members() {
				out = find(m, key, out)
			}
		}
	}
	return out
}

func fnMapFind(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return single(item.NewArray(find(args[0], optAtomic(args[1]), nil)...)), nil
}

func fnMapPut(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return single(mapArg(args[0]).Put(optAtomic(args[1]), args[2])), nil
}

func fnMapEntry(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return single(item.NewMap(item.MapEntry{Key: optAtomic(args[0]), Value: args[1]})), nil
}

func fnMapRemove(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	keys := make([]*item.Atomic, len(args[1]))
	for i, it := range args[1] {
		keys[i] = it.(*item.Atomic)
	}
	return single(mapArg(args[0]).Remove(keys...)), nil
}

func fnMapForEach(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	fn, err := functionArg(args[1], 2)
	if err != nil {
		return nil, err
	}
	var out item.Sequence
	for _, e := range mapArg(args[0]).Entries() {
		res, err := env.Call(ctx, fn, []item.Sequence{{e.Key}, e.Value})
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}
