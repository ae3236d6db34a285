package evaluator

import (
	"context"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// evalArray builds [a, b, ...]: each child becomes one member.
func (e *Evaluator) evalArray(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	members, err := e.evalArguments(ctx, node.Children, s)
	if err != nil {
		return nil, err
	}
	return item.Sequence{item.NewArray(members...)}, nil
}

// evalCurlyArray builds array{e}: each item of e becomes one member.
func (e *Evaluator) evalCurlyArray(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	r, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	return item.Sequence{item.ArrayOf(r...)}, nil
}

// evalMap builds map{k: v, ...}. Keys must be single atomic values and
// must be distinct.
func (e *Evaluator) evalMap(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	entries := make([]item.MapEntry, 0, len(node.Children)/2)
	seen := make(map[item.MapKey]bool, len(node.Children)/2)
	for i := 0; i+1 < len(node.Children); i += 2 {
		r, err := e.evalNode(ctx, node.Children[i], s)
		if err != nil {
			return nil, err
		}
		key, err := item.AtomizeOne(r)
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, types.NewError(types.ErrType, "a map key must be a single atomic value", node.Children[i].Pos)
		}
		mk := key.MapKey()
		if seen[mk] {
			return nil, types.NewError(types.ErrDuplicateMapKey, "duplicate map key "+key.String(), node.Children[i].Pos)
		}
		seen[mk] = true

		value, err := e.evalNode(ctx, node.Children[i+1], s)
		if err != nil {
			return nil, err
		}
		entries = append(entries, item.MapEntry{Key: key, Value: value})
	}
	return item.Sequence{item.NewMap(entries...)}, nil
}

// evalLookup implements the postfix lookup operator.
func (e *Evaluator) evalLookup(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	base, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	return e.lookup(ctx, node, s, base)
}

// lookup applies the key specifier of node to every item of base.
func (e *Evaluator) lookup(ctx context.Context, node *cst.Node, s *scope, base item.Sequence) (item.Sequence, error) {
	var keys []*item.Atomic
	switch node.Lookup {
	case cst.LookupName, cst.LookupInteger:
		keys = []*item.Atomic{node.Value}
	case cst.LookupExpr:
		r, err := e.evalNode(ctx, node.Children[len(node.Children)-1], s)
		if err != nil {
			return nil, err
		}
		if keys, err = item.Atomize(r); err != nil {
			return nil, err
		}
	}

	var out item.Sequence
	for _, it := range base {
		switch v := it.(type) {
		case *item.Map:
			if node.Lookup == cst.LookupWildcard {
				for _, entry := range v.Entries() {
					out = append(out, entry.Value...)
				}
				continue
			}
			for _, k := range keys {
				value, _ := v.Get(k)
				out = append(out, value...)
			}
		case *item.Array:
			if node.Lookup == cst.LookupWildcard {
				for _, m := range v.Members() {
					out = append(out, m...)
				}
				continue
			}
			for _, k := range keys {
				if !k.Type().IsInteger() {
					return nil, types.Errorf(types.ErrType, "array lookup requires an integer key, found %s", k.Type())
				}
				m, err := arrayGet(v, item.Sequence{k})
				if err != nil {
					return nil, err
				}
				out = append(out, m...)
			}
		default:
			return nil, types.Errorf(types.ErrType, "lookup requires a map or array, found a %s item", it.ItemKind())
		}
	}
	return out, nil
}
