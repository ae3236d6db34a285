package evaluator

import (
	"context"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func (e *Evaluator) evalArguments(ctx context.Context, nodes []*cst.Node, s *scope) ([]item.Sequence, error) {
	args := make([]item.Sequence, len(nodes))
	for i, n := range nodes {
		r, err := e.evalNode(ctx, n, s)
		if err != nil {
			return nil, err
		}
		args[i] = r
	}
	return args, nil
}

// evalFunctionCall calls a library function. The call was resolved when
// the expression was compiled; the lookup here only fetches the handler.
func (e *Evaluator) evalFunctionCall(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	fn, err := s.Library().Lookup(node.Name, len(node.Children))
	if err != nil {
		return nil, err
	}
	args, err := e.evalArguments(ctx, node.Children, s)
	if err != nil {
		return nil, err
	}
	return fn.Invoke(ctx, s, s.focus, args)
}

// evalDynamicCall calls the function item produced by the first child.
func (e *Evaluator) evalDynamicCall(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	target, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	if len(target) != 1 {
		return nil, types.Errorf(types.ErrType, "a dynamic call requires exactly one function item, found %d items", len(target))
	}
	fn, ok := target[0].(item.Function)
	if !ok || !item.IsFunction(target[0]) {
		return nil, types.Errorf(types.ErrType, "a %s item cannot be called", target[0].ItemKind())
	}
	args, err := e.evalArguments(ctx, node.Children[1:], s)
	if err != nil {
		return nil, err
	}
	if fn.Arity() != len(args) {
		return nil, arityMismatch(fn, len(args))
	}
	return s.Call(ctx, fn, args)
}

// evalFunctionRef creates a function item for name#arity. Focus-dependent
// functions capture the current context item.
func (e *Evaluator) evalFunctionRef(node *cst.Node, s *scope) (item.Sequence, error) {
	fn, err := s.Library().Lookup(node.Name, node.Arity)
	if err != nil {
		return nil, err
	}
	var focus item.Item
	if fn.Is(functions.FocusDependent) {
		focus = s.focus
	}
	return item.Sequence{functions.NewRef(fn, node.Arity, focus)}, nil
}
