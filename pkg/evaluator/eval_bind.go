package evaluator

import (
	"context"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
)

// iterate binds each variable in turn to every item of its sequence,
// leftmost variable outermost, and calls fn for each combination. It stops
// early when fn returns false and reports whether it ran to completion.
func (e *Evaluator) iterate(ctx context.Context, bindings []cst.Binding, s *scope, fn func(*scope) (bool, error)) (bool, error) {
	if len(bindings) == 0 {
		return fn(s)
	}
	b := bindings[0]
	seq, err := e.evalNode(ctx, b.Expr, s)
	if err != nil {
		return false, err
	}
	for _, it := range seq {
		more, err := e.iterate(ctx, bindings[1:], s.bind(b.Name, item.Sequence{it}), fn)
		if err != nil || !more {
			return more, err
		}
	}
	return true, nil
}

func (e *Evaluator) evalFor(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	var out item.Sequence
	_, err := e.iterate(ctx, node.Bindings, s, func(inner *scope) (bool, error) {
		r, err := e.evalNode(ctx, node.Children[0], inner)
		if err != nil {
			return false, err
		}
		out = append(out, r...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Evaluator) evalLet(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	for _, b := range node.Bindings {
		v, err := e.evalNode(ctx, b.Expr, s)
		if err != nil {
			return nil, err
		}
		s = s.bind(b.Name, v)
	}
	return e.evalNode(ctx, node.Children[0], s)
}

// evalQuantified implements some and every, stopping at the first
// combination that decides the result.
func (e *Evaluator) evalQuantified(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	want := node.Kind == cst.KindSome
	found := false
	_, err := e.iterate(ctx, node.Bindings, s, func(inner *scope) (bool, error) {
		ok, err := e.evalBoolean(ctx, node.Children[0], inner)
		if err != nil {
			return false, err
		}
		if ok == want {
			found = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	// some: true when a combination satisfied the test
	// every: false when a combination failed it
	return item.Sequence{item.Boolean(found == want)}, nil
}
