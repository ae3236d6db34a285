package evaluator

import (
	"context"
	"math/big"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// operands evaluates both children of a binary node to at most one atomic
// value each. ok is false when either side is empty.
func (e *Evaluator) operands(ctx context.Context, node *cst.Node, s *scope) (a, b *item.Atomic, ok bool, err error) {
	if a, err = e.evalAtomic(ctx, node.Children[0], s); err != nil || a == nil {
		return nil, nil, false, err
	}
	if b, err = e.evalAtomic(ctx, node.Children[1], s); err != nil || b == nil {
		return nil, nil, false, err
	}
	return a, b, true, nil
}

func (e *Evaluator) evalArithmetic(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	a, b, ok, err := e.operands(ctx, node, s)
	if err != nil || !ok {
		return nil, err
	}
	r, err := item.Arithmetic(node.Arith, a, b, s.ImplicitTimezone())
	if err != nil {
		return nil, err
	}
	return item.Sequence{r}, nil
}

func (e *Evaluator) evalUnary(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	a, err := e.evalAtomic(ctx, node.Children[0], s)
	if err != nil || a == nil {
		return nil, err
	}
	if node.Arith == item.OpAdd {
		if !a.Type().IsNumeric() {
			return nil, types.Errorf(types.ErrType, "unary plus requires a numeric operand, found %s", a.Type())
		}
		return item.Sequence{a}, nil
	}
	r, err := item.Negate(a)
	if err != nil {
		return nil, err
	}
	return item.Sequence{r}, nil
}

// evalValueCompare implements eq, ne, lt, le, gt and ge. An empty operand
// gives the empty sequence.
func (e *Evaluator) evalValueCompare(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	a, b, ok, err := e.operands(ctx, node, s)
	if err != nil || !ok {
		return nil, err
	}
	r, err := item.ValueCompare(node.Compare, a, b, s.ImplicitTimezone())
	if err != nil {
		return nil, err
	}
	return item.Sequence{item.Boolean(r)}, nil
}

// evalGeneralCompare implements =, !=, <, <=, > and >=: true when any pair
// of atomized values satisfies the comparison, false when either side is
// empty.
func (e *Evaluator) evalGeneralCompare(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	left, err := e.evalAtomized(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	right, err := e.evalAtomized(ctx, node.Children[1], s)
	if err != nil {
		return nil, err
	}
	tz := s.ImplicitTimezone()
	for _, a := range left {
		for _, b := range right {
			r, err := item.ValueCompare(node.Compare, a, b, tz)
			if err != nil {
				return nil, err
			}
			if r {
				return item.Sequence{item.Boolean(true)}, nil
			}
		}
	}
	return item.Sequence{item.Boolean(false)}, nil
}

func (e *Evaluator) evalAtomized(ctx context.Context, node *cst.Node, s *scope) ([]*item.Atomic, error) {
	r, err := e.evalNode(ctx, node, s)
	if err != nil {
		return nil, err
	}
	return item.Atomize(r)
}

// evalRange implements a to b over integers. The result is empty when
// either operand is empty or a > b.
func (e *Evaluator) evalRange(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	a, b, ok, err := e.operands(ctx, node, s)
	if err != nil || !ok {
		return nil, err
	}
	if !a.Type().IsInteger() || !b.Type().IsInteger() {
		return nil, types.Errorf(types.ErrType, "range operands must be integers, found %s and %s", a.Type(), b.Type())
	}
	lo, hi := a.BigInt(), b.BigInt()
	if lo.Cmp(hi) > 0 {
		return nil, nil
	}
	var out item.Sequence
	one := big.NewInt(1)
	for i := new(big.Int).Set(lo); i.Cmp(hi) <= 0; i.Add(i, one) {
		if len(out)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cancelled(err)
			}
		}
		out = append(out, item.Integer(new(big.Int).Set(i)))
	}
	return out, nil
}

// evalCast implements cast as and castable as.
func (e *Evaluator) evalCast(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	r, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	values, err := item.Atomize(r)
	if node.Kind == cst.KindCastable {
		switch {
		case err != nil || len(values) > 1:
			return item.Sequence{item.Boolean(false)}, nil
		case len(values) == 0:
			return item.Sequence{item.Boolean(node.Optional)}, nil
		default:
			return item.Sequence{item.Boolean(item.Castable(values[0], node.Type))}, nil
		}
	}
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		if node.Optional {
			return nil, nil
		}
		return nil, types.Errorf(types.ErrType, "cannot cast the empty sequence to %s", node.Type)
	case 1:
		c, err := item.Cast(values[0], node.Type)
		if err != nil {
			return nil, err
		}
		return item.Sequence{c}, nil
	default:
		return nil, types.Errorf(types.ErrType, "cannot cast a sequence of %d values to %s", len(values), node.Type)
	}
}
