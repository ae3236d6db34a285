package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// recurseDepthKey stores a *int so that the depth can be incremented and
// decremented stack-style by every node visit of one evaluation.
type recurseDepthKey struct{}

func getRecurseDepthPtr(ctx context.Context) *int {
	if p, ok := ctx.Value(recurseDepthKey{}).(*int); ok {
		return p
	}
	return nil
}

// withNewRecurseDepthPtr returns a context carrying a fresh depth counter.
func withNewRecurseDepthPtr(ctx context.Context) context.Context {
	d := 0
	return context.WithValue(ctx, recurseDepthKey{}, &d)
}

func cancelled(err error) error {
	return types.Errorf(types.ErrUnidentified, "evaluation stopped: %v", err).WithCause(err)
}

func (e *Evaluator) evalNode(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, cancelled(ctx.Err())
	default:
	}

	if p := getRecurseDepthPtr(ctx); p != nil {
		*p++
		defer func() { *p-- }()
		if *p > e.opts.MaxDepth {
			return nil, types.Errorf(types.ErrUnidentified, "maximum evaluation depth of %d exceeded", e.opts.MaxDepth).
				WithPosition(node.Pos)
		}
	}

	if e.logger.Enabled(ctx, slog.LevelDebug) {
		e.logger.Debug("evaluating node", "kind", node.Kind, "pos", node.Pos)
	}

	result, err := e.dispatch(ctx, node, s)
	if err != nil {
		var merr *types.Error
		if errors.As(err, &merr) {
			merr.WithPosition(node.Pos)
		}
		return nil, err
	}
	return result, nil
}

func (e *Evaluator) dispatch(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	switch node.Kind {
	case cst.KindLiteral:
		return item.Sequence{node.Value}, nil
	case cst.KindEmpty:
		return nil, nil
	case cst.KindSequence:
		return e.evalSequence(ctx, node, s)
	case cst.KindContextItem:
		it, err := s.contextItem()
		if err != nil {
			return nil, err
		}
		return item.Sequence{it}, nil
	case cst.KindVariable:
		return s.dyn.Variable(node.Name)
	case cst.KindIf:
		return e.evalIf(ctx, node, s)
	case cst.KindAnd, cst.KindOr:
		return e.evalLogical(ctx, node, s)
	case cst.KindConcat:
		return e.evalConcat(ctx, node, s)
	case cst.KindSimpleMap:
		return e.evalSimpleMap(ctx, node, s)

	case cst.KindRoot:
		return e.evalRoot(s)
	case cst.KindPath:
		return e.evalPath(ctx, node, s)
	case cst.KindStep:
		return e.evalStep(ctx, node, s)
	case cst.KindFilter:
		return e.evalFilter(ctx, node, s)
	case cst.KindUnion, cst.KindIntersect, cst.KindExcept:
		return e.evalSetOperation(ctx, node, s)

	case cst.KindArithmetic:
		return e.evalArithmetic(ctx, node, s)
	case cst.KindUnary:
		return e.evalUnary(ctx, node, s)
	case cst.KindValueCompare:
		return e.evalValueCompare(ctx, node, s)
	case cst.KindGeneralCompare:
		return e.evalGeneralCompare(ctx, node, s)
	case cst.KindRange:
		return e.evalRange(ctx, node, s)
	case cst.KindCast, cst.KindCastable:
		return e.evalCast(ctx, node, s)

	case cst.KindFor:
		return e.evalFor(ctx, node, s)
	case cst.KindLet:
		return e.evalLet(ctx, node, s)
	case cst.KindSome, cst.KindEvery:
		return e.evalQuantified(ctx, node, s)

	case cst.KindFunctionCall:
		return e.evalFunctionCall(ctx, node, s)
	case cst.KindDynamicCall:
		return e.evalDynamicCall(ctx, node, s)
	case cst.KindFunctionRef:
		return e.evalFunctionRef(node, s)
	case cst.KindInlineFunction:
		return item.Sequence{&closure{node: node, static: s.static, dyn: s.dyn}}, nil

	case cst.KindArray:
		return e.evalArray(ctx, node, s)
	case cst.KindCurlyArray:
		return e.evalCurlyArray(ctx, node, s)
	case cst.KindMap:
		return e.evalMap(ctx, node, s)
	case cst.KindLookup:
		return e.evalLookup(ctx, node, s)
	case cst.KindUnaryLookup:
		it, err := s.contextItem()
		if err != nil {
			return nil, err
		}
		return e.lookup(ctx, node, s, item.Sequence{it})
	default:
		return nil, types.NewError(types.ErrUnidentified, "unsupported expression kind "+node.Kind.String(), node.Pos)
	}
}

func (e *Evaluator) evalSequence(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	var out item.Sequence
	for _, c := range node.Children {
		r, err := e.evalNode(ctx, c, s)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// evalBoolean evaluates node and returns its effective boolean value.
func (e *Evaluator) evalBoolean(ctx context.Context, node *cst.Node, s *scope) (bool, error) {
	r, err := e.evalNode(ctx, node, s)
	if err != nil {
		return false, err
	}
	return item.EffectiveBooleanValue(r)
}

func (e *Evaluator) evalIf(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	cond, err := e.evalBoolean(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	if cond {
		return e.evalNode(ctx, node.Children[1], s)
	}
	return e.evalNode(ctx, node.Children[2], s)
}

// evalLogical short-circuits: the right operand is not evaluated when the
// left one decides the result.
func (e *Evaluator) evalLogical(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	left, err := e.evalBoolean(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	isOr := node.Kind == cst.KindOr
	if left == isOr {
		return item.Sequence{item.Boolean(left)}, nil
	}
	right, err := e.evalBoolean(ctx, node.Children[1], s)
	if err != nil {
		return nil, err
	}
	return item.Sequence{item.Boolean(right)}, nil
}

// evalConcat implements ||. Each operand is atomized to at most one value;
// the empty sequence contributes the empty string.
func (e *Evaluator) evalConcat(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	var out string
	for _, c := range node.Children {
		a, err := e.evalAtomic(ctx, c, s)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out += a.String()
		}
	}
	return item.Sequence{item.String(out)}, nil
}

// evalSimpleMap implements !: the right operand is evaluated once per item
// of the left operand, which becomes the focus.
func (e *Evaluator) evalSimpleMap(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	left, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	var out item.Sequence
	for i, it := range left {
		r, err := e.evalNode(ctx, node.Children[1], s.withFocus(it, i+1, len(left)))
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

// evalAtomic evaluates node and atomizes the result to at most one value.
// It returns nil for the empty sequence.
func (e *Evaluator) evalAtomic(ctx context.Context, node *cst.Node, s *scope) (*item.Atomic, error) {
	r, err := e.evalNode(ctx, node, s)
	if err != nil {
		return nil, err
	}
	return item.AtomizeOne(r)
}
