package evaluator

import (
	"context"
	"slices"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

// evalRoot returns the root of the tree containing the context node.
func (e *Evaluator) evalRoot(s *scope) (item.Sequence, error) {
	n, err := s.contextNode()
	if err != nil {
		return nil, err
	}
	return item.Sequence{n.Root()}, nil
}

// evalPath evaluates E1/E2/...: each step runs once per node selected by
// the previous one. Node results are de-duplicated and put in document
// order; results made only of non-node items are kept in evaluation
// order.
func (e *Evaluator) evalPath(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	result, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	for _, step := range node.Children[1:] {
		nodes, ok := result.Nodes()
		if !ok {
			return nil, types.NewError(types.ErrPathStepNotNodes,
				"the left operand of / must select nodes", step.Pos)
		}
		var next item.Sequence
		for i, n := range nodes {
			r, err := e.evalNode(ctx, step, s.withFocus(n, i+1, len(nodes)))
			if err != nil {
				return nil, err
			}
			next = append(next, r...)
		}
		if result, err = orderPathResult(next); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func orderPathResult(seq item.Sequence) (item.Sequence, error) {
	if nodes, ok := seq.Nodes(); ok {
		return item.FromNodes(item.SortDocumentOrder(nodes)), nil
	}
	for _, it := range seq {
		if it.ItemKind() == item.KindNode {
			return nil, types.Errorf(types.ErrPathMixed, "a path step selected both nodes and non-node items")
		}
	}
	return seq, nil
}

// evalStep applies an axis step to the context node. Predicates see the
// selected nodes in axis order; the result is in document order.
func (e *Evaluator) evalStep(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	ctxNode, err := s.contextNode()
	if err != nil {
		return nil, err
	}
	var selected []item.Node
	for _, n := range axisNodes(node.Axis, ctxNode) {
		if matchTest(node.Test, node.Axis, n) {
			selected = append(selected, n)
		}
	}
	result, err := e.applyPredicates(ctx, node.Predicates, item.FromNodes(selected), s)
	if err != nil {
		return nil, err
	}
	if node.Axis.Reverse() {
		slices.Reverse(result)
	}
	return result, nil
}

// evalFilter applies predicates to an arbitrary expression.
func (e *Evaluator) evalFilter(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	base, err := e.evalNode(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	return e.applyPredicates(ctx, node.Predicates, base, s)
}

// applyPredicates filters seq by each predicate in turn. A predicate whose
// value is a single number selects by position; any other value is
// reduced to its effective boolean value.
func (e *Evaluator) applyPredicates(ctx context.Context, preds []*cst.Node, seq item.Sequence, s *scope) (item.Sequence, error) {
	for _, pred := range preds {
		if len(seq) == 0 {
			return nil, nil
		}
		kept := make(item.Sequence, 0, len(seq))
		for i, it := range seq {
			r, err := e.evalNode(ctx, pred, s.withFocus(it, i+1, len(seq)))
			if err != nil {
				return nil, err
			}
			ok, err := predicateTruth(r, i+1)
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, it)
			}
		}
		seq = kept
	}
	return seq, nil
}

func predicateTruth(r item.Sequence, pos int) (bool, error) {
	if len(r) == 1 {
		if a, ok := r[0].(*item.Atomic); ok && a.Type().IsNumeric() {
			eq, err := item.ValueCompare(item.OpEq, a, item.Int(int64(pos)), nil)
			if err != nil {
				return false, err
			}
			return eq, nil
		}
	}
	return item.EffectiveBooleanValue(r)
}

// axisNodes returns the nodes on axis from n, in axis order: document
// order for forward axes, nearest first for reverse axes.
func axisNodes(axis cst.Axis, n item.Node) []item.Node {
	switch axis {
	case cst.AxisChild:
		return wrap(n.ModelItems())
	case cst.AxisDescendant:
		return n.Descendants()
	case cst.AxisDescendantOrSelf:
		return append([]item.Node{n}, n.Descendants()...)
	case cst.AxisParent:
		if p := n.Parent(); p != nil {
			return []item.Node{{Node: p}}
		}
		return nil
	case cst.AxisAncestor:
		return n.Ancestors()
	case cst.AxisAncestorOrSelf:
		return append([]item.Node{n}, n.Ancestors()...)
	case cst.AxisSelf:
		return []item.Node{n}
	case cst.AxisFlag:
		return wrap(n.Flags())
	case cst.AxisFollowingSibling:
		_, after := siblings(n)
		return after
	case cst.AxisPrecedingSibling:
		before, _ := siblings(n)
		slices.Reverse(before)
		return before
	case cst.AxisFollowing:
		return following(n)
	case cst.AxisPreceding:
		return preceding(n)
	default:
		return nil
	}
}

func wrap(nodes []model.Node) []item.Node {
	out := make([]item.Node, len(nodes))
	for i, m := range nodes {
		out[i] = item.Node{Node: m}
	}
	return out
}

// siblings splits the model-item siblings of n into those before and
// after it. Flags and documents have no siblings.
func siblings(n item.Node) (before, after []item.Node) {
	p := n.Parent()
	if p == nil || n.Kind() == model.KindFlag {
		return nil, nil
	}
	all := p.ModelItems()
	for i, m := range all {
		if m == n.Node {
			return wrap(all[:i]), wrap(all[i+1:])
		}
	}
	return nil, nil
}

// subtree returns n followed by its descendants.
func subtree(n item.Node) []item.Node {
	return append([]item.Node{n}, n.Descendants()...)
}

// following returns the model items after n in document order, excluding
// its descendants. For a flag, the descendants of its owner follow it.
func following(n item.Node) []item.Node {
	var out []item.Node
	cur := n
	if n.Kind() == model.KindFlag {
		p := n.Parent()
		if p == nil {
			return nil
		}
		cur = item.Node{Node: p}
		out = append(out, cur.Descendants()...)
	}
	for ; cur.Parent() != nil; cur = (item.Node{Node: cur.Parent()}) {
		_, after := siblings(cur)
		for _, sib := range after {
			out = append(out, subtree(sib)...)
		}
	}
	return out
}

// preceding returns the model items before n, nearest first, excluding
// its ancestors.
func preceding(n item.Node) []item.Node {
	cur := n
	if n.Kind() == model.KindFlag {
		p := n.Parent()
		if p == nil {
			return nil
		}
		cur = item.Node{Node: p}
	}
	var levels [][]item.Node
	for ; cur.Parent() != nil; cur = (item.Node{Node: cur.Parent()}) {
		before, _ := siblings(cur)
		var level []item.Node
		for _, sib := range before {
			level = append(level, subtree(sib)...)
		}
		levels = append(levels, level)
	}
	var out []item.Node
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i]...)
	}
	slices.Reverse(out)
	return out
}

// matchTest applies a node test. Name tests and * only match the principal
// node kind of the axis: flags on the flag axis, fields and assemblies on
// every other axis.
func matchTest(test cst.NodeTest, axis cst.Axis, n item.Node) bool {
	if test.Kind == cst.TestAnyNode {
		return true
	}
	if axis == cst.AxisFlag {
		if n.Kind() != model.KindFlag {
			return false
		}
	} else if k := n.Kind(); k != model.KindField && k != model.KindAssembly {
		return false
	}
	name := n.Name()
	switch test.Kind {
	case cst.TestAnyName:
		return true
	case cst.TestName:
		if test.AnyNamespace {
			return name.Local == test.Name.Local
		}
		return name == test.Name
	case cst.TestLocalWildcard:
		return name.Namespace == test.Name.Namespace
	case cst.TestNamespaceAny:
		return name.Local == test.Name.Local
	default:
		return false
	}
}

// evalSetOperation implements union, intersect and except over nodes.
func (e *Evaluator) evalSetOperation(ctx context.Context, node *cst.Node, s *scope) (item.Sequence, error) {
	left, err := e.evalNodes(ctx, node.Children[0], s)
	if err != nil {
		return nil, err
	}
	right, err := e.evalNodes(ctx, node.Children[1], s)
	if err != nil {
		return nil, err
	}
	if node.Kind == cst.KindUnion {
		return item.FromNodes(item.SortDocumentOrder(append(left, right...))), nil
	}
	inRight := make(map[model.Node]bool, len(right))
	for _, n := range right {
		inRight[n.Node] = true
	}
	keep := node.Kind == cst.KindIntersect
	var out []item.Node
	for _, n := range left {
		if inRight[n.Node] == keep {
			out = append(out, n)
		}
	}
	return item.FromNodes(item.SortDocumentOrder(out)), nil
}

func (e *Evaluator) evalNodes(ctx context.Context, node *cst.Node, s *scope) ([]item.Node, error) {
	r, err := e.evalNode(ctx, node, s)
	if err != nil {
		return nil, err
	}
	nodes, ok := r.Nodes()
	if !ok {
		return nil, types.NewError(types.ErrType, "the operands of union, intersect and except must be nodes", node.Pos)
	}
	return nodes, nil
}
