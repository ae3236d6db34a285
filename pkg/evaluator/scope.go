package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// scope is the state visible to one node evaluation: the static context
// of the expression, the variable frame and the focus. It implements
// functions.Env for the function library.
type scope struct {
	ev     *Evaluator
	static *static.Context
	dyn    *DynamicContext
	focus  item.Item
	pos    int
	size   int
}

var _ functions.Env = (*scope)(nil)

func newScope(ev *Evaluator, sc *static.Context, dyn *DynamicContext, focus item.Item) *scope {
	if sc == nil {
		sc = static.Default()
	}
	s := &scope{ev: ev, static: sc, dyn: dyn, focus: focus}
	if focus != nil {
		s.pos, s.size = 1, 1
	}
	return s
}

// withFocus returns a copy of s focused on it at pos of size.
func (s *scope) withFocus(it item.Item, pos, size int) *scope {
	c := *s
	c.focus, c.pos, c.size = it, pos, size
	return &c
}

// bind returns a copy of s with name bound to value.
func (s *scope) bind(name types.QName, value item.Sequence) *scope {
	c := *s
	c.dyn = s.dyn.BindVariable(name, value)
	return &c
}

// contextItem returns the focus or MPDY0002.
func (s *scope) contextItem() (item.Item, error) {
	if s.focus == nil {
		return nil, types.Errorf(types.ErrContextAbsent, "the context item is absent")
	}
	return s.focus, nil
}

// contextNode returns the focus as a node.
func (s *scope) contextNode() (item.Node, error) {
	it, err := s.contextItem()
	if err != nil {
		return item.Node{}, err
	}
	n, ok := it.(item.Node)
	if !ok {
		return item.Node{}, types.Errorf(types.ErrFocusNotNode, "the context item is a %s, not a node", it.ItemKind())
	}
	return n, nil
}

func (s *scope) Position() int                    { return s.pos }
func (s *scope) Size() int                        { return s.size }
func (s *scope) ImplicitTimezone() *time.Location { return s.dyn.ImplicitTimezone() }
func (s *scope) CurrentDateTime() time.Time       { return s.dyn.CurrentDateTime() }
func (s *scope) StaticBaseURI() string            { return s.static.BaseURI() }
func (s *scope) Library() *functions.Library      { return s.static.Library() }
func (s *scope) Logger() *slog.Logger             { return s.ev.logger }

// Document loads uri through the dynamic context.
func (s *scope) Document(ctx context.Context, uri string) (item.Node, error) {
	s.ev.logger.Debug("loading document", "uri", uri)
	return s.dyn.Document(ctx, uri)
}

// Evaluate compiles expr in the static context of s and evaluates it with
// focus as the only item of the focus sequence.
func (s *scope) Evaluate(ctx context.Context, expr string, focus item.Item) (item.Sequence, error) {
	compiled, err := s.ev.Compile(expr, s.static)
	if err != nil {
		return nil, err
	}
	inner := newScope(s.ev, compiled.Static(), s.dyn, focus)
	return s.ev.evalNode(ctx, compiled.Root(), inner)
}

// Call invokes a function item with already evaluated arguments.
func (s *scope) Call(ctx context.Context, fn item.Function, args []item.Sequence) (item.Sequence, error) {
	switch f := fn.(type) {
	case *functions.Ref:
		return f.Invoke(ctx, s, args)
	case *closure:
		return s.ev.invokeClosure(ctx, f, args)
	case *item.Array:
		if len(args) != 1 {
			return nil, arityMismatch(fn, len(args))
		}
		return arrayGet(f, args[0])
	case *item.Map:
		if len(args) != 1 {
			return nil, arityMismatch(fn, len(args))
		}
		return mapGet(f, args[0])
	default:
		return nil, types.Errorf(types.ErrType, "a %s item cannot be called", fn.ItemKind())
	}
}

func arityMismatch(fn item.Function, n int) *types.Error {
	return types.Errorf(types.ErrType, "function of arity %d called with %d arguments", fn.Arity(), n)
}

// arrayGet returns the member of a at the 1-based position given by key.
func arrayGet(a *item.Array, key item.Sequence) (item.Sequence, error) {
	k, err := item.AtomizeOne(key)
	if err != nil {
		return nil, err
	}
	if k == nil || !k.Type().IsInteger() {
		return nil, types.Errorf(types.ErrType, "array index must be a single integer")
	}
	pos, err := k.ToInt()
	if err != nil {
		return nil, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %s is out of bounds", k)
	}
	return a.Get(pos)
}

// mapGet returns the value of m at key, or the empty sequence.
func mapGet(m *item.Map, key item.Sequence) (item.Sequence, error) {
	k, err := item.AtomizeOne(key)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, types.Errorf(types.ErrType, "map key must be a single atomic value")
	}
	v, _ := m.Get(k)
	return v, nil
}

// closure is an inline function item. It captures the variable frame it
// was created in; its body runs with an absent focus.
type closure struct {
	node   *cst.Node
	static *static.Context
	dyn    *DynamicContext
}

func (*closure) ItemKind() item.Kind { return item.KindFunction }
func (*closure) Name() types.QName   { return types.QName{} }
func (c *closure) Arity() int        { return len(c.node.Params) }
func (c *closure) Body() *cst.Node   { return c.node.Children[0] }

func (e *Evaluator) invokeClosure(ctx context.Context, c *closure, args []item.Sequence) (item.Sequence, error) {
	if len(args) != c.Arity() {
		return nil, arityMismatch(c, len(args))
	}
	dyn := c.dyn
	for i, p := range c.node.Params {
		arg := args[i]
		if p.Type != nil {
			converted, err := functions.Convert(arg, *p.Type)
			if err != nil {
				return nil, err
			}
			arg = converted
		}
		dyn = dyn.BindVariable(p.Name, arg)
	}
	result, err := e.evalNode(ctx, c.Body(), newScope(e, c.static, dyn, nil))
	if err != nil {
		return nil, err
	}
	if c.node.Return != nil {
		return functions.Convert(result, *c.node.Return)
	}
	return result, nil
}
