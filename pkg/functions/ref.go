package functions

import (
	"context"
	"strconv"

	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// Ref is a function item bound to a library function at a fixed arity,
// as produced by a named function reference or function-lookup.
type Ref struct {
	fn    *Function
	arity int
	focus item.Item
}

// NewRef creates a function item for fn. focus is captured for
// focus-dependent functions and may be nil.
func NewRef(fn *Function, arity int, focus item.Item) *Ref {
	return &Ref{fn: fn, arity: arity, focus: focus}
}

func (*Ref) ItemKind() item.Kind { return item.KindFunction }

// Name returns the name of the referenced function.
func (r *Ref) Name() types.QName { return r.fn.name }

// Arity returns the bound arity.
func (r *Ref) Arity() int { return r.arity }

// Function returns the referenced library function.
func (r *Ref) Function() *Function { return r.fn }

// Invoke calls the referenced function with the captured focus.
func (r *Ref) Invoke(ctx context.Context, env Env, args []item.Sequence) (item.Sequence, error) {
	if len(args) != r.arity {
		return nil, types.Errorf(types.ErrType, "function %s#%d called with %d arguments", r.fn.name.Local, r.arity, len(args))
	}
	return r.fn.Invoke(ctx, env, r.focus, args)
}

func (r *Ref) String() string {
	return r.fn.name.String() + "#" + strconv.Itoa(r.arity)
}
