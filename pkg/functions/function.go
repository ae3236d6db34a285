package functions

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// Property describes the purity of a function.
type Property uint8

const (
	// Deterministic functions return the same result for the same
	// arguments within one evaluation.
	Deterministic Property = 1 << iota
	// ContextDependent functions read the dynamic context, such as the
	// implicit timezone or the current date and time.
	ContextDependent
	// FocusDependent functions read the focus (context item, position or
	// size). They receive the focus item when called.
	FocusDependent
)

// Env is the view of the dynamic context available to function handlers.
type Env interface {
	// Position and Size return the 1-based position of the context item and
	// the size of the focus sequence.
	Position() int
	Size() int
	// ImplicitTimezone is the timezone applied to values without one.
	ImplicitTimezone() *time.Location
	// CurrentDateTime is fixed for the duration of one evaluation.
	CurrentDateTime() time.Time
	// StaticBaseURI is the base URI of the expression's static context.
	StaticBaseURI() string
	// Call invokes a function item.
	Call(ctx context.Context, fn item.Function, args []item.Sequence) (item.Sequence, error)
	// Document loads the document at uri.
	Document(ctx context.Context, uri string) (item.Node, error)
	// Evaluate compiles expr in the current static context and evaluates
	// it with focus as the context item.
	Evaluate(ctx context.Context, expr string, focus item.Item) (item.Sequence, error)
	// Library returns the function library in scope.
	Library() *Library
	// Logger returns the evaluation logger.
	Logger() *slog.Logger
}

// Handler implements a function. Arguments have already been converted to
// the declared parameter types. focus is the context item for
// focus-dependent functions and nil when there is none.
type Handler func(ctx context.Context, env Env, focus item.Item, args []item.Sequence) (item.Sequence, error)

// Function is a registered function. It is immutable.
type Function struct {
	name      types.QName
	signature Signature
	props     Property
	handler   Handler
}

// New creates a function from a signature declaration.
func New(namespace, local, signature string, props Property, handler Handler) (*Function, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	return &Function{
		name:      types.DefaultQNames.Intern(namespace, local),
		signature: sig,
		props:     props,
		handler:   handler,
	}, nil
}

// MustNew is like New but panics on an invalid signature.
func MustNew(namespace, local, signature string, props Property, handler Handler) *Function {
	fn, err := New(namespace, local, signature, props, handler)
	if err != nil {
		panic("functions: " + local + ": " + err.Error())
	}
	return fn
}

// Name returns the qualified function name.
func (f *Function) Name() types.QName { return f.name }

// Signature returns the declared signature.
func (f *Function) Signature() Signature { return f.signature }

// Is reports whether the function has the property p.
func (f *Function) Is(p Property) bool { return f.props&p != 0 }

// String renders the function name followed by its signature.
func (f *Function) String() string {
	return f.name.String() + f.signature.String()
}

// Invoke converts args to the declared parameter types, calls the handler
// and checks the cardinality of the result.
func (f *Function) Invoke(ctx context.Context, env Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	if !f.signature.AcceptsArity(len(args)) {
		return nil, types.Errorf(types.ErrNoFunctionMatch, "function %s does not accept %d arguments", f.name, len(args))
	}
	if f.Is(FocusDependent) && focus == nil && len(args) == 0 {
		return nil, types.Errorf(types.ErrContextAbsent, "function %s requires a context item", f.name.Local)
	}
	converted := make([]item.Sequence, len(args))
	for i, arg := range args {
		c, err := Convert(arg, f.signature.ArgumentType(i))
		if err != nil {
			var merr *types.Error
			if errors.As(err, &merr) {
				merr.Message = "argument " + strconv.Itoa(i+1) + " of " + f.name.Local + ": " + merr.Message
			}
			return nil, err
		}
		converted[i] = c
	}
	result, err := f.handler(ctx, env, focus, converted)
	if err != nil {
		return nil, err
	}
	ret := f.signature.Return
	if ret.Item.Kind != EmptySequence && !ret.Occurrence.Allows(len(result)) {
		return nil, types.Errorf(types.ErrType, "function %s returned %d items, expected %s", f.name.Local, len(result), ret)
	}
	return result, nil
}
