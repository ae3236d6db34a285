package functions

import (
	"cmp"
	"slices"
	"sync"

	"github.com/wandmagic/metapath/pkg/types"
)

// Library maps qualified names to functions. A name may have several
// registrations with different arities.
//
// Safe for concurrent use. Registration is expected to happen while a
// library is being set up; lookups never mutate it.
type Library struct {
	parent *Library

	mu        sync.RWMutex
	functions map[types.QName][]*Function
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{functions: make(map[types.QName][]*Function)}
}

// Extend creates a child library. Functions registered on the child
// shadow parent functions with the same name and arity; the parent is
// never modified.
func (l *Library) Extend() *Library {
	child := NewLibrary()
	child.parent = l
	return child
}

// Register adds functions to the library. A function replaces an earlier
// registration with the same name whose signature accepts the same
// number of declared arguments.
func (l *Library) Register(fns ...*Function) *Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, fn := range fns {
		existing := l.functions[fn.name]
		replaced := false
		for i, e := range existing {
			if len(e.signature.Arguments) == len(fn.signature.Arguments) && e.signature.Variadic == fn.signature.Variadic {
				existing[i] = fn
				replaced = true
				break
			}
		}
		if !replaced {
			l.functions[fn.name] = append(existing, fn)
		}
	}
	return l
}

// HasName reports whether any function with the given name is visible.
func (l *Library) HasName(name types.QName) bool {
	for lib := l; lib != nil; lib = lib.parent {
		lib.mu.RLock()
		_, ok := lib.functions[name]
		lib.mu.RUnlock()
		if ok {
			return true
		}
	}
	return false
}

// Lookup resolves a function by name and arity. It fails with MPST0017
// when no function has the name or when none accepts the arity.
func (l *Library) Lookup(name types.QName, arity int) (*Function, error) {
	found := false
	for lib := l; lib != nil; lib = lib.parent {
		lib.mu.RLock()
		candidates := lib.functions[name]
		lib.mu.RUnlock()
		for _, fn := range candidates {
			found = true
			if fn.signature.AcceptsArity(arity) {
				return fn, nil
			}
		}
	}
	if !found {
		return nil, types.Errorf(types.ErrNoFunctionMatch, "unknown function %s", name)
	}
	return nil, types.Errorf(types.ErrNoFunctionMatch, "function %s does not accept %d arguments", name, arity)
}

// Functions returns every visible function sorted by namespace, name and
// arity. Shadowed parent functions are omitted.
func (l *Library) Functions() []*Function {
	type key struct {
		name     types.QName
		args     int
		variadic bool
	}
	seen := make(map[key]bool)
	var out []*Function
	for lib := l; lib != nil; lib = lib.parent {
		lib.mu.RLock()
		for _, fns := range lib.functions {
			for _, fn := range fns {
				k := key{fn.name, len(fn.signature.Arguments), fn.signature.Variadic}
				if !seen[k] {
					seen[k] = true
					out = append(out, fn)
				}
			}
		}
		lib.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b *Function) int {
		return cmp.Or(
			cmp.Compare(a.name.Namespace, b.name.Namespace),
			cmp.Compare(a.name.Local, b.name.Local),
			cmp.Compare(len(a.signature.Arguments), len(b.signature.Arguments)),
		)
	})
	return out
}
