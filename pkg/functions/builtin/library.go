// Package builtin implements the Metapath built-in function library.
//
// Functions are grouped by namespace: the core library (mp), the array,
// map and math libraries, and the Metapath extensions (meta), which
// include a cast function per atomic type.
package builtin

import (
	"sync"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

var (
	library     *functions.Library
	libraryOnce sync.Once
)

// Library returns the shared built-in library. Do not register functions
// on it; call Extend and register on the child instead.
func Library() *functions.Library {
	libraryOnce.Do(func() {
		library = functions.NewLibrary()
		library.Register(stringFunctions()...)
		library.Register(regexFunctions()...)
		library.Register(numericFunctions()...)
		library.Register(sequenceFunctions()...)
		library.Register(nodeFunctions()...)
		library.Register(datetimeFunctions()...)
		library.Register(arrayFunctions()...)
		library.Register(mapFunctions()...)
		library.Register(mathFunctions()...)
		library.Register(metaFunctions()...)
		library.Register(castFunctions()...)
		library.Register(hofFunctions()...)
	})
	return library
}

const (
	det       = functions.Deterministic
	usesFocus = functions.Deterministic | functions.FocusDependent
	dyn       = functions.ContextDependent
)

func mp(local, sig string, props functions.Property, h functions.Handler) *functions.Function {
	return functions.MustNew(types.NSMetapathFunctions, local, sig, props, h)
}

// contextArg returns args[0], or the focus when the function was called
// without arguments.
func contextArg(focus item.Item, args []item.Sequence) item.Sequence {
	if len(args) > 0 {
		return args[0]
	}
	if focus == nil {
		return nil
	}
	return item.Sequence{focus}
}

func optAtomic(s item.Sequence) *item.Atomic {
	if len(s) == 0 {
		return nil
	}
	return s[0].(*item.Atomic)
}

func optString(s item.Sequence) string {
	if a := optAtomic(s); a != nil {
		return a.String()
	}
	return ""
}

func optInt(s item.Sequence) (int, error) {
	a := optAtomic(s)
	if a == nil {
		return 0, nil
	}
	return a.ToInt()
}

func single(it item.Item) item.Sequence { return item.Sequence{it} }

func boolean(b bool) item.Sequence { return single(item.Boolean(b)) }

func stringResult(s string) item.Sequence { return single(item.String(s)) }

func intResult(n int) item.Sequence { return single(item.Int(int64(n))) }
