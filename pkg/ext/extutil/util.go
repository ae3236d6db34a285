// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// Namespace is the namespace of every extension function. Static contexts
// built by the ext package bind it to the prefix "ext".
const Namespace = "https://github.com/wandmagic/metapath/ns/ext"

// Prefix is the namespace prefix bound to [Namespace].
const Prefix = "ext"

// New declares an extension function. It panics on an invalid signature,
// which is a programming error in the declaring package.
func New(local, signature string, props functions.Property, h functions.Handler) *functions.Function {
	return functions.MustNew(Namespace, local, signature, props, h)
}

// OptAtomic returns the single atomic value of s, or nil when s is empty.
// Arguments have already been converted to their declared types.
func OptAtomic(s item.Sequence) *item.Atomic {
	if len(s) == 0 {
		return nil
	}
	a, _ := s[0].(*item.Atomic)
	return a
}

// OptString returns the string value of s, or "" when s is empty.
func OptString(s item.Sequence) string {
	if a := OptAtomic(s); a != nil {
		return a.String()
	}
	return ""
}

// NodeArg returns the node in args[0], or the focus when there are no
// arguments. ok is false when the argument is empty.
func NodeArg(focus item.Item, args []item.Sequence) (n item.Node, ok bool, err error) {
	var seq item.Sequence
	switch {
	case len(args) > 0:
		seq = args[0]
	case focus != nil:
		seq = item.Sequence{focus}
	}
	if len(seq) == 0 {
		return item.Node{}, false, nil
	}
	n, ok = seq[0].(item.Node)
	if !ok {
		return item.Node{}, false, types.Errorf(types.ErrFocusNotNode, "expected a node but found a %s item", seq[0].ItemKind())
	}
	return n, true, nil
}

// String wraps s as a one-item sequence.
func String(s string) item.Sequence { return item.Sequence{item.String(s)} }

// Strings wraps each string as a string item.
func Strings(values []string) item.Sequence {
	out := make(item.Sequence, len(values))
	for i, v := range values {
		out[i] = item.String(v)
	}
	return out
}
