// Package functions provides function signatures and the function library
// registry used to resolve Metapath function calls.
//
// A function is identified by its qualified name and arity. Signatures are
// declared with a compact sequence-type syntax:
//
//	fn := functions.MustNew(types.NSMetapathFunctions, "substring",
//	    "(string?, decimal, decimal) as string",
//	    functions.Deterministic, substringHandler)
//
// Libraries are layered: [Library.Extend] creates a child library whose
// registrations shadow, but never modify, the parent.
package functions

import (
	"strings"

	"github.com/wandmagic/metapath/pkg/item"
)

// Occurrence is the cardinality of a sequence type.
type Occurrence uint8

const (
	One Occurrence = iota
	ZeroOrOne
	ZeroOrMore
	OneOrMore
)

// Symbol returns the occurrence indicator: "", "?", "*" or "+".
func (o Occurrence) Symbol() string {
	switch o {
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return ""
	}
}

// Allows reports whether a sequence of length n satisfies o.
func (o Occurrence) Allows(n int) bool {
	switch o {
	case One:
		return n == 1
	case ZeroOrOne:
		return n <= 1
	case OneOrMore:
		return n >= 1
	default:
		return true
	}
}

// ItemTypeKind classifies item types.
type ItemTypeKind uint8

const (
	AnyItem ItemTypeKind = iota
	AtomicItem
	NodeItem
	FunctionItem
	ArrayItem
	MapItem
	EmptySequence
)

// ItemType is the item part of a sequence type.
type ItemType struct {
	Kind   ItemTypeKind
	Atomic item.AtomicType // for AtomicItem; TypeAnyAtomic accepts any atomic value
}

// String renders the item type in signature syntax.
func (t ItemType) String() string {
	switch t.Kind {
	case AtomicItem:
		return t.Atomic.Name()
	case NodeItem:
		return "node()"
	case FunctionItem:
		return "function(*)"
	case ArrayItem:
		return "array(*)"
	case MapItem:
		return "map(*)"
	case EmptySequence:
		return "empty-sequence()"
	default:
		return "item()"
	}
}

// Matches reports whether it is an instance of t without conversion.
func (t ItemType) Matches(it item.Item) bool {
	switch t.Kind {
	case AnyItem:
		return true
	case AtomicItem:
		a, ok := it.(*item.Atomic)
		return ok && a.Type().DerivesFrom(t.Atomic)
	case NodeItem:
		return it.ItemKind() == item.KindNode
	case FunctionItem:
		return item.IsFunction(it)
	case ArrayItem:
		return it.ItemKind() == item.KindArray
	case MapItem:
		return it.ItemKind() == item.KindMap
	default:
		return false
	}
}

// SequenceType is an item type with an occurrence indicator.
type SequenceType struct {
	Item       ItemType
	Occurrence Occurrence
}

// String renders the sequence type in signature syntax.
func (s SequenceType) String() string {
	if s.Item.Kind == EmptySequence {
		return s.Item.String()
	}
	return s.Item.String() + s.Occurrence.Symbol()
}

// Common sequence types.
var (
	AnyItems     = SequenceType{Item: ItemType{Kind: AnyItem}, Occurrence: ZeroOrMore}
	AnyAtomicOpt = SequenceType{Item: ItemType{Kind: AtomicItem}, Occurrence: ZeroOrOne}
)

// Argument is a declared function parameter.
type Argument struct {
	Name string
	Type SequenceType
}

// Signature describes the parameters and result of a function.
type Signature struct {
	Arguments []Argument
	// Variadic functions accept any number of additional arguments of the
	// type of the last declared parameter.
	Variadic bool
	Return   SequenceType
}

// String renders the signature in declaration syntax.
func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, a := range s.Arguments {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.Name != "" {
			sb.WriteString("$" + a.Name + " as ")
		}
		sb.WriteString(a.Type.String())
	}
	if s.Variadic {
		sb.WriteString("...")
	}
	sb.WriteString(") as ")
	sb.WriteString(s.Return.String())
	return sb.String()
}

// AcceptsArity reports whether the signature accepts n arguments.
func (s Signature) AcceptsArity(n int) bool {
	if s.Variadic {
		return n >= len(s.Arguments)
	}
	return n == len(s.Arguments)
}

// ArgumentType returns the declared type of the i-th argument.
func (s Signature) ArgumentType(i int) SequenceType {
	if i >= len(s.Arguments) {
		return s.Arguments[len(s.Arguments)-1].Type
	}
	return s.Arguments[i].Type
}
