// Package item implements the Metapath runtime value model.
//
// Every value is a [Sequence] of [Item]s. An item is one of:
//   - *Atomic: a scalar of one of the closed set of atomic types
//   - Node: a wrapper around a document-model node
//   - *Array and *Map: function items supporting positional and keyed lookup
//   - any other [Function] implementation (named or inline functions)
//
// Items are immutable once constructed and safe to share between
// goroutines.
package item

import "github.com/wandmagic/metapath/pkg/types"

// Kind identifies the variant of an item.
type Kind uint8

const (
	KindAtomic Kind = iota + 1
	KindNode
	KindArray
	KindMap
	KindFunction
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "atomic"
	case KindNode:
		return "node"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Item is a single Metapath value.
type Item interface {
	ItemKind() Kind
}

// Function is a callable item. Arrays and maps are functions of arity one.
type Function interface {
	Item
	// Name returns the function name; anonymous functions return a zero name.
	Name() types.QName
	// Arity returns the number of arguments the function accepts.
	Arity() int
}

// IsFunction reports whether it is a function item, including arrays and maps.
func IsFunction(it Item) bool {
	switch it.ItemKind() {
	case KindArray, KindMap, KindFunction:
		return true
	default:
		return false
	}
}
