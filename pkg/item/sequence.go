package item

import (
	"time"

	"github.com/wandmagic/metapath/pkg/types"
)

// Sequence is an ordered, flat collection of items. A nil sequence is the
// empty sequence.
type Sequence []Item

// Empty is the empty sequence.
var Empty Sequence

// Of creates a sequence from items.
func Of(items ...Item) Sequence {
	return Sequence(items)
}

// IsEmpty reports whether s has no items.
func (s Sequence) IsEmpty() bool { return len(s) == 0 }

// First returns the first item, or nil.
func (s Sequence) First() Item {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// ZeroOrOne returns the only item of s, nil when s is empty, or FORG0003
// when s has more than one item.
func (s Sequence) ZeroOrOne() (Item, error) {
	switch len(s) {
	case 0:
		return nil, nil
	case 1:
		return s[0], nil
	default:
		return nil, types.Errorf(types.ErrZeroOrOne, "expected at most one item, found %d", len(s))
	}
}

// ExactlyOne returns the only item of s, or FORG0005.
func (s Sequence) ExactlyOne() (Item, error) {
	if len(s) != 1 {
		return nil, types.Errorf(types.ErrExactlyOne, "expected exactly one item, found %d", len(s))
	}
	return s[0], nil
}

// Nodes returns the node items of s and reports whether every item was a
// node.
func (s Sequence) Nodes() ([]Node, bool) {
	out := make([]Node, 0, len(s))
	for _, it := range s {
		n, ok := it.(Node)
		if !ok {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// FromNodes converts nodes to a sequence.
func FromNodes(nodes []Node) Sequence {
	out := make(Sequence, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// AtomizeItem returns the atomized values of one item. Arrays atomize to
// the concatenation of their atomized members; maps and other functions
// cannot be atomized.
func AtomizeItem(it Item) ([]*Atomic, error) {
	switch v := it.(type) {
	case *Atomic:
		return []*Atomic{v}, nil
	case Node:
		a, err := v.Atomize()
		if err != nil {
			return nil, err
		}
		return []*Atomic{a}, nil
	case *Array:
		var out []*Atomic
		for _, m := range v.members {
			as, err := Atomize(m)
			if err != nil {
				return nil, err
			}
			out = append(out, as...)
		}
		return out, nil
	default:
		return nil, types.Errorf(types.ErrAtomizeFunction, "cannot atomize a %s item", it.ItemKind())
	}
}

// Atomize returns the atomized values of s.
func Atomize(s Sequence) ([]*Atomic, error) {
	out := make([]*Atomic, 0, len(s))
	for _, it := range s {
		as, err := AtomizeItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, as...)
	}
	return out, nil
}

// AtomizeOne atomizes s and requires at most one value. It returns nil
// for an empty sequence.
func AtomizeOne(s Sequence) (*Atomic, error) {
	as, err := Atomize(s)
	if err != nil {
		return nil, err
	}
	switch len(as) {
	case 0:
		return nil, nil
	case 1:
		return as[0], nil
	default:
		return nil, types.Errorf(types.ErrType, "expected at most one atomic value, found %d", len(as))
	}
}

// EffectiveBooleanValue computes the effective boolean value of s.
func EffectiveBooleanValue(s Sequence) (bool, error) {
	if len(s) == 0 {
		return false, nil
	}
	if _, ok := s[0].(Node); ok {
		return true, nil
	}
	if len(s) == 1 {
		if a, ok := s[0].(*Atomic); ok {
			switch {
			case a.typ == TypeBoolean:
				return a.b, nil
			case a.typ.IsStringLike():
				return a.s != "", nil
			case a.typ.IsNumeric():
				return a.Sign() != 0, nil
			}
		}
	}
	return false, types.Errorf(types.ErrInvalidArgumentType,
		"effective boolean value is not defined for a sequence starting with a %s item", s[0].ItemKind())
}

// StringValue returns the string value of an item.
func StringValue(it Item) (string, error) {
	switch v := it.(type) {
	case *Atomic:
		return v.String(), nil
	case Node:
		return v.StringValue(), nil
	default:
		return "", types.Errorf(types.ErrAtomizeFunction, "a %s item has no string value", it.ItemKind())
	}
}

// DeepEqual compares two sequences item by item. Atomic items compare with
// eq semantics, treating incomparable values as unequal; nodes compare
// structurally; arrays and maps compare member-wise.
func DeepEqual(a, b Sequence, implicit *time.Location) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !deepEqualItems(a[i], b[i], implicit) {
			return false
		}
	}
	return true
}

func deepEqualItems(x, y Item, implicit *time.Location) bool {
	switch xv := x.(type) {
	case *Atomic:
		yv, ok := y.(*Atomic)
		if !ok {
			return false
		}
		eq, err := ValueCompare(OpEq, xv, yv, implicit)
		return err == nil && eq
	case Node:
		yv, ok := y.(Node)
		return ok && deepEqualNodes(xv, yv, implicit)
	case *Array:
		yv, ok := y.(*Array)
		if !ok || len(xv.members) != len(yv.members) {
			return false
		}
		for i := range xv.members {
			if !DeepEqual(xv.members[i], yv.members[i], implicit) {
				return false
			}
		}
		return true
	case *Map:
		yv, ok := y.(*Map)
		if !ok || xv.Size() != yv.Size() {
			return false
		}
		for _, e := range xv.Entries() {
			other, ok := yv.Get(e.Key)
			if !ok || !DeepEqual(e.Value, other, implicit) {
				return false
			}
		}
		return true
	default:
		return x == y
	}
}

func deepEqualNodes(x, y Node, implicit *time.Location) bool {
	if x.Node == y.Node {
		return true
	}
	if x.Kind() != y.Kind() || x.Name() != y.Name() {
		return false
	}
	xv, xok := x.Value()
	yv, yok := y.Value()
	if xok != yok {
		return false
	}
	if xok {
		xa, err1 := FromModelValue(xv)
		ya, err2 := FromModelValue(yv)
		if err1 != nil || err2 != nil {
			if xv.Lexical != yv.Lexical {
				return false
			}
		} else if eq, err := ValueCompare(OpEq, xa, ya, implicit); err != nil || !eq {
			return false
		}
	}

	xf, yf := x.Flags(), y.Flags()
	if len(xf) != len(yf) {
		return false
	}
	for _, f := range xf {
		g, ok := y.Flag(f.Name())
		if !ok || !deepEqualNodes(Node{f}, Node{g}, implicit) {
			return false
		}
	}

	xi, yi := x.ModelItems(), y.ModelItems()
	if len(xi) != len(yi) {
		return false
	}
	for i := range xi {
		if !deepEqualNodes(Node{xi[i]}, Node{yi[i]}, implicit) {
			return false
		}
	}
	return true
}
