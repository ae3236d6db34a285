package item

import (
	"slices"

	"github.com/wandmagic/metapath/pkg/types"
)

// Array is an immutable array of member sequences. Positions are 1-based.
type Array struct {
	members []Sequence
}

// NewArray creates an array whose members are the given sequences.
func NewArray(members ...Sequence) *Array {
	return &Array{members: members}
}

// ArrayOf creates an array with one single-item member per item.
func ArrayOf(items ...Item) *Array {
	members := make([]Sequence, len(items))
	for i, it := range items {
		members[i] = Sequence{it}
	}
	return &Array{members: members}
}

// ItemKind implements Item.
func (*Array) ItemKind() Kind { return KindArray }

// Name implements Function.
func (*Array) Name() types.QName { return types.QName{} }

// Arity implements Function.
func (*Array) Arity() int { return 1 }

// Size returns the number of members.
func (a *Array) Size() int { return len(a.members) }

// Members returns the member sequences. The slice must not be modified.
func (a *Array) Members() []Sequence { return a.members }

func indexOutOfBounds(pos, size int) *types.Error {
	return types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %d out of bounds for array of size %d", pos, size)
}

// Get returns the member at the 1-based position pos.
func (a *Array) Get(pos int) (Sequence, error) {
	if pos < 1 || pos > len(a.members) {
		return nil, indexOutOfBounds(pos, len(a.members))
	}
	return a.members[pos-1], nil
}

// Put returns a copy of a with the member at pos replaced.
func (a *Array) Put(pos int, member Sequence) (*Array, error) {
	if pos < 1 || pos > len(a.members) {
		return nil, indexOutOfBounds(pos, len(a.members))
	}
	members := slices.Clone(a.members)
	members[pos-1] = member
	return &Array{members: members}, nil
}

// Append returns a copy of a with member added at the end.
func (a *Array) Append(member Sequence) *Array {
	members := make([]Sequence, len(a.members), len(a.members)+1)
	copy(members, a.members)
	return &Array{members: append(members, member)}
}

// Subarray returns length members starting at the 1-based position start.
func (a *Array) Subarray(start, length int) (*Array, error) {
	if length < 0 {
		return nil, types.Errorf(types.ErrArrayNegativeLength, "negative subarray length %d", length)
	}
	if start < 1 || start > len(a.members)+1 {
		return nil, indexOutOfBounds(start, len(a.members))
	}
	if start-1+length > len(a.members) {
		return nil, indexOutOfBounds(start+length-1, len(a.members))
	}
	return &Array{members: slices.Clone(a.members[start-1 : start-1+length])}, nil
}

// Remove returns a copy of a without the members at the given positions.
func (a *Array) Remove(positions ...int) (*Array, error) {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 1 || p > len(a.members) {
			return nil, indexOutOfBounds(p, len(a.members))
		}
		drop[p] = true
	}
	members := make([]Sequence, 0, len(a.members))
	for i, m := range a.members {
		if !drop[i+1] {
			members = append(members, m)
		}
	}
	return &Array{members: members}, nil
}

// InsertBefore returns a copy of a with member inserted at pos. A position
// one past the end appends.
func (a *Array) InsertBefore(pos int, member Sequence) (*Array, error) {
	if pos < 1 || pos > len(a.members)+1 {
		return nil, indexOutOfBounds(pos, len(a.members))
	}
	return &Array{members: slices.Insert(slices.Clone(a.members), pos-1, member)}, nil
}

// Reverse returns the members in reverse order.
func (a *Array) Reverse() *Array {
	members := slices.Clone(a.members)
	slices.Reverse(members)
	return &Array{members: members}
}
