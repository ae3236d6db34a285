package functions

import (
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

// Convert applies the function conversion rules to an argument: atomic
// parameters atomize their argument, cast string-like values to the
// declared type and promote numerics; other parameters check the item
// kind. The result must satisfy the declared occurrence.
func Convert(seq item.Sequence, st SequenceType) (item.Sequence, error) {
	var out item.Sequence
	switch st.Item.Kind {
	case AnyItem:
		out = seq
	case EmptySequence:
		if len(seq) != 0 {
			return nil, types.Errorf(types.ErrType, "expected an empty sequence, found %d items", len(seq))
		}
		return seq, nil
	case AtomicItem:
		atoms, err := item.Atomize(seq)
		if err != nil {
			return nil, err
		}
		out = make(item.Sequence, len(atoms))
		for i, a := range atoms {
			c, err := convertAtomic(a, st.Item.Atomic)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
	default:
		for _, it := range seq {
			if !st.Item.Matches(it) {
				return nil, types.Errorf(types.ErrType, "expected %s, found a %s item", st.Item, it.ItemKind())
			}
		}
		out = seq
	}

	if !st.Occurrence.Allows(len(out)) {
		return nil, types.Errorf(types.ErrType, "expected %s, found %d items", st, len(out))
	}
	return out, nil
}

func convertAtomic(a *item.Atomic, target item.AtomicType) (*item.Atomic, error) {
	src := a.Type()
	switch {
	case src.DerivesFrom(target):
		return a, nil
	case target == item.TypeDecimal && src.IsNumeric():
		return item.Cast(a, target)
	case target == item.TypeString && (src == item.TypeURI || src == item.TypeUUID):
		return item.Cast(a, target)
	case src.IsStringLike():
		return item.Cast(a, target)
	default:
		return nil, types.Errorf(types.ErrType, "expected %s, found %s", target, src)
	}
}
