package item

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

// Node is an item wrapping a document-model node. Two node items are equal
// when they wrap the same model node.
type Node struct {
	model.Node
}

// NodeOf wraps a model node.
func NodeOf(n model.Node) Node {
	return Node{Node: n}
}

// ItemKind implements Item.
func (Node) ItemKind() Kind { return KindNode }

// Root returns the topmost ancestor of n.
func (n Node) Root() Node {
	cur := n.Node
	for p := cur.Parent(); p != nil; p = cur.Parent() {
		cur = p
	}
	return Node{cur}
}

// Ancestors returns the ancestors of n, nearest first.
func (n Node) Ancestors() []Node {
	var out []Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, Node{p})
	}
	return out
}

// Children returns the flags followed by the model items of n.
func (n Node) Children() []Node {
	flags, items := n.Flags(), n.ModelItems()
	out := make([]Node, 0, len(flags)+len(items))
	for _, f := range flags {
		out = append(out, Node{f})
	}
	for _, c := range items {
		out = append(out, Node{c})
	}
	return out
}

// Descendants returns the model-item descendants of n in document order.
func (n Node) Descendants() []Node {
	var out []Node
	var walk func(model.Node)
	walk = func(m model.Node) {
		for _, c := range m.ModelItems() {
			out = append(out, Node{c})
			walk(c)
		}
	}
	walk(n.Node)
	return out
}

// Atomize returns the typed value of a flag or field. Assemblies and
// documents have no typed value.
func (n Node) Atomize() (*Atomic, error) {
	v, ok := n.Value()
	if !ok {
		return nil, types.Errorf(types.ErrType, "%s %q has no atomic value", n.Kind(), n.Name().Local)
	}
	return FromModelValue(v)
}

// StringValue returns the lexical value of a flag or field, or the
// concatenated values of the descendant fields of an assembly or document.
func (n Node) StringValue() string {
	if v, ok := n.Value(); ok {
		return v.Lexical
	}
	var sb strings.Builder
	for _, d := range n.Descendants() {
		if v, ok := d.Value(); ok {
			sb.WriteString(v.Lexical)
		}
	}
	return sb.String()
}

// Path returns a location path addressing n from its root, such as
// /catalog[1]/group[2]/@id.
func (n Node) Path() string {
	var parts []string
	cur := n.Node
	for cur != nil && cur.Kind() != model.KindDocument {
		parent := cur.Parent()
		switch cur.Kind() {
		case model.KindFlag:
			parts = append(parts, "@"+cur.Name().Local)
		default:
			pos := 1
			if parent != nil {
				pos = 0
				for _, sib := range parent.ModelItems() {
					if sib.Name() == cur.Name() {
						pos++
					}
					if sib == cur {
						break
					}
				}
			}
			parts = append(parts, cur.Name().Local+"["+strconv.Itoa(pos)+"]")
		}
		cur = parent
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// orderKey returns the position path of n from its root. Flags sort before
// model items.
func (n Node) orderKey() []int {
	var key []int
	cur := n.Node
	for p := cur.Parent(); p != nil; p = cur.Parent() {
		key = append(key, childIndex(p, cur))
		cur = p
	}
	slices.Reverse(key)
	return key
}

func childIndex(parent, child model.Node) int {
	flags := parent.Flags()
	for i, f := range flags {
		if f == child {
			return i
		}
	}
	for i, c := range parent.ModelItems() {
		if c == child {
			return len(flags) + i
		}
	}
	return -1
}

// CompareDocumentOrder orders two nodes of the same tree. Nodes of
// different trees are ordered by the base URI of their roots.
func CompareDocumentOrder(a, b Node) int {
	if a.Node == b.Node {
		return 0
	}
	ra, rb := a.Root(), b.Root()
	if ra.Node != rb.Node {
		return strings.Compare(ra.BaseURI(), rb.BaseURI())
	}
	return slices.Compare(a.orderKey(), b.orderKey())
}

// SortDocumentOrder removes duplicate nodes and sorts the rest in
// document order.
func SortDocumentOrder(nodes []Node) []Node {
	type keyed struct {
		node Node
		root model.Node
		key  []int
	}
	seen := make(map[model.Node]bool, len(nodes))
	ks := make([]keyed, 0, len(nodes))
	for _, n := range nodes {
		if seen[n.Node] {
			continue
		}
		seen[n.Node] = true
		ks = append(ks, keyed{node: n, root: n.Root().Node, key: n.orderKey()})
	}
	slices.SortStableFunc(ks, func(x, y keyed) int {
		if x.root != y.root {
			return cmp.Compare(x.root.BaseURI(), y.root.BaseURI())
		}
		return slices.Compare(x.key, y.key)
	})
	out := make([]Node, len(ks))
	for i, k := range ks {
		out[i] = k.node
	}
	return out
}
