// Package memdoc provides an in-memory implementation of the Metapath
// document model, with loaders that build documents from JSON or YAML.
//
// Mapping from JSON/YAML:
//   - the top-level object becomes the document; when it has a single
//     object member, that member is the root assembly, otherwise the
//     members are wrapped in an assembly named [Options.RootName]
//   - members whose name starts with "@" become flags
//   - other scalar members become fields (or flags with
//     [Options.ScalarsAsFlags])
//   - object members become assemblies, unless they carry a "$value"
//     member, in which case they become a field whose flags are the
//     remaining scalar members
//   - array members expand into repeated siblings with the member name
//   - null members are dropped
package memdoc

import (
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

// ValueMember is the object member that holds the value of a field with flags.
const ValueMember = "$value"

// Node is a node of an in-memory document.
type Node struct {
	kind    model.NodeKind
	name    types.QName
	parent  *Node
	flags   []model.Node
	items   []model.Node
	value   model.Value
	hasVal  bool
	baseURI string
	loc     model.Location
	hasLoc  bool
}

var _ model.Node = (*Node)(nil)

// NewDocument creates an empty document node for the given base URI.
func NewDocument(baseURI string) *Node {
	return &Node{kind: model.KindDocument, baseURI: baseURI}
}

// AddAssembly appends a child assembly.
func (n *Node) AddAssembly(name types.QName) *Node {
	child := &Node{kind: model.KindAssembly, name: name, parent: n, baseURI: n.baseURI}
	n.items = append(n.items, child)
	return child
}

// AddField appends a child field with the given value.
func (n *Node) AddField(name types.QName, v model.Value) *Node {
	child := &Node{kind: model.KindField, name: name, parent: n, baseURI: n.baseURI, value: v, hasVal: true}
	n.items = append(n.items, child)
	return child
}

// AddFlag appends a flag with the given value.
func (n *Node) AddFlag(name types.QName, v model.Value) *Node {
	child := &Node{kind: model.KindFlag, name: name, parent: n, baseURI: n.baseURI, value: v, hasVal: true}
	n.flags = append(n.flags, child)
	return child
}

// SetLocation records where the node was read from.
func (n *Node) SetLocation(loc model.Location) *Node {
	n.loc = loc
	n.hasLoc = true
	return n
}

// Kind implements model.Node.
func (n *Node) Kind() model.NodeKind { return n.kind }

// Name implements model.Node.
func (n *Node) Name() types.QName { return n.name }

// Parent implements model.Node.
func (n *Node) Parent() model.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Flags implements model.Node.
func (n *Node) Flags() []model.Node { return n.flags }

// Flag implements model.Node.
func (n *Node) Flag(name types.QName) (model.Node, bool) {
	for _, f := range n.flags {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// ModelItems implements model.Node.
func (n *Node) ModelItems() []model.Node { return n.items }

// Value implements model.Node.
func (n *Node) Value() (model.Value, bool) { return n.value, n.hasVal }

// BaseURI implements model.Node.
func (n *Node) BaseURI() string { return n.baseURI }

// Location implements model.Node.
func (n *Node) Location() (model.Location, bool) { return n.loc, n.hasLoc }

// Root returns the root assembly of a document node.
func (n *Node) Root() *Node {
	if n.kind != model.KindDocument || len(n.items) == 0 {
		return nil
	}
	return n.items[0].(*Node)
}
