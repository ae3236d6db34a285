// Package model defines the read-only document model Metapath navigates.
//
// A document is a tree of nodes: a document node owns a single root
// assembly; assemblies own flags and model items (fields and assemblies);
// fields own flags and carry a value; flags carry a value.
//
// Implementations must be comparable (typically pointer types) since the
// evaluator uses node identity for de-duplication, and must return the
// same node for the same position in the tree for the lifetime of an
// evaluation.
package model

import (
	"context"
	"fmt"

	"github.com/wandmagic/metapath/pkg/types"
)

// NodeKind identifies the kind of a document node.
type NodeKind uint8

const (
	KindDocument NodeKind = iota + 1
	KindAssembly
	KindField
	KindFlag
)

// String returns the Metapath name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindAssembly:
		return "assembly"
	case KindField:
		return "field"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// DataType names the atomic type of a flag or field value. The names match
// the Metaschema data type names.
type DataType string

const (
	TypeString          DataType = "string"
	TypeBoolean         DataType = "boolean"
	TypeInteger         DataType = "integer"
	TypeDecimal         DataType = "decimal"
	TypeDate            DataType = "date"
	TypeDateTime        DataType = "date-time"
	TypeTime            DataType = "time"
	TypeDayTimeDuration DataType = "day-time-duration"
	TypeYMDuration      DataType = "year-month-duration"
	TypeURI             DataType = "uri"
	TypeUUID            DataType = "uuid"
	TypeBase64          DataType = "base64"
	TypeToken           DataType = "token"
)

// Value is the atomic content of a flag or field.
type Value struct {
	Lexical string
	Type    DataType
}

// Location is a position in the source resource a node was read from.
type Location struct {
	Line   int
	Column int
	Offset int64
}

// String formats the location as line:column.
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Node is a node in a document tree.
type Node interface {
	// Kind returns the node kind.
	Kind() NodeKind
	// Name returns the qualified name. Documents have a zero name.
	Name() types.QName
	// Parent returns the containing node, or nil for a document node or a
	// detached root.
	Parent() Node
	// Flags returns the flags of an assembly or field in definition order.
	Flags() []Node
	// Flag returns the flag with the given name.
	Flag(name types.QName) (Node, bool)
	// ModelItems returns the child fields and assemblies in document order.
	// A document returns its root assembly.
	ModelItems() []Node
	// Value returns the atomic value of a flag or field.
	Value() (Value, bool)
	// BaseURI returns the URI of the resource containing the node.
	BaseURI() string
	// Location returns where the node was read from, if known.
	Location() (Location, bool)
}

// Loader resolves a URI to a document node.
type Loader interface {
	Load(ctx context.Context, uri string) (Node, error)
}
