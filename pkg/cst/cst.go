// Package cst defines the compiled syntax tree of a Metapath expression.
//
// The tree is a closed tagged union: every node is a [Node] whose [Kind]
// selects which payload fields are meaningful. Trees are built once by
// the parser, never modified afterwards, and may be shared by concurrent
// evaluations. Two compilations of the same source in the same static
// context produce trees that are equal under reflect.DeepEqual.
package cst

import (
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// Kind identifies the variant of a CST node.
type Kind uint8

const (
	KindLiteral         Kind = iota + 1 // Value
	KindEmpty                           // ()
	KindSequence                        // Children: the comma-separated operands
	KindContextItem                     // .
	KindRoot                            // leading / : the root of the context node
	KindPath                            // Children: the steps, evaluated left to right
	KindStep                            // Axis, Test, Predicates
	KindFilter                          // Children[0] filtered by Predicates
	KindVariable                        // Name
	KindFunctionCall                    // Name, Children: arguments
	KindDynamicCall                     // Children[0]: the function, Children[1:]: arguments
	KindFunctionRef                     // Name, Arity
	KindInlineFunction                  // Params, Return, Children[0]: body
	KindArithmetic                      // Arith, Children[0..1]
	KindUnary                           // Arith (OpAdd or OpSubtract), Children[0]
	KindValueCompare                    // Compare, Children[0..1]
	KindGeneralCompare                  // Compare, Children[0..1]
	KindAnd                             // Children[0..1]
	KindOr                              // Children[0..1]
	KindRange                           // Children[0..1]
	KindUnion                           // Children[0..1]
	KindIntersect                       // Children[0..1]
	KindExcept                          // Children[0..1]
	KindConcat                          // || : Children[0..1]
	KindSimpleMap                       // ! : Children[0..1]
	KindFor                             // Bindings, Children[0]: return expression
	KindLet                             // Bindings, Children[0]: return expression
	KindSome                            // Bindings, Children[0]: satisfies expression
	KindEvery                           // Bindings, Children[0]: satisfies expression
	KindIf                              // Children: condition, then, else
	KindArray                           // [a, b]: Children are the members
	KindCurlyArray                      // array{e}: each item of Children[0] is a member
	KindMap                             // map{k: v}: Children alternate keys and values
	KindLookup                          // Children[0]?key
	KindUnaryLookup                     // ?key against the context item
	KindCast                            // Children[0] cast as Type
	KindCastable                        // Children[0] castable as Type
)

var kindNames = [...]string{
	KindLiteral:        "Literal",
	KindEmpty:          "Empty",
	KindSequence:       "Sequence",
	KindContextItem:    "ContextItem",
	KindRoot:           "Root",
	KindPath:           "Path",
	KindStep:           "Step",
	KindFilter:         "Filter",
	KindVariable:       "Variable",
	KindFunctionCall:   "FunctionCall",
	KindDynamicCall:    "DynamicCall",
	KindFunctionRef:    "FunctionRef",
	KindInlineFunction: "InlineFunction",
	KindArithmetic:     "Arithmetic",
	KindUnary:          "Unary",
	KindValueCompare:   "ValueCompare",
	KindGeneralCompare: "GeneralCompare",
	KindAnd:            "And",
	KindOr:             "Or",
	KindRange:          "Range",
	KindUnion:          "Union",
	KindIntersect:      "Intersect",
	KindExcept:         "Except",
	KindConcat:         "Concat",
	KindSimpleMap:      "SimpleMap",
	KindFor:            "For",
	KindLet:            "Let",
	KindSome:           "Some",
	KindEvery:          "Every",
	KindIf:             "If",
	KindArray:          "Array",
	KindCurlyArray:     "CurlyArray",
	KindMap:            "Map",
	KindLookup:         "Lookup",
	KindUnaryLookup:    "UnaryLookup",
	KindCast:           "Cast",
	KindCastable:       "Castable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// Axis is the direction of a path step.
type Axis uint8

const (
	AxisChild Axis = iota + 1
	AxisDescendant
	AxisDescendantOrSelf
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisSelf
	AxisFlag
	AxisFollowingSibling
	AxisPrecedingSibling
	AxisFollowing
	AxisPreceding
)

var axisNames = map[Axis]string{
	AxisChild:            "child",
	AxisDescendant:       "descendant",
	AxisDescendantOrSelf: "descendant-or-self",
	AxisParent:           "parent",
	AxisAncestor:         "ancestor",
	AxisAncestorOrSelf:   "ancestor-or-self",
	AxisSelf:             "self",
	AxisFlag:             "flag",
	AxisFollowingSibling: "following-sibling",
	AxisPrecedingSibling: "preceding-sibling",
	AxisFollowing:        "following",
	AxisPreceding:        "preceding",
}

func (a Axis) String() string { return axisNames[a] }

// AxisByName returns the axis with the given name.
func AxisByName(name string) (Axis, bool) {
	for a, n := range axisNames {
		if n == name {
			return a, true
		}
	}
	return 0, false
}

// Reverse reports whether the axis selects nodes before the context node
// in document order. Positional predicates on reverse axes count from the
// context node outwards.
func (a Axis) Reverse() bool {
	switch a {
	case AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisPrecedingSibling, AxisPreceding:
		return true
	default:
		return false
	}
}

// TestKind classifies node tests.
type TestKind uint8

const (
	TestName           TestKind = iota + 1 // Name; AnyNamespace ignores Name.Namespace
	TestAnyName                            // *
	TestLocalWildcard                      // prefix:* matches Name.Namespace
	TestNamespaceAny                       // *:local matches Name.Local
	TestAnyNode                            // node()
)

// NodeTest selects nodes on an axis.
type NodeTest struct {
	Kind         TestKind
	Name         types.QName
	AnyNamespace bool
}

// String renders the test in source syntax.
func (t NodeTest) String() string {
	switch t.Kind {
	case TestAnyName:
		return "*"
	case TestLocalWildcard:
		return "Q{" + t.Name.Namespace + "}*"
	case TestNamespaceAny:
		return "*:" + t.Name.Local
	case TestAnyNode:
		return "node()"
	default:
		if t.AnyNamespace {
			return t.Name.Local
		}
		return t.Name.String()
	}
}

// LookupKind classifies the key specifier of a lookup.
type LookupKind uint8

const (
	LookupName     LookupKind = iota + 1 // ?name: Value is the string key
	LookupInteger                        // ?3: Value is the integer key
	LookupWildcard                       // ?*
	LookupExpr                           // ?(expr): the last child is the key expression
)

// Binding is a variable bound by for, let, some or every.
type Binding struct {
	Name types.QName
	Expr *Node
}

// Param is a parameter of an inline function.
type Param struct {
	Name types.QName
	Type *functions.SequenceType
}

// Node is a CST node. Only the fields documented for its Kind are set.
type Node struct {
	Kind Kind
	// Pos is the byte offset of the node in the source.
	Pos      int
	Children []*Node

	Value      *item.Atomic
	Name       types.QName
	Arity      int
	Axis       Axis
	Test       NodeTest
	Predicates []*Node
	Arith      item.ArithOp
	Compare    item.CompareOp
	Bindings   []Binding
	Params     []Param
	Return     *functions.SequenceType
	Lookup     LookupKind
	// Type and Optional describe the target of cast and castable.
	Type     item.AtomicType
	Optional bool
}

// New creates a node of the given kind.
func New(kind Kind, pos int, children ...*Node) *Node {
	return &Node{Kind: kind, Pos: pos, Children: children}
}

// Expression is a compiled Metapath expression: the tree, its source and
// the static context it was compiled in.
type Expression struct {
	root   *Node
	source string
	static *static.Context
}

// NewExpression creates an expression.
func NewExpression(root *Node, source string, sc *static.Context) *Expression {
	return &Expression{root: root, source: source, static: sc}
}

// Root returns the top node of the tree.
func (e *Expression) Root() *Node { return e.root }

// Source returns the expression text.
func (e *Expression) Source() string { return e.source }

// Static returns the static context the expression was compiled in.
func (e *Expression) Static() *static.Context { return e.static }

// String returns the expression text.
func (e *Expression) String() string { return e.source }
