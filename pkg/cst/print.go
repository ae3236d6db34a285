package cst

import (
	"strconv"
	"strings"
)

// Print renders the tree rooted at n, one node per line, children
// indented by two spaces.
func Print(n *Node) string {
	var sb strings.Builder
	printNode(&sb, n, 0)
	return sb.String()
}

// String renders the tree rooted at n.
func (n *Node) String() string {
	return Print(n)
}

func printNode(sb *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	if n == nil {
		sb.WriteString("<nil>\n")
		return
	}
	sb.WriteString(n.Kind.String())
	if label := n.label(); label != "" {
		sb.WriteByte(' ')
		sb.WriteString(label)
	}
	sb.WriteByte('\n')

	for _, b := range n.Bindings {
		sb.WriteString(indent + "  $" + b.Name.String() + " :=\n")
		printNode(sb, b.Expr, depth+2)
	}
	for _, c := range n.Children {
		printNode(sb, c, depth+1)
	}
	for _, p := range n.Predicates {
		sb.WriteString(indent + "  [\n")
		printNode(sb, p, depth+2)
		sb.WriteString(indent + "  ]\n")
	}
}

func (n *Node) label() string {
	switch n.Kind {
	case KindLiteral:
		return n.Value.Type().Name() + " " + strconv.Quote(n.Value.String())
	case KindStep:
		return n.Axis.String() + "::" + n.Test.String()
	case KindVariable:
		return "$" + n.Name.String()
	case KindFunctionCall:
		return n.Name.String()
	case KindFunctionRef:
		return n.Name.String() + "#" + strconv.Itoa(n.Arity)
	case KindInlineFunction:
		parts := make([]string, len(n.Params))
		for i, p := range n.Params {
			parts[i] = "$" + p.Name.String()
			if p.Type != nil {
				parts[i] += " as " + p.Type.String()
			}
		}
		s := "(" + strings.Join(parts, ", ") + ")"
		if n.Return != nil {
			s += " as " + n.Return.String()
		}
		return s
	case KindArithmetic, KindUnary:
		return n.Arith.String()
	case KindValueCompare:
		return n.Compare.ValueName()
	case KindGeneralCompare:
		return n.Compare.String()
	case KindLookup, KindUnaryLookup:
		switch n.Lookup {
		case LookupName, LookupInteger:
			return "?" + n.Value.String()
		case LookupWildcard:
			return "?*"
		default:
			return "?()"
		}
	case KindCast, KindCastable:
		s := n.Type.Name()
		if n.Optional {
			s += "?"
		}
		return s
	default:
		return ""
	}
}
