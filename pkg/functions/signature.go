package functions

import (
	"fmt"
	"strings"

	"github.com/wandmagic/metapath/pkg/item"
)

// ParseSignature parses a signature declaration such as
//
//	(string?, decimal, decimal) as string
//	($values as any-atomic-type*...) as string
//
// Parameter names are optional. A trailing "..." marks the function
// variadic in its last parameter.
func ParseSignature(sig string) (Signature, error) {
	sig = strings.TrimSpace(sig)
	if !strings.HasPrefix(sig, "(") {
		return Signature{}, fmt.Errorf("invalid signature %q: missing parameter list", sig)
	}
	end := matchingParen(sig, 0)
	if end < 0 {
		return Signature{}, fmt.Errorf("invalid signature %q: unmatched (", sig)
	}

	var result Signature
	params := strings.TrimSpace(sig[1:end])
	if strings.HasSuffix(params, "...") {
		result.Variadic = true
		params = strings.TrimSuffix(params, "...")
	}
	if params != "" {
		for _, p := range splitTopLevel(params, ',') {
			arg, err := parseArgument(p)
			if err != nil {
				return Signature{}, fmt.Errorf("invalid signature %q: %w", sig, err)
			}
			result.Arguments = append(result.Arguments, arg)
		}
	}
	if result.Variadic && len(result.Arguments) == 0 {
		return Signature{}, fmt.Errorf("invalid signature %q: variadic without parameters", sig)
	}

	rest := strings.TrimSpace(sig[end+1:])
	if !strings.HasPrefix(rest, "as ") {
		return Signature{}, fmt.Errorf("invalid signature %q: missing return type", sig)
	}
	ret, err := ParseSequenceType(strings.TrimPrefix(rest, "as "))
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: %w", sig, err)
	}
	result.Return = ret
	return result, nil
}

func parseArgument(s string) (Argument, error) {
	s = strings.TrimSpace(s)
	var arg Argument
	if strings.HasPrefix(s, "$") {
		name, typ, found := strings.Cut(s[1:], " as ")
		if !found {
			return Argument{}, fmt.Errorf("parameter %q has no type", s)
		}
		arg.Name = strings.TrimSpace(name)
		s = typ
	}
	t, err := ParseSequenceType(s)
	if err != nil {
		return Argument{}, err
	}
	arg.Type = t
	return arg, nil
}

// ParseSequenceType parses a sequence type such as "string?", "node()*",
// "meta:integer" or "map(*)". Atomic type names may carry a namespace
// prefix, which is ignored.
func ParseSequenceType(s string) (SequenceType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SequenceType{}, fmt.Errorf("empty sequence type")
	}
	if s == "empty-sequence()" {
		return SequenceType{Item: ItemType{Kind: EmptySequence}, Occurrence: ZeroOrOne}, nil
	}

	occ := One
	switch s[len(s)-1] {
	case '?':
		occ = ZeroOrOne
	case '*':
		occ = ZeroOrMore
	case '+':
		occ = OneOrMore
	}
	if occ != One {
		s = s[:len(s)-1]
	}

	it, err := ParseItemType(s)
	if err != nil {
		return SequenceType{}, err
	}
	return SequenceType{Item: it, Occurrence: occ}, nil
}

// ParseItemType parses an item type without an occurrence indicator.
func ParseItemType(s string) (ItemType, error) {
	switch s {
	case "item()":
		return ItemType{Kind: AnyItem}, nil
	case "node()":
		return ItemType{Kind: NodeItem}, nil
	case "function(*)":
		return ItemType{Kind: FunctionItem}, nil
	case "array(*)":
		return ItemType{Kind: ArrayItem}, nil
	case "map(*)":
		return ItemType{Kind: MapItem}, nil
	case "any-atomic-type":
		return ItemType{Kind: AtomicItem, Atomic: item.TypeAnyAtomic}, nil
	}
	name := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		name = s[i+1:]
	}
	if t, ok := item.TypeByName(name); ok {
		return ItemType{Kind: AtomicItem, Atomic: t}, nil
	}
	return ItemType{}, fmt.Errorf("unknown item type %q", s)
}

// matchingParen returns the index of the parenthesis closing the one at
// open, or -1.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s at sep, ignoring separators nested in parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
