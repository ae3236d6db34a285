// Package extmodel provides functions that expose document-model details
// not reachable through path expressions: node kinds, source locations,
// flag names and structural fingerprints.
//
// Each function taking a node also has a zero-argument form that uses the
// context item:
//
//	//control[ext:line() > 100]
//	ext:fingerprint(/catalog/group[1]) = ext:fingerprint(doc('copy.json')/catalog/group[1])
package extmodel

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

const (
	det       = functions.Deterministic
	usesFocus = functions.Deterministic | functions.FocusDependent
)

// All returns every model function.
func All() []*functions.Function {
	var out []*functions.Function
	out = append(out, Kind()...)
	out = append(out, Line()...)
	out = append(out, Column()...)
	out = append(out, Location()...)
	out = append(out, Depth()...)
	out = append(out, SiblingPosition()...)
	out = append(out, FlagNames()...)
	out = append(out, HasFlag()...)
	out = append(out, Fingerprint()...)
	return out
}

// Kind returns ext:kind: "document", "assembly", "field" or "flag".
func Kind() []*functions.Function {
	return nodeFunctions("kind", "string", func(n item.Node) item.Sequence {
		return extutil.String(n.Kind().String())
	})
}

// Line returns ext:line: the 1-based source line, or the empty sequence
// when the node carries no location.
func Line() []*functions.Function {
	return nodeFunctions("line", "integer?", func(n item.Node) item.Sequence {
		loc, ok := n.Location()
		if !ok {
			return nil
		}
		return item.Sequence{item.Int(int64(loc.Line))}
	})
}

// Column returns ext:column: the 1-based source column.
func Column() []*functions.Function {
	return nodeFunctions("column", "integer?", func(n item.Node) item.Sequence {
		loc, ok := n.Location()
		if !ok {
			return nil
		}
		return item.Sequence{item.Int(int64(loc.Column))}
	})
}

// Location returns ext:location: "uri:line:column", or "line:column" for
// nodes without a base URI.
func Location() []*functions.Function {
	return nodeFunctions("location", "string?", func(n item.Node) item.Sequence {
		loc, ok := n.Location()
		if !ok {
			return nil
		}
		if uri := n.BaseURI(); uri != "" {
			return extutil.String(uri + ":" + loc.String())
		}
		return extutil.String(loc.String())
	})
}

// Depth returns ext:depth: the number of ancestors of the node, so a
// document has depth 0 and its root assembly depth 1.
func Depth() []*functions.Function {
	return nodeFunctions("depth", "integer", func(n item.Node) item.Sequence {
		return item.Sequence{item.Int(int64(len(n.Ancestors())))}
	})
}

// SiblingPosition returns ext:sibling-position: the 1-based position of the
// node among the model items of its parent that share its name. Flags and
// parentless nodes have position 1.
func SiblingPosition() []*functions.Function {
	return nodeFunctions("sibling-position", "integer", func(n item.Node) item.Sequence {
		pos := 1
		parent := n.Parent()
		if parent != nil && n.Kind() != model.KindFlag {
			for _, sib := range parent.ModelItems() {
				if sib == n.Node {
					break
				}
				if sib.Name() == n.Name() {
					pos++
				}
			}
		}
		return item.Sequence{item.Int(int64(pos))}
	})
}

// FlagNames returns ext:flag-names: the local names of the node's flags in
// definition order.
func FlagNames() []*functions.Function {
	return nodeFunctions("flag-names", "string*", func(n item.Node) item.Sequence {
		flags := n.Flags()
		names := make([]string, len(flags))
		for i, f := range flags {
			names[i] = f.Name().Local
		}
		return extutil.Strings(names)
	})
}

// HasFlag returns ext:has-flag($name) and ext:has-flag($node, $name),
// matching the flag by local name.
func HasFlag() []*functions.Function {
	handler := func(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
		nodeArgs, name := args[:len(args)-1], extutil.OptString(args[len(args)-1])
		if len(nodeArgs) == 0 && focus == nil {
			return nil, types.Errorf(types.ErrContextAbsent, "has-flag requires a context item")
		}
		n, ok, err := extutil.NodeArg(focus, nodeArgs)
		if err != nil || !ok {
			return item.Sequence{item.Boolean(false)}, err
		}
		for _, f := range n.Flags() {
			if f.Name().Local == name {
				return item.Sequence{item.Boolean(true)}, nil
			}
		}
		return item.Sequence{item.Boolean(false)}, nil
	}
	return []*functions.Function{
		extutil.New("has-flag", "(string) as boolean", usesFocus, handler),
		extutil.New("has-flag", "(node()?, string) as boolean", det, handler),
	}
}

// Fingerprint returns ext:fingerprint: a 64-bit xxHash of the node's
// kind, name, value, flags and descendants in hex. Structurally equal
// subtrees have equal fingerprints regardless of where they were read from.
func Fingerprint() []*functions.Function {
	return nodeFunctions("fingerprint", "string", func(n item.Node) item.Sequence {
		d := xxhash.New()
		fingerprint(d, n.Node)
		return extutil.String(strconv.FormatUint(d.Sum64(), 16))
	})
}

func fingerprint(d *xxhash.Digest, n model.Node) {
	var buf [binary.MaxVarintLen64]byte
	writeString := func(s string) {
		d.Write(buf[:binary.PutUvarint(buf[:], uint64(len(s)))])
		d.WriteString(s)
	}
	d.Write([]byte{byte(n.Kind())})
	writeString(n.Name().Namespace)
	writeString(n.Name().Local)
	if v, ok := n.Value(); ok {
		writeString(string(v.Type))
		writeString(v.Lexical)
	}
	flags, children := n.Flags(), n.ModelItems()
	d.Write(buf[:binary.PutUvarint(buf[:], uint64(len(flags)))])
	for _, f := range flags {
		fingerprint(d, f)
	}
	d.Write(buf[:binary.PutUvarint(buf[:], uint64(len(children)))])
	for _, c := range children {
		fingerprint(d, c)
	}
}

// nodeFunctions declares the focus and explicit-node forms of a function
// of one node. An empty node argument gives the empty sequence.
func nodeFunctions(local, returns string, fn func(item.Node) item.Sequence) []*functions.Function {
	handler := func(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
		n, ok, err := extutil.NodeArg(focus, args)
		if err != nil || !ok {
			return nil, err
		}
		return fn(n), nil
	}
	optional := returns
	if last := returns[len(returns)-1]; last != '?' && last != '*' {
		optional += "?"
	}
	return []*functions.Function{
		extutil.New(local, "() as "+returns, usesFocus, handler),
		extutil.New(local, "(node()?) as "+optional, det, handler),
	}
}
