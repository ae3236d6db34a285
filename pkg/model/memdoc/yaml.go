package memdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wandmagic/metapath/pkg/model"
)

// ParseYAML builds a document from the first YAML document in r. Nodes
// record the line and column they were read from.
func ParseYAML(r io.Reader, opts Options) (*Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("memdoc: decoding YAML: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, errTopLevel
		}
		root = doc.Content[0]
	}

	v, err := fromYAML(root)
	if err != nil {
		return nil, err
	}
	return opts.build(v)
}

// ParseYAMLBytes is ParseYAML over a byte slice.
func ParseYAMLBytes(b []byte, opts Options) (*Node, error) {
	return ParseYAML(bytes.NewReader(b), opts)
}

func fromYAML(n *yaml.Node) (value, error) {
	loc := model.Location{Line: n.Line, Column: n.Column}

	switch n.Kind {
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		v := value{kind: valueObject, loc: loc, hasLoc: true}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return value{}, fmt.Errorf("memdoc: line %d: mapping keys must be scalars", key.Line)
			}
			mv, err := fromYAML(n.Content[i+1])
			if err != nil {
				return value{}, err
			}
			v.members = append(v.members, member{name: key.Value, value: mv})
		}
		return v, nil
	case yaml.SequenceNode:
		v := value{kind: valueArray, loc: loc, hasLoc: true}
		for _, c := range n.Content {
			ev, err := fromYAML(c)
			if err != nil {
				return value{}, err
			}
			v.elems = append(v.elems, ev)
		}
		return v, nil
	case yaml.ScalarNode:
		sv := value{kind: valueScalar, loc: loc, hasLoc: true}
		switch n.ShortTag() {
		case "!!null":
			return value{kind: valueNull}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return value{}, err
			}
			sv.scalar = boolValue(b)
		case "!!int":
			lex := n.Value
			if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
				lex = strconv.FormatInt(i, 10)
			}
			sv.scalar = numberValue(lex)
		case "!!float":
			sv.scalar = numberValue(n.Value)
			if sv.scalar.Type == model.TypeInteger {
				sv.scalar.Lexical += ".0"
				sv.scalar.Type = model.TypeDecimal
			}
		default:
			sv.scalar = stringValue(n.Value)
		}
		return sv, nil
	default:
		return value{}, fmt.Errorf("memdoc: line %d: unsupported YAML node", n.Line)
	}
}
