package memdoc

import (
	"errors"
	"strconv"
	"strings"

	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

// DefaultRootName names the wrapping root assembly.
const DefaultRootName = "root"

// Options controls how decoded JSON/YAML maps onto document nodes.
type Options struct {
	// Namespace is applied to every field and assembly name. Flags are
	// always unqualified.
	Namespace string
	// RootName names the root assembly when the top-level object does not
	// consist of a single object member.
	RootName string
	// ScalarsAsFlags maps scalar members to flags instead of fields.
	ScalarsAsFlags bool
	// BaseURI is recorded on every node.
	BaseURI string
}

type valueKind uint8

const (
	valueNull valueKind = iota
	valueScalar
	valueObject
	valueArray
)

// value is the decoder-neutral tree both loaders produce.
type value struct {
	kind    valueKind
	scalar  model.Value
	members []member
	elems   []value
	loc     model.Location
	hasLoc  bool
}

type member struct {
	name  string
	value value
}

func (v value) member(name string) (value, bool) {
	for _, m := range v.members {
		if m.name == name {
			return m.value, true
		}
	}
	return value{}, false
}

var errTopLevel = errors.New("memdoc: top-level value must be an object")

func (o Options) build(v value) (*Node, error) {
	if v.kind != valueObject {
		return nil, errTopLevel
	}
	doc := NewDocument(o.BaseURI)
	if len(v.members) == 1 && v.members[0].value.kind == valueObject {
		m := v.members[0]
		root := doc.AddAssembly(o.modelName(m.name))
		o.locate(root, m.value)
		o.populate(root, m.value)
		return doc, nil
	}
	rootName := o.RootName
	if rootName == "" {
		rootName = DefaultRootName
	}
	root := doc.AddAssembly(o.modelName(rootName))
	o.locate(root, v)
	o.populate(root, v)
	return doc, nil
}

func (o Options) populate(parent *Node, obj value) {
	for _, m := range obj.members {
		o.addMember(parent, m.name, m.value)
	}
}

func (o Options) addMember(parent *Node, name string, v value) {
	switch v.kind {
	case valueNull:
		return
	case valueArray:
		for _, elem := range v.elems {
			o.addMember(parent, name, elem)
		}
	case valueScalar:
		switch {
		case strings.HasPrefix(name, "@"):
			o.locate(parent.AddFlag(types.QName{Local: name[1:]}, v.scalar), v)
		case o.ScalarsAsFlags:
			o.locate(parent.AddFlag(types.QName{Local: name}, v.scalar), v)
		default:
			o.locate(parent.AddField(o.modelName(name), v.scalar), v)
		}
	case valueObject:
		if fv, ok := v.member(ValueMember); ok && fv.kind == valueScalar {
			field := parent.AddField(o.modelName(name), fv.scalar)
			o.locate(field, v)
			for _, m := range v.members {
				if m.name == ValueMember || m.value.kind != valueScalar {
					continue
				}
				o.locate(field.AddFlag(types.QName{Local: strings.TrimPrefix(m.name, "@")}, m.value.scalar), m.value)
			}
			return
		}
		asm := parent.AddAssembly(o.modelName(name))
		o.locate(asm, v)
		o.populate(asm, v)
	}
}

func (o Options) modelName(local string) types.QName {
	return types.DefaultQNames.Intern(o.Namespace, local)
}

func (o Options) locate(n *Node, v value) {
	if v.hasLoc {
		n.SetLocation(v.loc)
	}
}

// numberValue types a numeric lexical form as integer or decimal, rewriting
// exponent notation into plain decimal notation.
func numberValue(lex string) model.Value {
	if !strings.ContainsAny(lex, ".eE") {
		return model.Value{Lexical: lex, Type: model.TypeInteger}
	}
	if strings.ContainsAny(lex, "eE") {
		if f, err := strconv.ParseFloat(lex, 64); err == nil {
			lex = strconv.FormatFloat(f, 'f', -1, 64)
			if !strings.Contains(lex, ".") {
				lex += ".0"
			}
		}
	}
	return model.Value{Lexical: lex, Type: model.TypeDecimal}
}

func boolValue(b bool) model.Value {
	return model.Value{Lexical: strconv.FormatBool(b), Type: model.TypeBoolean}
}

func stringValue(s string) model.Value {
	return model.Value{Lexical: s, Type: model.TypeString}
}
