package builtin

import (
	"context"
	"net/url"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

func nodeFunctions() []*functions.Function {
	return []*functions.Function{
		mp("root", "() as node()", usesFocus, fnRoot),
		mp("root", "(node()?) as node()?", det, fnRoot),
		mp("path", "() as string?", usesFocus, fnPath),
		mp("path", "(node()?) as string?", det, fnPath),
		mp("name", "() as string", usesFocus, fnName),
		mp("name", "(node()?) as string", det, fnName),
		mp("local-name", "() as string", usesFocus, fnLocalName),
		mp("local-name", "(node()?) as string", det, fnLocalName),
		mp("namespace-uri", "() as uri", usesFocus, fnNamespaceURI),
		mp("namespace-uri", "(node()?) as uri", det, fnNamespaceURI),
		mp("has-children", "() as boolean", usesFocus, fnHasChildren),
		mp("has-children", "(node()?) as boolean", det, fnHasChildren),
		mp("innermost", "(node()*) as node()*", det, fnInnermost),
		mp("outermost", "(node()*) as node()*", det, fnOutermost),
		mp("base-uri", "() as uri?", usesFocus, fnBaseURI),
		mp("base-uri", "(node()?) as uri?", det, fnBaseURI),
		mp("document-uri", "() as uri?", usesFocus, fnDocumentURI),
		mp("document-uri", "(node()?) as uri?", det, fnDocumentURI),
		mp("static-base-uri", "() as uri?", det, fnStaticBaseURI),
		mp("resolve-uri", "(string?) as uri?", det, fnResolveURI),
		mp("resolve-uri", "(string?, string) as uri?", det, fnResolveURI),
		mp("doc", "(string?) as node()?", dyn, fnDoc),
		mp("document-available", "(string?) as boolean", dyn, fnDocumentAvailable),
	}
}

// nodeArg returns the node argument, or the focus node when the function
// was called without arguments. ok is false for an empty argument.
func nodeArg(focus item.Item, args []item.Sequence) (n item.Node, ok bool, err error) {
	seq := contextArg(focus, args)
	if len(seq) == 0 {
		return item.Node{}, false, nil
	}
	n, ok = seq[0].(item.Node)
	if !ok {
		return item.Node{}, false, types.Errorf(types.ErrFocusNotNode, "expected a node but found a %s item", seq[0].ItemKind())
	}
	return n, true, nil
}

// nodeFunc adapts a function of one node; an empty argument yields empty.
func nodeFunc(fn func(item.Node) item.Sequence) functions.Handler {
	return func(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
		n, ok, err := nodeArg(focus, args)
		if err != nil || !ok {
			return nil, err
		}
		return fn(n), nil
	}
}

var (
	fnRoot = nodeFunc(func(n item.Node) item.Sequence { return single(n.Root()) })
	fnPath = nodeFunc(func(n item.Node) item.Sequence { return stringResult(n.Path()) })

	fnHasChildren = nodeFunc(func(n item.Node) item.Sequence { return boolean(len(n.ModelItems()) > 0) })

	fnBaseURI = nodeFunc(func(n item.Node) item.Sequence {
		if u := n.BaseURI(); u != "" {
			return single(item.URI(u))
		}
		return nil
	})

	fnDocumentURI = nodeFunc(func(n item.Node) item.Sequence {
		if n.Kind() != model.KindDocument || n.BaseURI() == "" {
			return nil
		}
		return single(item.URI(n.BaseURI()))
	})
)

// Names are reported without a prefix.
func fnName(ctx context.Context, env functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	return fnLocalName(ctx, env, focus, args)
}

func fnLocalName(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	n, ok, err := nodeArg(focus, args)
	if err != nil {
		return nil, err
	}
	if !ok {
		return stringResult(""), nil
	}
	return stringResult(n.Name().Local), nil
}

func fnNamespaceURI(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	n, ok, err := nodeArg(focus, args)
	if err != nil {
		return nil, err
	}
	if !ok {
		return single(item.URI("")), nil
	}
	return single(item.URI(n.Name().Namespace)), nil
}

func isAncestor(anc, n item.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == anc.Node {
			return true
		}
	}
	return false
}

func fnInnermost(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	nodes, _ := args[0].Nodes()
	var out []item.Node
	for _, n := range nodes {
		inner := true
		for _, other := range nodes {
			if isAncestor(n, other) {
				inner = false
				break
			}
		}
		if inner {
			out = append(out, n)
		}
	}
	return item.FromNodes(item.SortDocumentOrder(out)), nil
}

func fnOutermost(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	nodes, _ := args[0].Nodes()
	var out []item.Node
	for _, n := range nodes {
		outer := true
		for _, other := range nodes {
			if isAncestor(other, n) {
				outer = false
				break
			}
		}
		if outer {
			out = append(out, n)
		}
	}
	return item.FromNodes(item.SortDocumentOrder(out)), nil
}

func fnStaticBaseURI(_ context.Context, env functions.Env, _ item.Item, _ []item.Sequence) (item.Sequence, error) {
	if u := env.StaticBaseURI(); u != "" {
		return single(item.URI(u)), nil
	}
	return nil, nil
}

// resolveURI resolves ref against base. A relative reference without a
// base fails with FONS0005.
func resolveURI(ref, base string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", types.Errorf(types.ErrInvalidResolveURI, "invalid URI %q", ref).WithCause(err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	if base == "" {
		return "", types.Errorf(types.ErrBaseURIUndefined, "cannot resolve relative URI %q without a base URI", ref)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", types.Errorf(types.ErrInvalidResolveURI, "invalid base URI %q", base).WithCause(err)
	}
	return b.ResolveReference(r).String(), nil
}

func fnResolveURI(_ context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, nil
	}
	base := env.StaticBaseURI()
	if len(args) > 1 {
		base = optString(args[1])
	}
	u, err := resolveURI(optString(args[0]), base)
	if err != nil {
		return nil, err
	}
	return single(item.URI(u)), nil
}

func loadDocument(ctx context.Context, env functions.Env, ref string) (item.Node, error) {
	u, err := resolveURI(ref, env.StaticBaseURI())
	if err != nil {
		return item.Node{}, types.Errorf(types.ErrDocumentRetrieval, "cannot resolve document URI %q", ref).WithCause(err)
	}
	return env.Document(ctx, u)
}

func fnDoc(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return nil, nil
	}
	n, err := loadDocument(ctx, env, optString(args[0]))
	if err != nil {
		return nil, err
	}
	return single(n), nil
}

func fnDocumentAvailable(ctx context.Context, env functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args[0]) == 0 {
		return boolean(false), nil
	}
	_, err := loadDocument(ctx, env, optString(args[0]))
	if err != nil {
		env.Logger().Debug("document not available", "uri", optString(args[0]), "error", err)
	}
	return boolean(err == nil), nil
}
