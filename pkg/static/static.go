// Package static provides the static context used when compiling Metapath
// expressions: namespace bindings, default namespaces, the static base URI
// and the function library.
//
// A Context is immutable and safe to share between goroutines. Use a
// [Builder] to create one:
//
//	sc := static.NewBuilder().
//	    Namespace("oscal", "http://csrc.nist.gov/ns/oscal/1.0").
//	    DefaultModelNamespace("http://csrc.nist.gov/ns/oscal/1.0").
//	    Build()
package static

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/functions/builtin"
	"github.com/wandmagic/metapath/pkg/types"
)

// Context is an immutable static context.
type Context struct {
	namespaces        map[string]string
	defaultModelNS    string
	defaultFunctionNS string
	baseURI           string
	library           *functions.Library
	wildcardDefault   bool
	qnames            *types.QNameCache
	fingerprint       uint64
}

var defaultContext = NewBuilder().Build()

// Default returns a static context with the well-known prefixes, the
// built-in function library and no default model namespace.
func Default() *Context {
	return defaultContext
}

// Namespace returns the URI bound to prefix.
func (c *Context) Namespace(prefix string) (string, bool) {
	uri, ok := c.namespaces[prefix]
	return uri, ok
}

// Namespaces returns a copy of the prefix bindings.
func (c *Context) Namespaces() map[string]string {
	return maps.Clone(c.namespaces)
}

// DefaultModelNamespace returns the namespace of unprefixed names in path
// steps.
func (c *Context) DefaultModelNamespace() string { return c.defaultModelNS }

// DefaultFunctionNamespace returns the namespace of unprefixed function
// names.
func (c *Context) DefaultFunctionNamespace() string { return c.defaultFunctionNS }

// BaseURI returns the static base URI.
func (c *Context) BaseURI() string { return c.baseURI }

// Library returns the function library.
func (c *Context) Library() *functions.Library { return c.library }

// QNames returns the name interning cache.
func (c *Context) QNames() *types.QNameCache { return c.qnames }

// Fingerprint identifies the configuration of the context. Contexts built
// with the same settings and library have the same fingerprint.
func (c *Context) Fingerprint() uint64 { return c.fingerprint }

func (c *Context) prefixError(prefix string) *types.Error {
	return types.Errorf(types.ErrPrefixNotExpandable, "namespace prefix %q is not bound", prefix)
}

// ResolveModelName resolves the name of a path step. An unprefixed name
// uses the default model namespace. wildcard reports that the namespace
// should not be compared, which happens for unprefixed names when no
// default model namespace is set and wildcard matching is enabled.
func (c *Context) ResolveModelName(prefix, local string) (name types.QName, wildcard bool, err error) {
	if prefix == "" {
		if c.defaultModelNS == "" && c.wildcardDefault {
			return c.qnames.Intern("", local), true, nil
		}
		return c.qnames.Intern(c.defaultModelNS, local), false, nil
	}
	ns, ok := c.namespaces[prefix]
	if !ok {
		return types.QName{}, false, c.prefixError(prefix)
	}
	return c.qnames.Intern(ns, local), false, nil
}

// ResolveFunctionName resolves the name of a function call.
func (c *Context) ResolveFunctionName(prefix, local string) (types.QName, error) {
	if prefix == "" {
		return c.qnames.Intern(c.defaultFunctionNS, local), nil
	}
	ns, ok := c.namespaces[prefix]
	if !ok {
		return types.QName{}, c.prefixError(prefix)
	}
	return c.qnames.Intern(ns, local), nil
}

// ResolveName resolves a prefixed variable or type name. Unprefixed names
// have no namespace.
func (c *Context) ResolveName(prefix, local string) (types.QName, error) {
	if prefix == "" {
		return c.qnames.Intern("", local), nil
	}
	ns, ok := c.namespaces[prefix]
	if !ok {
		return types.QName{}, c.prefixError(prefix)
	}
	return c.qnames.Intern(ns, local), nil
}

// Builder creates static contexts. The zero value is not usable; call
// [NewBuilder] or [Context.Builder].
type Builder struct {
	c Context
}

// NewBuilder creates a builder with the well-known prefixes bound, the
// built-in function library and the Metapath function namespace as the
// default function namespace.
func NewBuilder() *Builder {
	return &Builder{c: Context{
		namespaces:        maps.Clone(types.WellKnownNamespaces),
		defaultFunctionNS: types.NSMetapathFunctions,
		library:           builtin.Library(),
		wildcardDefault:   true,
		qnames:            types.DefaultQNames,
	}}
}

// Builder returns a builder initialised from c.
func (c *Context) Builder() *Builder {
	b := &Builder{c: *c}
	b.c.namespaces = maps.Clone(c.namespaces)
	return b
}

// Namespace binds prefix to uri.
func (b *Builder) Namespace(prefix, uri string) *Builder {
	b.c.namespaces[prefix] = uri
	return b
}

// DefaultModelNamespace sets the namespace of unprefixed path-step names.
func (b *Builder) DefaultModelNamespace(uri string) *Builder {
	b.c.defaultModelNS = uri
	return b
}

// DefaultFunctionNamespace sets the namespace of unprefixed function names.
func (b *Builder) DefaultFunctionNamespace(uri string) *Builder {
	b.c.defaultFunctionNS = uri
	return b
}

// BaseURI sets the static base URI.
func (b *Builder) BaseURI(uri string) *Builder {
	b.c.baseURI = uri
	return b
}

// FunctionLibrary replaces the function library. Use
// builtin.Library().Extend() to add functions to the built-ins.
func (b *Builder) FunctionLibrary(lib *functions.Library) *Builder {
	b.c.library = lib
	return b
}

// UseWildcardWhenNamespaceNotDefaulted controls whether unprefixed path
// step names match any namespace when no default model namespace is set.
// Enabled by default.
func (b *Builder) UseWildcardWhenNamespaceNotDefaulted(v bool) *Builder {
	b.c.wildcardDefault = v
	return b
}

// QNames sets the name interning cache.
func (b *Builder) QNames(cache *types.QNameCache) *Builder {
	b.c.qnames = cache
	return b
}

// Build returns the configured context.
func (b *Builder) Build() *Context {
	c := b.c
	c.namespaces = maps.Clone(b.c.namespaces)
	c.fingerprint = fingerprint(&c)
	return &c
}

func fingerprint(c *Context) uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	for _, p := range slices.Sorted(maps.Keys(c.namespaces)) {
		write(p)
		write(c.namespaces[p])
	}
	write(c.defaultModelNS)
	write(c.defaultFunctionNS)
	write(c.baseURI)
	write(strconv.FormatBool(c.wildcardDefault))
	write(fmt.Sprintf("%p", c.library))
	return d.Sum64()
}
