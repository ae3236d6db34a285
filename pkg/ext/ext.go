// Package ext provides optional extension functions that go beyond the
// Metapath built-in library.
//
// The extension functions live in sub-packages grouped by category, all in
// the namespace [extutil.Namespace]:
//   - extmodel  – ext:kind, ext:line, ext:location, ext:flag-names, ext:fingerprint, …
//   - extstring – ext:camel-case, ext:title-case, ext:words, ext:template, …
//   - extcrypto – ext:hash, ext:hmac
//
// # Integration – all extensions at once
//
//	sc := ext.StaticContext()
//	expr, err := metapath.Compile(`//control[ext:has-flag('id')]`, sc)
//
// # Integration – by category
//
//	lib := ext.Library(ext.Model, ext.String)
//	sc := static.NewBuilder().
//	    Namespace(extutil.Prefix, extutil.Namespace).
//	    FunctionLibrary(lib).
//	    Build()
//
// The built-in library is never modified: [Library] registers the
// extensions on a child of it.
package ext

import (
	"github.com/wandmagic/metapath/pkg/ext/extcrypto"
	"github.com/wandmagic/metapath/pkg/ext/extmodel"
	"github.com/wandmagic/metapath/pkg/ext/extstring"
	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/functions/builtin"
	"github.com/wandmagic/metapath/pkg/static"
)

// Category selects a group of extension functions.
type Category func() []*functions.Function

// The extension categories.
var (
	Model  Category = extmodel.All
	String Category = extstring.All
	Crypto Category = extcrypto.All
)

// All returns every extension function.
func All() []*functions.Function {
	var all []*functions.Function
	for _, c := range []Category{Model, String, Crypto} {
		all = append(all, c()...)
	}
	return all
}

// Library returns a child of the built-in library with the given
// categories registered, or all of them when none are given.
func Library(categories ...Category) *functions.Library {
	lib := builtin.Library().Extend()
	if len(categories) == 0 {
		return lib.Register(All()...)
	}
	for _, c := range categories {
		lib.Register(c()...)
	}
	return lib
}

// Bind configures b with the "ext" prefix and a library holding the given
// categories.
func Bind(b *static.Builder, categories ...Category) *static.Builder {
	return b.Namespace(extutil.Prefix, extutil.Namespace).FunctionLibrary(Library(categories...))
}

// StaticContext returns a default static context with every extension
// function available under the "ext" prefix.
func StaticContext() *static.Context {
	return Bind(static.NewBuilder()).Build()
}
