// Package parser implements the Metapath parser and CST builder.
//
// The parser is a hand-written Pratt parser over a Rob Pike style lexer.
// Names are resolved while the tree is built: step names against the
// default model namespace, function calls against the function library and
// every prefix against the namespace bindings of the static context, so
// that a successfully compiled expression has no unresolved references
// other than variables.
//
// # Example
//
//	expr, err := parser.Compile("//group[@id = 'ac']/title", static.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(cst.Print(expr.Root()))
package parser

import (
	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/static"
)

// Compile parses a Metapath expression and resolves it against sc. A nil
// static context means static.Default().
//
// Compiling the same source twice in the same static context yields
// structurally equal trees.
func Compile(query string, sc *static.Context, opts ...CompileOption) (*cst.Expression, error) {
	p := NewParser(query, sc, opts...)
	return p.Parse()
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
