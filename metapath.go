// Package metapath is a Go implementation of Metapath, the XPath 3.1
// derived expression language used to query Metaschema-based documents
// such as OSCAL catalogs and profiles.
//
// Expressions are compiled once against a static context and evaluated
// many times against document nodes:
//
//	expr, err := metapath.Compile("//control[@id = 'ac-1']/title", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	title, err := expr.EvaluateAs(ctx, doc, metapath.String, nil)
//
// Compiled expressions are immutable and safe for concurrent use. Each
// evaluation gets its own dynamic context.
//
// # More Information
//
//   - Documents: github.com/wandmagic/metapath/pkg/model and pkg/model/memdoc
//   - Parser: github.com/wandmagic/metapath/pkg/parser
//   - Evaluator: github.com/wandmagic/metapath/pkg/evaluator
//   - Functions: github.com/wandmagic/metapath/pkg/functions/builtin
//   - Extensions: github.com/wandmagic/metapath/pkg/ext
package metapath

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/evaluator"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// Version returns the current version of the engine.
func Version() string {
	return "v0.1.0-dev"
}

// DynamicContext holds the per-evaluation state: variables, the current
// date and time, the implicit timezone and loaded documents.
type DynamicContext = evaluator.DynamicContext

// NewDynamicContext creates an empty dynamic context.
func NewDynamicContext(opts ...evaluator.DynamicOption) *DynamicContext {
	return evaluator.NewDynamicContext(opts...)
}

// ResultType selects how EvaluateAs converts a result sequence.
type ResultType uint8

const (
	// Boolean converts the result to its effective boolean value (bool).
	Boolean ResultType = iota
	// String returns the string value of at most one item (string). The
	// empty sequence gives "".
	String
	// Number returns at most one value as a decimal (*apd.Decimal). The
	// empty sequence gives nil.
	Number
	// Item returns at most one item (item.Item), or nil.
	Item
	// Node returns at most one node (item.Node), or nil.
	Node
	// Sequence returns the result unchanged (item.Sequence).
	Sequence
)

var resultTypeNames = [...]string{"boolean", "string", "number", "item", "node", "sequence"}

func (r ResultType) String() string {
	if int(r) < len(resultTypeNames) {
		return resultTypeNames[r]
	}
	return fmt.Sprintf("ResultType(%d)", r)
}

// Expression is a compiled expression bound to the evaluator that runs it.
type Expression struct {
	compiled *cst.Expression
	eval     *evaluator.Evaluator
}

var defaultEvaluator = evaluator.New()

// Compile compiles expr in sc; a nil sc means static.Default(). Options
// configure the evaluator used by the returned expression.
func Compile(expr string, sc *static.Context, opts ...evaluator.EvalOption) (*Expression, error) {
	ev := defaultEvaluator
	if len(opts) > 0 {
		ev = evaluator.New(opts...)
	}
	compiled, err := ev.Compile(expr, sc)
	if err != nil {
		return nil, err
	}
	return &Expression{compiled: compiled, eval: ev}, nil
}

// MustCompile is like Compile but panics if the expression cannot be
// compiled. It simplifies safe initialization of global variables.
func MustCompile(expr string, sc *static.Context) *Expression {
	e, err := Compile(expr, sc)
	if err != nil {
		panic(fmt.Sprintf("metapath: Compile(%q): %v", expr, err))
	}
	return e
}

// Source returns the expression text.
func (e *Expression) Source() string { return e.compiled.Source() }

// String returns the expression text.
func (e *Expression) String() string { return e.compiled.Source() }

// Compiled returns the compiled syntax tree.
func (e *Expression) Compiled() *cst.Expression { return e.compiled }

// Evaluate evaluates the expression with focus as the context item. A nil
// focus leaves the context item absent; a nil dyn uses a fresh dynamic
// context.
func (e *Expression) Evaluate(ctx context.Context, focus item.Item, dyn *DynamicContext) (item.Sequence, error) {
	return e.eval.Eval(ctx, e.compiled, focus, dyn)
}

// EvaluateAs evaluates the expression and converts the result as described
// by rt.
func (e *Expression) EvaluateAs(ctx context.Context, focus item.Item, rt ResultType, dyn *DynamicContext) (any, error) {
	r, err := e.Evaluate(ctx, focus, dyn)
	if err != nil {
		return nil, err
	}
	return Convert(r, rt)
}

// Convert applies the EvaluateAs conversion to an evaluated sequence.
func Convert(r item.Sequence, rt ResultType) (any, error) {
	switch rt {
	case Boolean:
		return item.EffectiveBooleanValue(r)
	case String:
		it, err := r.ZeroOrOne()
		if err != nil || it == nil {
			return "", err
		}
		return item.StringValue(it)
	case Number:
		a, err := item.AtomizeOne(r)
		if err != nil || a == nil {
			return nil, err
		}
		if !a.Type().IsNumeric() {
			if a, err = item.Cast(a, item.TypeDecimal); err != nil {
				return nil, err
			}
		}
		return new(apd.Decimal).Set(a.Decimal()), nil
	case Item:
		it, err := r.ZeroOrOne()
		if err != nil || it == nil {
			return nil, err
		}
		return it, nil
	case Node:
		it, err := r.ZeroOrOne()
		if err != nil || it == nil {
			return nil, err
		}
		n, ok := it.(item.Node)
		if !ok {
			return nil, types.Errorf(types.ErrType, "expected a node, found a %s item", it.ItemKind())
		}
		return n, nil
	case Sequence:
		return r, nil
	default:
		return nil, types.Errorf(types.ErrUnidentified, "unknown result type %s", rt)
	}
}
