package parser_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/parser"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// Helper functions

func compile(t *testing.T, input string) *cst.Node {
	t.Helper()
	expr, err := parser.Compile(input, nil)
	require.NoError(t, err, "compiling %q", input)
	return expr.Root()
}

func expectCode(t *testing.T, input string, code types.ErrorCode) {
	t.Helper()
	_, err := parser.Compile(input, nil)
	require.Error(t, err, "compiling %q", input)
	assert.Equal(t, code, types.CodeOf(err), "compiling %q: %v", input, err)
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   item.AtomicType
		value string
	}{
		{"string", `"hello"`, item.TypeString, "hello"},
		{"integer", "42", item.TypeInteger, "42"},
		{"decimal", "3.50", item.TypeDecimal, "3.50"},
		{"leading dot", ".5", item.TypeDecimal, "0.5"},
		{"exponent", "1.5e2", item.TypeDecimal, "150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := compile(t, tt.input)
			require.Equal(t, cst.KindLiteral, n.Kind)
			assert.Equal(t, tt.typ, n.Value.Type())
			assert.Equal(t, tt.value, n.Value.String())
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	n := compile(t, "1 + 2 * 3")
	require.Equal(t, cst.KindArithmetic, n.Kind)
	assert.Equal(t, item.OpAdd, n.Arith)
	assert.Equal(t, item.OpMultiply, n.Children[1].Arith)

	n = compile(t, "1 to 3 = 2 or false()")
	require.Equal(t, cst.KindOr, n.Kind)
	assert.Equal(t, cst.KindGeneralCompare, n.Children[0].Kind)
	assert.Equal(t, cst.KindRange, n.Children[0].Children[0].Kind)

	n = compile(t, "-1 => abs()")
	require.Equal(t, cst.KindFunctionCall, n.Kind)
	assert.Equal(t, cst.KindUnary, n.Children[0].Kind)

	n = compile(t, `"a" || "b" eq "ab"`)
	require.Equal(t, cst.KindValueCompare, n.Kind)
	assert.Equal(t, cst.KindConcat, n.Children[0].Kind)
}

func TestParsePaths(t *testing.T) {
	t.Run("relative", func(t *testing.T) {
		n := compile(t, "catalog/group/title")
		require.Equal(t, cst.KindPath, n.Kind)
		require.Len(t, n.Children, 3)
		for _, s := range n.Children {
			assert.Equal(t, cst.KindStep, s.Kind)
			assert.Equal(t, cst.AxisChild, s.Axis)
			assert.True(t, s.Test.AnyNamespace)
		}
		assert.Equal(t, "title", n.Children[2].Test.Name.Local)
	})

	t.Run("rooted", func(t *testing.T) {
		n := compile(t, "/catalog")
		require.Equal(t, cst.KindPath, n.Kind)
		assert.Equal(t, cst.KindRoot, n.Children[0].Kind)

		n = compile(t, "/")
		assert.Equal(t, cst.KindRoot, n.Kind)
	})

	t.Run("descendant", func(t *testing.T) {
		n := compile(t, "//title")
		require.Equal(t, cst.KindPath, n.Kind)
		require.Len(t, n.Children, 3)
		assert.Equal(t, cst.AxisDescendantOrSelf, n.Children[1].Axis)
		assert.Equal(t, cst.TestAnyNode, n.Children[1].Test.Kind)
	})

	t.Run("abbreviations", func(t *testing.T) {
		n := compile(t, "../@id")
		require.Equal(t, cst.KindPath, n.Kind)
		assert.Equal(t, cst.AxisParent, n.Children[0].Axis)
		assert.Equal(t, cst.AxisFlag, n.Children[1].Axis)
		assert.Equal(t, types.QName{Local: "id"}, n.Children[1].Test.Name)
		assert.False(t, n.Children[1].Test.AnyNamespace)
	})

	t.Run("axes", func(t *testing.T) {
		for name, axis := range map[string]cst.Axis{
			"ancestor-or-self::*":   cst.AxisAncestorOrSelf,
			"following-sibling::a":  cst.AxisFollowingSibling,
			"preceding::node()":     cst.AxisPreceding,
			"flag::id":              cst.AxisFlag,
			"self::a":               cst.AxisSelf,
			"descendant::Q{urn:x}a": cst.AxisDescendant,
		} {
			n := compile(t, name)
			require.Equal(t, cst.KindStep, n.Kind, name)
			assert.Equal(t, axis, n.Axis, name)
		}
	})

	t.Run("predicates", func(t *testing.T) {
		n := compile(t, "a[1][@id]")
		require.Equal(t, cst.KindStep, n.Kind)
		assert.Len(t, n.Predicates, 2)

		n = compile(t, "(a)[1]")
		require.Equal(t, cst.KindFilter, n.Kind)
		assert.Equal(t, cst.KindStep, n.Children[0].Kind)
		assert.Empty(t, n.Children[0].Predicates)

		n = compile(t, "$x[. > 1]")
		assert.Equal(t, cst.KindFilter, n.Kind)
	})

	t.Run("wildcards", func(t *testing.T) {
		assert.Equal(t, cst.TestAnyName, compile(t, "*").Test.Kind)
		assert.Equal(t, cst.TestNamespaceAny, compile(t, "*:title").Test.Kind)
		n := compile(t, "meta:*")
		assert.Equal(t, cst.TestLocalWildcard, n.Test.Kind)
		assert.Equal(t, types.NSMetapath, n.Test.Name.Namespace)
	})

	t.Run("keywords as steps", func(t *testing.T) {
		n := compile(t, "div/for")
		require.Equal(t, cst.KindPath, n.Kind)
		assert.Equal(t, "div", n.Children[0].Test.Name.Local)
		assert.Equal(t, "for", n.Children[1].Test.Name.Local)
	})
}

func TestParseDefaultModelNamespace(t *testing.T) {
	sc := static.NewBuilder().
		Namespace("o", "urn:oscal").
		DefaultModelNamespace("urn:oscal").
		Build()
	expr, err := parser.Compile("catalog/o:group/@id", sc)
	require.NoError(t, err)
	steps := expr.Root().Children
	assert.Equal(t, types.QName{Namespace: "urn:oscal", Local: "catalog"}, steps[0].Test.Name)
	assert.False(t, steps[0].Test.AnyNamespace)
	assert.Equal(t, types.QName{Namespace: "urn:oscal", Local: "group"}, steps[1].Test.Name)
	assert.Equal(t, types.QName{Local: "id"}, steps[2].Test.Name)
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		input string
		kind  cst.Kind
	}{
		{"()", cst.KindEmpty},
		{"(1, 2, 3)", cst.KindSequence},
		{".", cst.KindContextItem},
		{"$x", cst.KindVariable},
		{"for $x in (1, 2), $y in $x return $x + $y", cst.KindFor},
		{"let $a := 1, $b := $a return $b", cst.KindLet},
		{"some $x in (1, 2) satisfies $x = 2", cst.KindSome},
		{"every $x in () satisfies false()", cst.KindEvery},
		{"if (1) then 2 else 3", cst.KindIf},
		{"[1, (2, 3), ()]", cst.KindArray},
		{"array { 1 to 3 }", cst.KindCurlyArray},
		{"map { 'a': 1, 'b': 2 }", cst.KindMap},
		{"map {}", cst.KindMap},
		{"function($a, $b as integer) as integer { $a + $b }", cst.KindInlineFunction},
		{"$f(1, 2)", cst.KindDynamicCall},
		{"concat#2", cst.KindFunctionRef},
		{"$m?name", cst.KindLookup},
		{"[1, 2]?*", cst.KindLookup},
		{"?1", cst.KindUnaryLookup},
		{"a | b", cst.KindUnion},
		{"a union b intersect c", cst.KindUnion},
		{"a except b", cst.KindExcept},
		{"(1, 2) ! (. * 2)", cst.KindSimpleMap},
		{"'1' cast as integer", cst.KindCast},
		{"'1' castable as meta:date?", cst.KindCastable},
		{"xs:integer('3')", cst.KindCast},
		{"upper-case('a')", cst.KindFunctionCall},
		{"Q{http://csrc.nist.gov/ns/metaschema/metapath-functions}count(())", cst.KindFunctionCall},
		{"'a' => $f()", cst.KindDynamicCall},
		{"-+1", cst.KindUnary},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.kind, compile(t, tt.input).Kind)
		})
	}
}

func TestParseDetails(t *testing.T) {
	n := compile(t, "let $week := map{0:'Su', 1:'Mo'} return $week(1)")
	require.Equal(t, cst.KindLet, n.Kind)
	require.Len(t, n.Bindings, 1)
	assert.Equal(t, "week", n.Bindings[0].Name.Local)
	assert.Len(t, n.Bindings[0].Expr.Children, 4)
	assert.Equal(t, cst.KindDynamicCall, n.Children[0].Kind)

	n = compile(t, "function($a as item()*, $b) { }")
	require.Len(t, n.Params, 2)
	require.NotNil(t, n.Params[0].Type)
	assert.Equal(t, "item()*", n.Params[0].Type.String())
	assert.Nil(t, n.Params[1].Type)
	assert.Equal(t, cst.KindEmpty, n.Children[0].Kind)

	n = compile(t, "$m?(1 + 1)")
	assert.Equal(t, cst.LookupExpr, n.Lookup)
	assert.Len(t, n.Children, 2)

	n = compile(t, "'x' cast as date-time?")
	assert.Equal(t, item.TypeDateTime, n.Type)
	assert.True(t, n.Optional)

	n = compile(t, "meta:date('2000-10-30')")
	assert.Equal(t, types.QName{Namespace: types.NSMetapath, Local: "date"}, n.Name)

	n = compile(t, "'abc' => substring(2)")
	require.Equal(t, cst.KindFunctionCall, n.Kind)
	assert.Len(t, n.Children, 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		code  types.ErrorCode
	}{
		{"", types.ErrSyntax},
		{"1 +", types.ErrSyntax},
		{"(1, 2", types.ErrSyntax},
		{"1 = 2 = 3", types.ErrSyntax},
		{"a b", types.ErrSyntax},
		{"1 instance of integer", types.ErrSyntax},
		{"1 treat as integer", types.ErrSyntax},
		{"if (1) then 2", types.ErrSyntax},
		{"function($a, $a) { 1 }", types.ErrSyntax},
		{"'abc", types.ErrSyntax},
		{"nope:a", types.ErrPrefixNotExpandable},
		{"$nope:x", types.ErrPrefixNotExpandable},
		{"namespace::a", types.ErrAxisUnsupported},
		{"no-such-function()", types.ErrNoFunctionMatch},
		{"upper-case('a', 'b')", types.ErrNoFunctionMatch},
		{"count#3", types.ErrNoFunctionMatch},
		{"1 cast as nonsense", types.ErrCastUnknownType},
		{"1 cast as any-atomic-type", types.ErrCastAnyAtomic},
		{"function($a as nonsense) { 1 }", types.ErrUnknownType},
		{"xs:frobnicate(1)", types.ErrNoFunctionMatch},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectCode(t, tt.input, tt.code)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := parser.Compile("1 + )", nil)
	var merr *types.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 4, merr.Position)
	assert.Equal(t, ")", merr.Token)
}

func TestParseMaxDepth(t *testing.T) {
	deep := ""
	for range 50 {
		deep += "("
	}
	deep += "1"
	for range 50 {
		deep += ")"
	}
	_, err := parser.Compile(deep, nil)
	require.NoError(t, err)

	_, err = parser.Compile(deep, nil, parser.WithMaxDepth(10))
	assert.True(t, types.IsCode(err, types.ErrSyntax))
}

func TestParseIdempotence(t *testing.T) {
	inputs := []string{
		"/catalog//group[@id = 'ac'][1]/title",
		"for $x in 1 to 3 return $x * 2",
		"map{'a': [1, 2, 3]}?a?2",
		"meta:date('2000-10-30') + meta:year-month-duration('P1Y2M')",
		"some $x in (1,2,3), $y in (2,3,4) satisfies $x + $y = 4",
		"function($a as integer) as integer { $a + 1 }(2)",
		"(a, b)[position() = last()] ! string(.)",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			a, err := parser.Compile(in, nil)
			require.NoError(t, err)
			b, err := parser.Compile(in, nil)
			require.NoError(t, err)
			assert.True(t, reflect.DeepEqual(a.Root(), b.Root()))
			assert.Equal(t, cst.Print(a.Root()), cst.Print(b.Root()))
		})
	}
}

func TestPrint(t *testing.T) {
	out := cst.Print(compile(t, "a[1] + 2"))
	assert.Equal(t, `Arithmetic +
  Step child::a
    [
      Literal integer "1"
    ]
  Literal integer "2"
`, out)
}
