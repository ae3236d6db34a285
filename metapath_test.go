package metapath_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath"
	"github.com/wandmagic/metapath/pkg/evaluator"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model/memdoc"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

const catalogJSON = `{"catalog": {"@id": "cat", "metadata": {"title": "Sample", "version": "1.5"},
  "group": [{"@id": "ac", "title": "Access Control",
    "control": [{"@id": "ac-1", "title": "Policy"}, {"@id": "ac-2", "title": "Accounts"}]}]}}`

func loadCatalog(t testing.TB) item.Node {
	t.Helper()
	doc, err := memdoc.ParseJSONBytes([]byte(catalogJSON), memdoc.Options{})
	require.NoError(t, err)
	return item.NodeOf(doc)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, metapath.Version())
}

func TestCompileAndEvaluate(t *testing.T) {
	doc := loadCatalog(t)
	expr, err := metapath.Compile("//control/@id", nil)
	require.NoError(t, err)
	assert.Equal(t, "//control/@id", expr.Source())
	assert.Equal(t, "//control/@id", expr.String())
	require.NotNil(t, expr.Compiled().Root())

	r, err := expr.Evaluate(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.Equal(t, "ac-1", r[0].(item.Node).StringValue())
}

func TestCompileError(t *testing.T) {
	_, err := metapath.Compile("1 +", nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrSyntax))

	assert.Panics(t, func() { metapath.MustCompile("(", nil) })
	assert.NotPanics(t, func() { metapath.MustCompile("1", nil) })
}

func TestEvaluateAs(t *testing.T) {
	doc := loadCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name string
		expr string
		rt   metapath.ResultType
		want any
	}{
		{"boolean of nodes", "//control", metapath.Boolean, true},
		{"boolean of empty", "//nothing", metapath.Boolean, false},
		{"string of node", "/catalog/metadata/title", metapath.String, "Sample"},
		{"string of empty", "//nothing", metapath.String, ""},
		{"string of number", "1 + 2", metapath.String, "3"},
		{"item of empty", "()", metapath.Item, nil},
		{"node of empty", "//nothing", metapath.Node, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := metapath.MustCompile(tt.expr, nil)
			got, err := expr.EvaluateAs(ctx, doc, tt.rt, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("number", func(t *testing.T) {
		got, err := metapath.MustCompile("/catalog/metadata/version", nil).EvaluateAs(ctx, doc, metapath.Number, nil)
		require.NoError(t, err)
		d, ok := got.(*apd.Decimal)
		require.True(t, ok)
		assert.Equal(t, "1.5", d.String())

		got, err = metapath.MustCompile("2 * 3", nil).EvaluateAs(ctx, nil, metapath.Number, nil)
		require.NoError(t, err)
		assert.Equal(t, "6", got.(*apd.Decimal).String())

		got, err = metapath.MustCompile("()", nil).EvaluateAs(ctx, nil, metapath.Number, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("node", func(t *testing.T) {
		got, err := metapath.MustCompile("/catalog/group", nil).EvaluateAs(ctx, doc, metapath.Node, nil)
		require.NoError(t, err)
		n, ok := got.(item.Node)
		require.True(t, ok)
		assert.Equal(t, "group", n.Name().Local)
	})

	t.Run("sequence", func(t *testing.T) {
		got, err := metapath.MustCompile("1 to 3", nil).EvaluateAs(ctx, nil, metapath.Sequence, nil)
		require.NoError(t, err)
		assert.Len(t, got.(item.Sequence), 3)
	})

	errs := []struct {
		name string
		expr string
		rt   metapath.ResultType
		code types.ErrorCode
	}{
		{"string of many", "//control", metapath.String, types.ErrZeroOrOne},
		{"item of many", "(1, 2)", metapath.Item, types.ErrZeroOrOne},
		{"node of atomic", "1", metapath.Node, types.ErrType},
		{"number of text", "'abc'", metapath.Number, types.ErrInvalidValueForCast},
		{"boolean of many atomics", "(1, 2)", metapath.Boolean, types.ErrInvalidArgumentType},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			_, err := metapath.MustCompile(tt.expr, nil).EvaluateAs(ctx, doc, tt.rt, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, types.CodeOf(err))
		})
	}
}

func TestResultTypeString(t *testing.T) {
	assert.Equal(t, "boolean", metapath.Boolean.String())
	assert.Equal(t, "sequence", metapath.Sequence.String())
	assert.Equal(t, "ResultType(42)", metapath.ResultType(42).String())
}

func TestDynamicContext(t *testing.T) {
	expr := metapath.MustCompile("$limit * 2", nil)
	dyn := metapath.NewDynamicContext().Bind("limit", item.Sequence{item.Int(21)})
	got, err := expr.EvaluateAs(context.Background(), nil, metapath.String, dyn)
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	clock := metapath.NewDynamicContext(evaluator.WithDateTime(time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)))
	got, err = metapath.MustCompile("year-from-dateTime(current-dateTime())", nil).
		EvaluateAs(context.Background(), nil, metapath.String, clock)
	require.NoError(t, err)
	assert.Equal(t, "2030", got)
}

func TestCompileWithOptionsAndStaticContext(t *testing.T) {
	sc := static.NewBuilder().BaseURI("file:///data/").Build()
	expr, err := metapath.Compile("static-base-uri()", sc, evaluator.WithCaching(true))
	require.NoError(t, err)
	got, err := expr.EvaluateAs(context.Background(), nil, metapath.String, nil)
	require.NoError(t, err)
	assert.Equal(t, "file:///data/", got)
}

func TestConcurrentUse(t *testing.T) {
	doc := loadCatalog(t)
	expr := metapath.MustCompile("count(//control[starts-with(@id, 'ac')])", nil)

	errs := make(chan error, 16)
	for range 16 {
		go func() {
			got, err := expr.EvaluateAs(context.Background(), doc, metapath.String, nil)
			if err == nil && got != "2" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for range 16 {
		assert.NoError(t, <-errs)
	}
}

func BenchmarkCompile(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := metapath.Compile("//group[title = 'Access Control']/control[position() > 1]/@id", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileCached(b *testing.B) {
	opt := evaluator.WithCaching(true)
	for i := 0; i < b.N; i++ {
		if _, err := metapath.Compile("//group[title = 'Access Control']/control[position() > 1]/@id", nil, opt); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluatePath(b *testing.B) {
	doc := loadCatalog(b)
	expr := metapath.MustCompile("//control[@id = 'ac-2']/title", nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := expr.Evaluate(ctx, doc, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvaluateArithmetic(b *testing.B) {
	expr := metapath.MustCompile("sum(for $i in 1 to 100 return $i * 1.5)", nil)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := expr.Evaluate(ctx, nil, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func FuzzEvaluate(f *testing.F) {
	seeds := []string{
		`//control/@id`,
		`count(//control) + 1`,
		`for $c in //control return string($c/title)`,
		`map{'a': [1, 2]}?a?2`,
		`1 div 0`,
		`//missing/path`,
		`(`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}
	doc := loadCatalog(f)
	f.Fuzz(func(t *testing.T, input string) {
		expr, err := metapath.Compile(input, nil)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, _ = expr.Evaluate(ctx, doc, nil)
	})
}
