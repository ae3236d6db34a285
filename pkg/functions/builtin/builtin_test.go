package builtin_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/functions/builtin"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model/memdoc"
	"github.com/wandmagic/metapath/pkg/types"
)

type testEnv struct {
	docs map[string]item.Node
}

func (testEnv) Position() int                    { return 2 }
func (testEnv) Size() int                        { return 5 }
func (testEnv) ImplicitTimezone() *time.Location { return time.UTC }
func (testEnv) CurrentDateTime() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("", 3600))
}
func (testEnv) StaticBaseURI() string            { return "file:///data/" }
func (testEnv) Library() *functions.Library      { return builtin.Library() }
func (testEnv) Logger() *slog.Logger             { return slog.Default() }
func (e testEnv) Document(_ context.Context, uri string) (item.Node, error) {
	if n, ok := e.docs[uri]; ok {
		return n, nil
	}
	return item.Node{}, types.Errorf(types.ErrDocumentRetrieval, "no document %s", uri)
}
func (testEnv) Evaluate(context.Context, string, item.Item) (item.Sequence, error) {
	return nil, errors.New("not supported")
}

// Call supports library function references only.
func (e testEnv) Call(ctx context.Context, fn item.Function, args []item.Sequence) (item.Sequence, error) {
	ref, ok := fn.(*functions.Ref)
	if !ok {
		return nil, errors.New("unsupported function item")
	}
	return ref.Invoke(ctx, e, args)
}

func call(t *testing.T, ns, local string, args ...item.Sequence) (item.Sequence, error) {
	t.Helper()
	fn, err := builtin.Library().Lookup(types.QName{Namespace: ns, Local: local}, len(args))
	require.NoError(t, err)
	return fn.Invoke(context.Background(), testEnv{}, nil, args)
}

func mustCallWithFocus(t *testing.T, focus item.Item, ns, local string, args ...item.Sequence) item.Sequence {
	t.Helper()
	f, err := builtin.Library().Lookup(types.QName{Namespace: ns, Local: local}, len(args))
	require.NoError(t, err)
	out, err := f.Invoke(context.Background(), testEnv{}, focus, args)
	require.NoError(t, err)
	return out
}

func mustCall(t *testing.T, ns, local string, args ...item.Sequence) item.Sequence {
	t.Helper()
	out, err := call(t, ns, local, args...)
	require.NoError(t, err)
	return out
}

func str(s string) item.Sequence { return item.Of(item.String(s)) }
func num(n int64) item.Sequence  { return item.Of(item.Int(n)) }

func dec(t *testing.T, s string) item.Sequence {
	a, err := item.Parse(item.TypeDecimal, s)
	require.NoError(t, err)
	return item.Of(a)
}

func text(t *testing.T, seq item.Sequence) string {
	t.Helper()
	require.Len(t, seq, 1)
	s, err := item.StringValue(seq[0])
	require.NoError(t, err)
	return s
}

const fn = types.NSMetapathFunctions

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		name string
		args []item.Sequence
		want string
	}{
		{"concat", []item.Sequence{str("a"), nil, num(1)}, "a1"},
		{"string-join", []item.Sequence{item.Of(item.String("x"), item.String("y")), str(", ")}, "x, y"},
		{"substring", []item.Sequence{str("motor car"), num(6)}, " car"},
		{"substring", []item.Sequence{str("metadata"), num(4), num(3)}, "ada"},
		{"substring", []item.Sequence{str("12345"), dec(t, "1.5"), dec(t, "2.6")}, "234"},
		{"substring", []item.Sequence{str("12345"), num(-3), num(5)}, "1"},
		{"substring-before", []item.Sequence{str("tattoo"), str("attoo")}, "t"},
		{"substring-after", []item.Sequence{str("tattoo"), str("tat")}, "too"},
		{"normalize-space", []item.Sequence{str("  The   wealthy \n curled ")}, "The wealthy curled"},
		{"upper-case", []item.Sequence{str("abCd0")}, "ABCD0"},
		{"lower-case", []item.Sequence{str("ABc!D")}, "abc!d"},
		{"normalize-unicode", []item.Sequence{str("é")}, "é"},
		{"replace", []item.Sequence{str("abracadabra"), str("bra"), str("*")}, "a*cada*"},
		{"replace", []item.Sequence{str("abracadabra"), str("a(.)"), str("a$1$1")}, "abbraccaddabbra"},
		{"replace", []item.Sequence{str("AAAA"), str("A+?"), str("b")}, "bbbb"},
		{"replace", []item.Sequence{str("a.b"), str("."), str("!"), str("q")}, "a!b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, text(t, mustCall(t, fn, tt.name, tt.args...)))
		})
	}
}

func TestStringPredicates(t *testing.T) {
	assert.True(t, mustCall(t, fn, "contains", str("tattoo"), str("tat"))[0].(*item.Atomic).Bool())
	assert.True(t, mustCall(t, fn, "starts-with", str("tattoo"), nil)[0].(*item.Atomic).Bool())
	assert.False(t, mustCall(t, fn, "ends-with", str("tattoo"), str("tat"))[0].(*item.Atomic).Bool())
	assert.True(t, mustCall(t, fn, "matches", str("Abc"), str("^a"), str("i"))[0].(*item.Atomic).Bool())
	assert.Equal(t, "-1", text(t, mustCall(t, fn, "compare", str("abc"), str("abd"))))
	assert.Empty(t, mustCall(t, fn, "compare", nil, str("abd")))
	assert.Equal(t, "5", text(t, mustCall(t, fn, "string-length", str("héllo"))))
}

func TestRegexErrors(t *testing.T) {
	_, err := call(t, fn, "matches", str("a"), str("a"), str("z"))
	assert.True(t, types.IsCode(err, types.ErrRegexFlags))

	_, err = call(t, fn, "matches", str("a"), str("(a"))
	assert.True(t, types.IsCode(err, types.ErrRegexPattern))

	_, err = call(t, fn, "replace", str("abc"), str("x*"), str("y"))
	assert.True(t, types.IsCode(err, types.ErrRegexZeroLengthMatch))

	_, err = call(t, fn, "replace", str("abc"), str("b"), str("$"))
	assert.True(t, types.IsCode(err, types.ErrRegexReplacement))

	_, err = call(t, fn, "tokenize", str("abc"), str(".?"))
	assert.True(t, types.IsCode(err, types.ErrRegexZeroLengthMatch))
}

func TestTokenize(t *testing.T) {
	out := mustCall(t, fn, "tokenize", str(" red  green blue "))
	assert.Len(t, out, 3)

	out = mustCall(t, fn, "tokenize", str("1, 15, 24, 50"), str(",\\s*"))
	require.Len(t, out, 4)
	assert.Equal(t, "50", text(t, out[3:]))

	assert.Empty(t, mustCall(t, fn, "tokenize", str(""), str(",")))
}

func TestNumericFunctions(t *testing.T) {
	assert.Equal(t, "3", text(t, mustCall(t, fn, "abs", num(-3))))
	assert.Equal(t, "-2", text(t, mustCall(t, fn, "ceiling", dec(t, "-2.5"))))
	assert.Equal(t, "-3", text(t, mustCall(t, fn, "floor", dec(t, "-2.5"))))
	assert.Equal(t, "3", text(t, mustCall(t, fn, "round", dec(t, "2.5"))))
	assert.Equal(t, "3.14", text(t, mustCall(t, fn, "round", dec(t, "3.1415"), num(2))))
	assert.Equal(t, "2", text(t, mustCall(t, fn, "round-half-to-even", dec(t, "2.5"))))
	assert.Empty(t, mustCall(t, fn, "abs", nil))
}

func TestAggregates(t *testing.T) {
	values := item.Of(item.Int(1), item.Int(2), item.Int(3), item.Int(4))
	assert.Equal(t, "10", text(t, mustCall(t, fn, "sum", values)))
	assert.Equal(t, "2.5", text(t, mustCall(t, fn, "avg", values)))
	assert.Equal(t, "1", text(t, mustCall(t, fn, "min", values)))
	assert.Equal(t, "4", text(t, mustCall(t, fn, "max", values)))
	assert.Equal(t, "0", text(t, mustCall(t, fn, "sum", nil)))
	assert.Empty(t, mustCall(t, fn, "sum", nil, nil))
	assert.Empty(t, mustCall(t, fn, "avg", nil))

	mixed := append(values, dec(t, "0.5")...)
	assert.Equal(t, item.TypeDecimal, mustCall(t, fn, "max", mixed)[0].(*item.Atomic).Type())

	ym1, _ := item.Parse(item.TypeYearMonthDuration, "P1Y")
	ym2, _ := item.Parse(item.TypeYearMonthDuration, "P6M")
	assert.Equal(t, "P1Y6M", text(t, mustCall(t, fn, "sum", item.Of(ym1, ym2))))

	_, err := call(t, fn, "sum", item.Of(item.Int(1), ym1))
	assert.True(t, types.IsCode(err, types.ErrInvalidArgumentType))

	_, err = call(t, fn, "max", item.Of(item.Int(1), ym1))
	assert.True(t, types.IsCode(err, types.ErrInvalidArgumentType))
}

func TestSequenceFunctions(t *testing.T) {
	seq := item.Of(item.String("a"), item.String("b"), item.String("c"))

	assert.Equal(t, "3", text(t, mustCall(t, fn, "count", seq)))
	assert.Len(t, mustCall(t, fn, "tail", seq), 2)
	assert.Equal(t, "c", text(t, mustCall(t, fn, "reverse", seq)[:1]))
	assert.Equal(t, seq, mustCall(t, fn, "remove", seq, num(0)))
	assert.Len(t, mustCall(t, fn, "remove", seq, num(2)), 2)
	assert.Len(t, mustCall(t, fn, "insert-before", seq, num(10), str("z")), 4)
	assert.Len(t, mustCall(t, fn, "subsequence", seq, num(2)), 2)
	sub := mustCall(t, fn, "subsequence", seq, dec(t, "0.5"), num(2))
	assert.Equal(t, item.Of(item.String("a"), item.String("b")), sub)
	assert.Equal(t, "bc", text(t, mustCall(t, fn, "substring", str("abcd"), dec(t, "1.5"), num(2))))
	assert.Len(t, mustCall(t, fn, "distinct-values", item.Of(item.Int(1), item.String("1"), item.Int(1))), 2)

	idx := mustCall(t, fn, "index-of", item.Of(item.Int(10), item.Int(20), item.Int(10)), num(10))
	assert.Equal(t, item.Of(item.Int(1), item.Int(3)), idx)

	_, err := call(t, fn, "exactly-one", seq)
	assert.True(t, types.IsCode(err, types.ErrExactlyOne))
	_, err = call(t, fn, "zero-or-one", seq)
	assert.True(t, types.IsCode(err, types.ErrZeroOrOne))
	_, err = call(t, fn, "one-or-more", nil)
	assert.True(t, types.IsCode(err, types.ErrOneOrMore))

	_, err = call(t, fn, "boolean", item.Of(item.Int(1), item.Int(2)))
	assert.True(t, types.IsCode(err, types.ErrInvalidArgumentType))
	assert.True(t, mustCall(t, fn, "not", nil)[0].(*item.Atomic).Bool())

}

func TestFocusFunctions(t *testing.T) {
	focus := item.String("b")
	assert.Equal(t, "2", text(t, mustCallWithFocus(t, focus, fn, "position")))
	assert.Equal(t, "5", text(t, mustCallWithFocus(t, focus, fn, "last")))

	for _, name := range []string{"position", "last"} {
		_, err := call(t, fn, name)
		assert.True(t, types.IsCode(err, types.ErrContextAbsent), name)
	}
}

func TestFocusRequired(t *testing.T) {
	_, err := call(t, fn, "string")
	assert.True(t, types.IsCode(err, types.ErrContextAbsent))
}

func TestDateTimeFunctions(t *testing.T) {
	assert.Equal(t, "2024-03-15T10:30:00+01:00", text(t, mustCall(t, fn, "current-dateTime")))
	assert.Equal(t, "2024-03-15+01:00", text(t, mustCall(t, fn, "current-date")))
	assert.Equal(t, "PT0S", text(t, mustCall(t, fn, "implicit-timezone")))

	d, err := item.Parse(item.TypeDate, "1999-12-31")
	require.NoError(t, err)
	tm, err := item.Parse(item.TypeTime, "12:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "1999-12-31T12:00:00-05:00", text(t, mustCall(t, fn, "dateTime", item.Of(d), item.Of(tm))))

	dt, err := item.Parse(item.TypeDateTime, "2002-03-07T10:00:00-05:00")
	require.NoError(t, err)
	tz, err := item.Parse(item.TypeDayTimeDuration, "-PT10H")
	require.NoError(t, err)
	assert.Equal(t, "2002-03-07T05:00:00-10:00", text(t, mustCall(t, fn, "adjust-dateTime-to-timezone", item.Of(dt), item.Of(tz))))
	assert.Equal(t, "2002-03-07T10:00:00", text(t, mustCall(t, fn, "adjust-dateTime-to-timezone", item.Of(dt), nil)))

	bad, err := item.Parse(item.TypeDayTimeDuration, "PT15H")
	require.NoError(t, err)
	_, err = call(t, fn, "adjust-dateTime-to-timezone", item.Of(dt), item.Of(bad))
	assert.True(t, types.IsCode(err, types.ErrInvalidTimezone))

	frac, err := item.Parse(item.TypeDateTime, "1999-05-31T13:20:05.25Z")
	require.NoError(t, err)
	assert.Equal(t, "1999", text(t, mustCall(t, fn, "year-from-dateTime", item.Of(frac))))
	assert.Equal(t, "5.25", text(t, mustCall(t, fn, "seconds-from-dateTime", item.Of(frac))))
	assert.Equal(t, "PT0S", text(t, mustCall(t, fn, "timezone-from-dateTime", item.Of(frac))))
	assert.Empty(t, mustCall(t, fn, "timezone-from-date", item.Of(d)))

	dur, err := item.Parse(item.TypeDayTimeDuration, "P3DT10H12M1.5S")
	require.NoError(t, err)
	assert.Equal(t, "3", text(t, mustCall(t, fn, "days-from-duration", item.Of(dur))))
	assert.Equal(t, "10", text(t, mustCall(t, fn, "hours-from-duration", item.Of(dur))))
	assert.Equal(t, "12", text(t, mustCall(t, fn, "minutes-from-duration", item.Of(dur))))
	assert.Equal(t, "1.5", text(t, mustCall(t, fn, "seconds-from-duration", item.Of(dur))))
	assert.Equal(t, "0", text(t, mustCall(t, fn, "years-from-duration", item.Of(dur))))

	ym, err := item.Parse(item.TypeYearMonthDuration, "-P20Y15M")
	require.NoError(t, err)
	assert.Equal(t, "-21", text(t, mustCall(t, fn, "years-from-duration", item.Of(ym))))
	assert.Equal(t, "-3", text(t, mustCall(t, fn, "months-from-duration", item.Of(ym))))
}

func TestArrayFunctions(t *testing.T) {
	arr := item.Of(item.ArrayOf(item.String("a"), item.String("b"), item.String("c")))

	assert.Equal(t, "b", text(t, mustCall(t, types.NSArray, "get", arr, num(2))))
	assert.Equal(t, "3", text(t, mustCall(t, types.NSArray, "size", arr)))
	_, err := call(t, types.NSArray, "get", arr, num(4))
	assert.True(t, types.IsCode(err, types.ErrArrayIndexOutOfBounds))

	sub := mustCall(t, types.NSArray, "subarray", arr, num(2))
	assert.Equal(t, 2, sub[0].(*item.Array).Size())
	_, err = call(t, types.NSArray, "subarray", arr, num(2), num(-1))
	assert.True(t, types.IsCode(err, types.ErrArrayNegativeLength))

	tail := mustCall(t, types.NSArray, "tail", arr)
	assert.Equal(t, 2, tail[0].(*item.Array).Size())
	_, err = call(t, types.NSArray, "head", item.Of(item.NewArray()))
	assert.True(t, types.IsCode(err, types.ErrArrayIndexOutOfBounds))

	nested := item.Of(item.Int(1), item.ArrayOf(item.Int(2), item.ArrayOf(item.Int(3))))
	assert.Len(t, mustCall(t, types.NSArray, "flatten", nested), 3)

	joined := mustCall(t, types.NSArray, "join", item.Of(arr[0], arr[0]))
	assert.Equal(t, 6, joined[0].(*item.Array).Size())

	upper, err := builtin.Library().Lookup(types.QName{Namespace: fn, Local: "upper-case"}, 1)
	require.NoError(t, err)
	mapped := mustCall(t, types.NSArray, "for-each", arr, item.Of(functions.NewRef(upper, 1, nil)))
	first, err := mapped[0].(*item.Array).Get(1)
	require.NoError(t, err)
	assert.Equal(t, "A", text(t, first))
}

func TestMapFunctions(t *testing.T) {
	m1 := item.NewMap(item.MapEntry{Key: item.String("a"), Value: num(1)})
	m2 := item.NewMap(item.MapEntry{Key: item.String("a"), Value: num(2)}, item.MapEntry{Key: item.String("b"), Value: num(3)})
	maps := item.Of(m1, m2)

	merged := mustCall(t, types.NSMap, "merge", maps)[0].(*item.Map)
	assert.Equal(t, 2, merged.Size())
	v, _ := merged.Get(item.String("a"))
	assert.Equal(t, num(1), v)

	opts := func(policy string) item.Sequence {
		return item.Of(item.NewMap(item.MapEntry{Key: item.String("duplicates"), Value: str(policy)}))
	}
	merged = mustCall(t, types.NSMap, "merge", maps, opts("use-last"))[0].(*item.Map)
	v, _ = merged.Get(item.String("a"))
	assert.Equal(t, num(2), v)

	merged = mustCall(t, types.NSMap, "merge", maps, opts("combine"))[0].(*item.Map)
	v, _ = merged.Get(item.String("a"))
	assert.Len(t, v, 2)

	_, err := call(t, types.NSMap, "merge", maps, opts("reject"))
	assert.True(t, types.IsCode(err, types.ErrDuplicateMapKey))

	assert.Len(t, mustCall(t, types.NSMap, "keys", item.Of(m2)), 2)
	assert.True(t, mustCall(t, types.NSMap, "contains", item.Of(m2), str("b"))[0].(*item.Atomic).Bool())
	assert.Equal(t, num(3), mustCall(t, types.NSMap, "get", item.Of(m2), str("b")))

	found := mustCall(t, types.NSMap, "find", item.Of(item.ArrayOf(m1, m2)), str("a"))
	assert.Equal(t, 2, found[0].(*item.Array).Size())

	removed := mustCall(t, types.NSMap, "remove", item.Of(m2), str("a"))
	assert.Equal(t, 1, removed[0].(*item.Map).Size())
}

func TestMathFunctions(t *testing.T) {
	assert.Equal(t, "3", text(t, mustCall(t, types.NSMath, "sqrt", num(9))))
	assert.Equal(t, "1024", text(t, mustCall(t, types.NSMath, "pow", num(2), num(10))))
	assert.Equal(t, "2", text(t, mustCall(t, types.NSMath, "log10", num(100))))
	_, err := call(t, types.NSMath, "sqrt", num(-1))
	assert.True(t, types.IsCode(err, types.ErrNumericOverflow))
}

func TestMetaFunctions(t *testing.T) {
	enc := mustCall(t, types.NSMetapath, "base64-encode", str("hello"))
	assert.Equal(t, "aGVsbG8=", text(t, enc))
	assert.Equal(t, "hello", text(t, mustCall(t, types.NSMetapath, "base64-decode", enc)))

	id := mustCall(t, types.NSMetapath, "random-uuid")
	assert.Equal(t, item.TypeUUID, id[0].(*item.Atomic).Type())

	assert.Equal(t, "2024-01-01T00:00:00Z",
		text(t, mustCall(t, types.NSMetapath, "date-time-with-timezone", str("2024-01-01T00:00:00Z"))))
	_, err := call(t, types.NSMetapath, "date-with-timezone", str("2024-01-01"))
	assert.True(t, types.IsCode(err, types.ErrInvalidValueForCast))

	n := mustCall(t, types.NSMetapath, "integer", str("42"))
	assert.Equal(t, item.TypeInteger, n[0].(*item.Atomic).Type())
	_, err = call(t, types.NSMetapath, "positive-integer", num(0))
	assert.True(t, types.IsCode(err, types.ErrInvalidValueForCast))
}

func TestHigherOrderFunctions(t *testing.T) {
	ref := mustCall(t, fn, "function-lookup", item.Of(item.QNameValue(types.QName{Namespace: fn, Local: "upper-case"})), num(1))
	require.Len(t, ref, 1)

	out := mustCall(t, fn, "for-each", item.Of(item.String("a"), item.String("b")), ref)
	assert.Equal(t, "B", text(t, out[1:]))

	missing := mustCall(t, fn, "function-lookup", item.Of(item.QNameValue(types.QName{Namespace: fn, Local: "nope"})), num(1))
	assert.Empty(t, missing)

	concat := mustCall(t, fn, "function-lookup", item.Of(item.QNameValue(types.QName{Namespace: fn, Local: "concat"})), num(2))
	folded := mustCall(t, fn, "fold-left", item.Of(item.String("a"), item.String("b")), str("x"), concat)
	assert.Equal(t, "xab", text(t, folded))
	folded = mustCall(t, fn, "fold-right", item.Of(item.String("a"), item.String("b")), str("x"), concat)
	assert.Equal(t, "abx", text(t, folded))
}

func TestNodeFunctions(t *testing.T) {
	doc, err := memdoc.ParseJSONBytes([]byte(`{"catalog":{"@id":"c1","group":[{"title":"A"},{"title":"B"}]}}`), memdoc.Options{BaseURI: "file:///data/catalog.json"})
	require.NoError(t, err)
	root := item.NodeOf(doc)
	catalog := item.NodeOf(doc.ModelItems()[0])
	group2 := item.NodeOf(catalog.ModelItems()[1])
	title := item.NodeOf(group2.ModelItems()[0])

	assert.Equal(t, "title", text(t, mustCall(t, fn, "local-name", item.Of(title))))
	assert.Equal(t, "/catalog[1]/group[2]/title[1]", text(t, mustCall(t, fn, "path", item.Of(title))))
	assert.Equal(t, root, mustCall(t, fn, "root", item.Of(title))[0])
	assert.True(t, mustCall(t, fn, "has-children", item.Of(catalog))[0].(*item.Atomic).Bool())
	assert.Equal(t, "file:///data/catalog.json", text(t, mustCall(t, fn, "document-uri", item.Of(root))))
	assert.Empty(t, mustCall(t, fn, "document-uri", item.Of(catalog)))

	inner := mustCall(t, fn, "innermost", item.Of(title, catalog, group2))
	assert.Equal(t, item.Of(title), inner)
	outer := mustCall(t, fn, "outermost", item.Of(title, catalog, group2))
	assert.Equal(t, item.Of(catalog), outer)

	env := testEnv{docs: map[string]item.Node{"file:///data/catalog.json": root}}
	doc1, err := builtin.Library().Lookup(types.QName{Namespace: fn, Local: "doc"}, 1)
	require.NoError(t, err)
	out, err := doc1.Invoke(context.Background(), env, nil, []item.Sequence{str("catalog.json")})
	require.NoError(t, err)
	assert.Equal(t, item.Of(root), out)

	avail, err := builtin.Library().Lookup(types.QName{Namespace: fn, Local: "document-available"}, 1)
	require.NoError(t, err)
	out, err = avail.Invoke(context.Background(), env, nil, []item.Sequence{str("missing.json")})
	require.NoError(t, err)
	assert.False(t, out[0].(*item.Atomic).Bool())

	_, err = doc1.Invoke(context.Background(), env, nil, []item.Sequence{str("missing.json")})
	assert.True(t, types.IsCode(err, types.ErrDocumentRetrieval))
}

func TestResolveURI(t *testing.T) {
	assert.Equal(t, "file:///data/x/y.json", text(t, mustCall(t, fn, "resolve-uri", str("x/y.json"))))
	assert.Equal(t, "http://example.com/a", text(t, mustCall(t, fn, "resolve-uri", str("a"), str("http://example.com/b"))))
	_, err := call(t, fn, "resolve-uri", str("a"), str(""))
	assert.True(t, types.IsCode(err, types.ErrBaseURIUndefined))
}

func TestLibraryListing(t *testing.T) {
	var names []string
	for _, f := range builtin.Library().Functions() {
		if f.Name().Namespace == fn {
			names = append(names, f.Name().Local)
		}
	}
	for _, want := range []string{"abs", "concat", "doc", "tokenize", "year-from-date", "deep-equal"} {
		assert.Contains(t, names, want)
	}
}
