package functions_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

const testNS = "urn:test"

type stubEnv struct{}

func (stubEnv) Position() int                    { return 1 }
func (stubEnv) Size() int                        { return 1 }
func (stubEnv) ImplicitTimezone() *time.Location { return time.UTC }
func (stubEnv) CurrentDateTime() time.Time       { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
func (stubEnv) StaticBaseURI() string            { return "" }
func (stubEnv) Library() *functions.Library      { return nil }
func (stubEnv) Logger() *slog.Logger             { return slog.Default() }
func (stubEnv) Call(context.Context, item.Function, []item.Sequence) (item.Sequence, error) {
	return nil, nil
}
func (stubEnv) Document(context.Context, string) (item.Node, error) { return item.Node{}, nil }
func (stubEnv) Evaluate(context.Context, string, item.Item) (item.Sequence, error) {
	return nil, nil
}

func TestParseSignature(t *testing.T) {
	tests := []struct {
		input    string
		args     int
		variadic bool
		ret      string
	}{
		{"() as boolean", 0, false, "boolean"},
		{"(string?, decimal, decimal) as string", 3, false, "string"},
		{"($values as any-atomic-type?...) as string", 1, true, "string"},
		{"(item()*, function(*)) as item()*", 2, false, "item()*"},
		{"(map(*)*, map(*)?) as map(*)", 2, false, "map(*)"},
		{"(meta:integer+) as empty-sequence()", 1, false, "empty-sequence()"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sig, err := functions.ParseSignature(tt.input)
			require.NoError(t, err)
			assert.Len(t, sig.Arguments, tt.args)
			assert.Equal(t, tt.variadic, sig.Variadic)
			assert.Equal(t, tt.ret, sig.Return.String())
		})
	}

	for _, bad := range []string{"string", "(string", "(string)", "(nope) as string", "(...) as string"} {
		_, err := functions.ParseSignature(bad)
		assert.Error(t, err, bad)
	}
}

func TestSignatureArity(t *testing.T) {
	sig, err := functions.ParseSignature("(string?, string?...) as string")
	require.NoError(t, err)
	assert.False(t, sig.AcceptsArity(1))
	assert.True(t, sig.AcceptsArity(2))
	assert.True(t, sig.AcceptsArity(7))
	assert.Equal(t, "string?", sig.ArgumentType(5).String())
}

func TestConvert(t *testing.T) {
	st, err := functions.ParseSequenceType("decimal?")
	require.NoError(t, err)

	out, err := functions.Convert(item.Of(item.Int(3)), st)
	require.NoError(t, err)
	assert.Equal(t, item.TypeInteger, out[0].(*item.Atomic).Type())

	out, err = functions.Convert(item.Of(item.String("1.25")), st)
	require.NoError(t, err)
	assert.Equal(t, item.TypeDecimal, out[0].(*item.Atomic).Type())

	_, err = functions.Convert(item.Of(item.String("abc")), st)
	assert.True(t, types.IsCode(err, types.ErrInvalidValueForCast))

	_, err = functions.Convert(item.Of(item.Int(1), item.Int(2)), st)
	assert.True(t, types.IsCode(err, types.ErrType))

	_, err = functions.Convert(item.Of(item.Boolean(true)), st)
	assert.True(t, types.IsCode(err, types.ErrType))

	node, err := functions.ParseSequenceType("node()*")
	require.NoError(t, err)
	_, err = functions.Convert(item.Of(item.Int(1)), node)
	assert.True(t, types.IsCode(err, types.ErrType))

	str, err := functions.ParseSequenceType("string")
	require.NoError(t, err)
	out, err = functions.Convert(item.Of(item.URI("urn:x")), str)
	require.NoError(t, err)
	assert.Equal(t, item.TypeString, out[0].(*item.Atomic).Type())
}

func TestLibrary(t *testing.T) {
	one := functions.MustNew(testNS, "f", "(string) as string", functions.Deterministic,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			return args[0], nil
		})
	two := functions.MustNew(testNS, "f", "(string, string) as string", functions.Deterministic,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			return args[1], nil
		})

	base := functions.NewLibrary().Register(one)
	child := base.Extend().Register(two)

	name := types.QName{Namespace: testNS, Local: "f"}
	fn, err := child.Lookup(name, 2)
	require.NoError(t, err)
	assert.Same(t, two, fn)

	fn, err = child.Lookup(name, 1)
	require.NoError(t, err)
	assert.Same(t, one, fn)

	_, err = base.Lookup(name, 2)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrNoFunctionMatch))

	_, err = child.Lookup(types.QName{Namespace: testNS, Local: "g"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown function")

	assert.Len(t, child.Functions(), 2)
	assert.Len(t, base.Functions(), 1)
}

func TestInvoke(t *testing.T) {
	upper := functions.MustNew(testNS, "first", "(string*) as string?", functions.Deterministic,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			if len(args[0]) == 0 {
				return nil, nil
			}
			return args[0][:1], nil
		})

	out, err := upper.Invoke(context.Background(), stubEnv{}, nil, []item.Sequence{item.Of(item.URI("a"), item.String("b"))})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, item.TypeString, out[0].(*item.Atomic).Type())

	_, err = upper.Invoke(context.Background(), stubEnv{}, nil, nil)
	assert.True(t, types.IsCode(err, types.ErrNoFunctionMatch))

	bad := functions.MustNew(testNS, "bad", "() as string", functions.Deterministic,
		func(context.Context, functions.Env, item.Item, []item.Sequence) (item.Sequence, error) {
			return nil, nil
		})
	_, err = bad.Invoke(context.Background(), stubEnv{}, nil, nil)
	assert.True(t, types.IsCode(err, types.ErrType))

	focus := functions.MustNew(testNS, "focus", "() as item()?", functions.FocusDependent,
		func(_ context.Context, _ functions.Env, f item.Item, _ []item.Sequence) (item.Sequence, error) {
			return item.Of(f), nil
		})
	_, err = focus.Invoke(context.Background(), stubEnv{}, nil, nil)
	assert.True(t, types.IsCode(err, types.ErrContextAbsent))
}
