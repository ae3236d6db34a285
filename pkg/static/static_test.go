package static_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/functions/builtin"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

func TestDefaultContext(t *testing.T) {
	sc := static.Default()
	for prefix, uri := range types.WellKnownNamespaces {
		got, ok := sc.Namespace(prefix)
		require.True(t, ok, prefix)
		assert.Equal(t, uri, got)
	}
	assert.Equal(t, types.NSMetapathFunctions, sc.DefaultFunctionNamespace())
	assert.Empty(t, sc.DefaultModelNamespace())
	assert.Same(t, builtin.Library(), sc.Library())
	assert.Same(t, sc, static.Default())
}

func TestResolveModelName(t *testing.T) {
	sc := static.NewBuilder().Namespace("o", "urn:o").Build()

	name, wildcard, err := sc.ResolveModelName("", "control")
	require.NoError(t, err)
	assert.True(t, wildcard)
	assert.Equal(t, "control", name.Local)

	name, wildcard, err = sc.ResolveModelName("o", "control")
	require.NoError(t, err)
	assert.False(t, wildcard)
	assert.Equal(t, "Q{urn:o}control", name.String())

	_, _, err = sc.ResolveModelName("x", "control")
	assert.True(t, types.IsCode(err, types.ErrPrefixNotExpandable))

	strict := static.NewBuilder().UseWildcardWhenNamespaceNotDefaulted(false).Build()
	name, wildcard, err = strict.ResolveModelName("", "control")
	require.NoError(t, err)
	assert.False(t, wildcard)
	assert.Empty(t, name.Namespace)

	defaulted := static.NewBuilder().DefaultModelNamespace("urn:o").Build()
	name, wildcard, err = defaulted.ResolveModelName("", "control")
	require.NoError(t, err)
	assert.False(t, wildcard)
	assert.Equal(t, "urn:o", name.Namespace)
}

func TestResolveFunctionAndVariableNames(t *testing.T) {
	sc := static.Default()

	fn, err := sc.ResolveFunctionName("", "count")
	require.NoError(t, err)
	assert.Equal(t, types.NSMetapathFunctions, fn.Namespace)

	fn, err = sc.ResolveFunctionName("array", "size")
	require.NoError(t, err)
	assert.Equal(t, types.NSArray, fn.Namespace)

	v, err := sc.ResolveName("", "x")
	require.NoError(t, err)
	assert.Empty(t, v.Namespace)

	_, err = sc.ResolveFunctionName("nope", "f")
	assert.True(t, types.IsCode(err, types.ErrPrefixNotExpandable))
	_, err = sc.ResolveName("nope", "x")
	assert.True(t, types.IsCode(err, types.ErrPrefixNotExpandable))
}

func TestBuilderDoesNotShareState(t *testing.T) {
	b := static.NewBuilder().Namespace("a", "urn:a")
	first := b.Build()
	b.Namespace("b", "urn:b")
	second := b.Build()

	_, ok := first.Namespace("b")
	assert.False(t, ok)
	_, ok = second.Namespace("b")
	assert.True(t, ok)

	derived := first.Builder().Namespace("c", "urn:c").Build()
	_, ok = first.Namespace("c")
	assert.False(t, ok)
	_, ok = derived.Namespace("a")
	assert.True(t, ok)

	ns := first.Namespaces()
	ns["z"] = "urn:z"
	_, ok = first.Namespace("z")
	assert.False(t, ok)
}

func TestFingerprint(t *testing.T) {
	a := static.NewBuilder().Namespace("o", "urn:o").BaseURI("urn:base").Build()
	b := static.NewBuilder().Namespace("o", "urn:o").BaseURI("urn:base").Build()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	variants := []*static.Context{
		static.NewBuilder().Namespace("o", "urn:other").BaseURI("urn:base").Build(),
		static.NewBuilder().Namespace("o", "urn:o").Build(),
		a.Builder().DefaultModelNamespace("urn:o").Build(),
		a.Builder().UseWildcardWhenNamespaceNotDefaulted(false).Build(),
		a.Builder().FunctionLibrary(builtin.Library().Extend()).Build(),
	}
	for i, v := range variants {
		assert.NotEqual(t, a.Fingerprint(), v.Fingerprint(), "variant %d", i)
	}
}

func TestQNamesCache(t *testing.T) {
	cache := types.NewQNameCache()
	sc := static.NewBuilder().QNames(cache).Namespace("o", "urn:o").Build()
	assert.Same(t, cache, sc.QNames())

	_, _, err := sc.ResolveModelName("o", "group")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}
