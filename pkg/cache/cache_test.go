package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/cache"
	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/parser"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

func compile(t *testing.T, src string) *cst.Expression {
	t.Helper()
	expr, err := parser.Compile(src, nil)
	require.NoError(t, err)
	return expr
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 10, c.Capacity())
	assert.Equal(t, 256, cache.New(0).Capacity())
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	expr := compile(t, "title")
	c.Set("title", expr)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("title")
	require.True(t, ok)
	assert.Same(t, expr, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, cache.Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New(3)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, compile(t, k))
	}
	// touch a so that b becomes the least recently used
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("d", compile(t, "d"))

	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := cache.New(4)
	c.Set("k", compile(t, "k"))
	c.Set("j", compile(t, "j"))
	c.Invalidate("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCacheSetUpdate(t *testing.T) {
	c := cache.New(4)
	first, second := compile(t, "a"), compile(t, "b")
	c.Set("k", first)
	c.Set("k", second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGetOrCompile(t *testing.T) {
	c := cache.New(4)
	calls := 0
	fn := func() (*cst.Expression, error) {
		calls++
		return parser.Compile("age", nil)
	}

	e1, err := c.GetOrCompile("age", fn)
	require.NoError(t, err)
	e2, err := c.GetOrCompile("age", fn)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, e1, e2)
}

func TestCacheGetOrCompileError(t *testing.T) {
	c := cache.New(4)
	_, err := c.GetOrCompile("bad", func() (*cst.Expression, error) {
		return parser.Compile("1 +", nil)
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrSyntax))
	assert.Equal(t, 0, c.Len(), "errors are not cached")
}

func TestCacheGetOrCompileConcurrent(t *testing.T) {
	c := cache.New(4)
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (*cst.Expression, error) {
		calls.Add(1)
		<-release
		return parser.Compile("a/b", nil)
	}

	var wg sync.WaitGroup
	results := make([]*cst.Expression, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			expr, err := c.GetOrCompile("a/b", fn)
			assert.NoError(t, err)
			results[i] = expr
		}(i)
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	for _, r := range results {
		assert.NotNil(t, r)
	}
	assert.Equal(t, 1, c.Len())
}

func TestKey(t *testing.T) {
	oscal := static.NewBuilder().DefaultModelNamespace("http://csrc.nist.gov/ns/oscal/1.0").Build()
	assert.Equal(t, cache.Key("title", nil), cache.Key("title", static.Default()))
	assert.NotEqual(t, cache.Key("title", nil), cache.Key("title", oscal))
	assert.NotEqual(t, cache.Key("title", oscal), cache.Key("remarks", oscal))
}
