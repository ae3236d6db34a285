// Package evaluator implements the Metapath evaluation engine.
//
// The evaluator walks a compiled syntax tree produced by the parser and
// evaluates it against a focus (context item, position and size) and a
// [DynamicContext]. It supports:
//   - Path navigation over flags, fields, assemblies and documents
//   - Predicates, quantified, for and let expressions
//   - Named, inline and dynamic function calls
//   - Array and map constructors and lookups
//   - Timeout, recursion limits and cancellation via context.Context
//
// # Example
//
//	ev := evaluator.New(evaluator.WithTimeout(5 * time.Second))
//	expr, err := ev.Compile("//control[@id = 'ac-1']/title", sc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := ev.Eval(ctx, expr, item.NodeOf(doc), nil)
//
// # Concurrency
//
// An Evaluator and the expressions it compiles are safe for concurrent
// use. Each call to Eval works on its own focus and its own child
// dynamic contexts.
package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/wandmagic/metapath/pkg/cache"
	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/metrics"
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/parser"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

// Evaluator evaluates Metapath expressions.
type Evaluator struct {
	opts    EvalOptions
	logger  *slog.Logger
	cache   *cache.Cache // non-nil when Caching is enabled
	metrics *metrics.Metrics
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Caching enables expression compilation caching.
	// When true, compiled expressions are cached by source and static context.
	// The default cache holds up to 256 entries with LRU eviction.
	Caching bool
	// CacheSize sets the maximum number of cached expressions.
	// Only used when Caching is true and no explicit Cache is provided.
	// Defaults to 256.
	CacheSize int
	// Cache is a custom expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// MaxDepth limits the nesting of expression evaluation, including
	// recursive inline function calls. Zero disables the limit.
	MaxDepth int
	// Timeout sets evaluation timeout.
	Timeout time.Duration
	// Logger for structured logging.
	Logger *slog.Logger
	// Metrics records compilations and evaluations when non-nil.
	Metrics *metrics.Metrics
	// ImplicitTimezone is used by dynamic contexts created with NewContext.
	ImplicitTimezone *time.Location
	// CurrentDateTime fixes current-dateTime() for dynamic contexts created
	// with NewContext. The zero time means the moment of creation.
	CurrentDateTime time.Time
	// DocumentLoader resolves doc() URIs for dynamic contexts created with
	// NewContext.
	DocumentLoader model.Loader
}

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Caching:  false, // Disabled by default
		MaxDepth: 10000,
		Timeout:  30 * time.Second,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	// Initialise expression cache when caching is enabled.
	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New(size)
	}

	return &Evaluator{
		opts:    options,
		logger:  options.Logger,
		cache:   c,
		metrics: options.Metrics,
	}
}

// Cache returns the expression cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.Cache {
	return e.cache
}

// Logger returns the evaluator's logger.
func (e *Evaluator) Logger() *slog.Logger {
	return e.logger
}

// NewContext creates a dynamic context configured from the evaluator
// options.
func (e *Evaluator) NewContext() *DynamicContext {
	var opts []DynamicOption
	if !e.opts.CurrentDateTime.IsZero() {
		opts = append(opts, WithDateTime(e.opts.CurrentDateTime))
	}
	if e.opts.ImplicitTimezone != nil {
		opts = append(opts, WithTimezone(e.opts.ImplicitTimezone))
	}
	if e.opts.DocumentLoader != nil {
		opts = append(opts, WithLoader(e.opts.DocumentLoader))
	}
	return NewDynamicContext(opts...)
}

// Compile compiles source in sc, consulting the expression cache when
// caching is enabled. A nil sc means static.Default().
func (e *Evaluator) Compile(source string, sc *static.Context) (*cst.Expression, error) {
	if sc == nil {
		sc = static.Default()
	}
	compile := func() (*cst.Expression, error) {
		e.logger.Debug("compiling expression", "source", source)
		expr, err := parser.Compile(source, sc)
		e.metrics.ObserveCompile(err)
		return expr, err
	}
	if e.cache == nil {
		return compile()
	}
	return e.cache.GetOrCompile(cache.Key(source, sc), compile)
}

// Eval evaluates a compiled expression. focus is the initial context item
// and may be nil when the expression does not depend on it. A nil dyn
// means a fresh context from NewContext.
func (e *Evaluator) Eval(ctx context.Context, expr *cst.Expression, focus item.Item, dyn *DynamicContext) (item.Sequence, error) {
	if expr == nil || expr.Root() == nil {
		return nil, types.Errorf(types.ErrUnidentified, "invalid expression")
	}
	start := time.Now()

	// Apply timeout if configured
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	if dyn == nil {
		dyn = e.NewContext()
	}

	// Share one depth counter across the whole evaluation tree.
	if e.opts.MaxDepth > 0 {
		ctx = withNewRecurseDepthPtr(ctx)
	}

	result, err := e.evalNode(ctx, expr.Root(), newScope(e, expr.Static(), dyn, focus))
	e.metrics.ObserveEvaluation(time.Since(start), err)
	if err != nil {
		e.logger.Debug("evaluation failed", "source", expr.Source(), "error", err)
		return nil, err
	}
	return result, nil
}

// EvalWithBindings evaluates an expression with the given variables bound
// by local name on top of a fresh dynamic context.
func (e *Evaluator) EvalWithBindings(ctx context.Context, expr *cst.Expression, focus item.Item, bindings map[string]item.Sequence) (item.Sequence, error) {
	dyn := e.NewContext()
	for name, value := range bindings {
		dyn = dyn.Bind(name, value)
	}
	return e.Eval(ctx, expr, focus, dyn)
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithCaching enables or disables expression compilation caching.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached expressions.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external expression cache.
// The evaluator will use this cache regardless of the Caching flag.
func WithCache(c *cache.Cache) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithTimeout sets the evaluation timeout. Zero disables it.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum recursion depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithMetrics records compilations and evaluations in m.
func WithMetrics(m *metrics.Metrics) EvalOption {
	return func(opts *EvalOptions) {
		opts.Metrics = m
	}
}

// WithImplicitTimezone sets the implicit timezone of new dynamic contexts.
func WithImplicitTimezone(loc *time.Location) EvalOption {
	return func(opts *EvalOptions) {
		opts.ImplicitTimezone = loc
	}
}

// WithCurrentDateTime fixes the current date and time of new dynamic
// contexts.
func WithCurrentDateTime(t time.Time) EvalOption {
	return func(opts *EvalOptions) {
		opts.CurrentDateTime = t
	}
}

// WithDocumentLoader sets the loader used by doc().
func WithDocumentLoader(l model.Loader) EvalOption {
	return func(opts *EvalOptions) {
		opts.DocumentLoader = l
	}
}
