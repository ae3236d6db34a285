package evaluator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model"
	"github.com/wandmagic/metapath/pkg/types"
)

// DynamicContext holds the state of one top-level evaluation: variable
// bindings, the current date and time, the implicit timezone and the
// documents available to doc().
//
// Binding a variable returns a child context; the receiver is never
// modified, so a context can be shared by evaluations running in
// parallel. Children share the date, timezone and document state of the
// context they were derived from.
type DynamicContext struct {
	parent *DynamicContext
	name   types.QName
	value  item.Sequence
	bound  bool
	state  *dynamicState
}

type dynamicState struct {
	now    time.Time
	tz     *time.Location
	loader model.Loader

	mu    sync.Mutex
	docs  map[string]item.Node
	group singleflight.Group
}

// DynamicOption configures a dynamic context.
type DynamicOption func(*dynamicState)

// WithDateTime fixes the value returned by current-dateTime() and related
// functions.
func WithDateTime(t time.Time) DynamicOption {
	return func(s *dynamicState) {
		s.now = t
	}
}

// WithTimezone sets the implicit timezone applied to temporal values that
// have none.
func WithTimezone(loc *time.Location) DynamicOption {
	return func(s *dynamicState) {
		s.tz = loc
	}
}

// WithLoader sets the loader used by doc() and document-available().
func WithLoader(l model.Loader) DynamicOption {
	return func(s *dynamicState) {
		s.loader = l
	}
}

// NewDynamicContext creates a root dynamic context. The current date and
// time default to the moment of the call and the implicit timezone to the
// local offset at that moment.
func NewDynamicContext(opts ...DynamicOption) *DynamicContext {
	st := &dynamicState{docs: make(map[string]item.Node)}
	for _, opt := range opts {
		opt(st)
	}
	if st.now.IsZero() {
		st.now = time.Now()
	}
	if st.tz == nil {
		_, offset := st.now.Zone()
		st.tz = item.FixedZone(offset)
	}
	st.now = st.now.In(st.tz)
	return &DynamicContext{state: st}
}

// BindVariable returns a child context in which name is bound to value.
func (c *DynamicContext) BindVariable(name types.QName, value item.Sequence) *DynamicContext {
	return &DynamicContext{parent: c, name: name, value: value, bound: true, state: c.state}
}

// Bind is BindVariable for an unqualified variable name.
func (c *DynamicContext) Bind(local string, value item.Sequence) *DynamicContext {
	return c.BindVariable(types.QName{Local: local}, value)
}

// Variable returns the value of the nearest binding of name.
func (c *DynamicContext) Variable(name types.QName) (item.Sequence, error) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.bound && cur.name == name {
			return cur.value, nil
		}
	}
	return nil, types.Errorf(types.ErrNotDefined, "variable $%s is not defined", name)
}

// ImplicitTimezone returns the timezone applied to values without one.
func (c *DynamicContext) ImplicitTimezone() *time.Location { return c.state.tz }

// CurrentDateTime returns the fixed date and time of this evaluation.
func (c *DynamicContext) CurrentDateTime() time.Time { return c.state.now }

// Document returns the document at uri, loading it on first use. Every
// later call with the same uri returns the same node.
func (c *DynamicContext) Document(ctx context.Context, uri string) (item.Node, error) {
	st := c.state
	st.mu.Lock()
	doc, ok := st.docs[uri]
	st.mu.Unlock()
	if ok {
		return doc, nil
	}
	if st.loader == nil {
		return item.Node{}, types.Errorf(types.ErrDocumentRetrieval, "no document loader is configured to retrieve %q", uri)
	}

	v, err, _ := st.group.Do(uri, func() (any, error) {
		n, err := st.loader.Load(ctx, uri)
		if err != nil {
			return nil, err
		}
		doc := item.NodeOf(n)
		st.mu.Lock()
		st.docs[uri] = doc
		st.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		// each caller gets its own error, the evaluator sets its position
		return item.Node{}, types.Errorf(types.ErrDocumentRetrieval, "unable to retrieve %q", uri).WithCause(err)
	}
	return v.(item.Node), nil
}
