// Package types defines the shared vocabulary of the Metapath engine.
//
// This package contains:
//   - Error: structured errors carrying a stable Metapath error code
//   - QName: namespace-qualified names and the interning cache
//   - Well-known namespace URIs and their conventional prefixes
package types

import (
	"strings"
	"sync"
)

// Well-known namespaces.
const (
	NSMetapath          = "http://csrc.nist.gov/ns/metaschema/metapath"
	NSMetapathFunctions = "http://csrc.nist.gov/ns/metaschema/metapath-functions"
	NSMath              = "http://csrc.nist.gov/ns/metaschema/metapath-functions/math"
	NSArray             = "http://csrc.nist.gov/ns/metaschema/metapath-functions/array"
	NSMap               = "http://csrc.nist.gov/ns/metaschema/metapath-functions/map"
	NSXMLSchema         = "http://www.w3.org/2001/XMLSchema"
)

// WellKnownNamespaces maps the prefixes every static context binds to
// their namespace URIs.
var WellKnownNamespaces = map[string]string{
	"meta":  NSMetapath,
	"mp":    NSMetapathFunctions,
	"math":  NSMath,
	"array": NSArray,
	"map":   NSMap,
	"xs":    NSXMLSchema,
}

// QName is a namespace-qualified name.
type QName struct {
	Namespace string
	Local     string
}

// String renders the name in EQName form, Q{ns}local, or just the local
// name when there is no namespace.
func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "Q{" + q.Namespace + "}" + q.Local
}

// IsZero reports whether the name is empty.
func (q QName) IsZero() bool {
	return q.Namespace == "" && q.Local == ""
}

// ParseEQName parses either a Q{ns}local name or a plain local name.
func ParseEQName(s string) (QName, bool) {
	if !strings.HasPrefix(s, "Q{") {
		return QName{Local: s}, s != ""
	}
	end := strings.IndexByte(s, '}')
	if end < 0 || end == len(s)-1 {
		return QName{}, false
	}
	return QName{Namespace: s[2:end], Local: s[end+1:]}, true
}

// QNameCache interns qualified names so that every distinct
// (namespace, local) pair shares one backing copy of its strings.
//
// Entries are never removed. Safe for concurrent use.
type QNameCache struct {
	mu    sync.RWMutex
	names map[QName]QName
}

// NewQNameCache creates an empty cache.
func NewQNameCache() *QNameCache {
	return &QNameCache{names: make(map[QName]QName)}
}

// DefaultQNames is the process-wide cache used when no cache is supplied.
var DefaultQNames = NewQNameCache()

// Intern returns the canonical QName for the pair, inserting it if absent.
func (c *QNameCache) Intern(namespace, local string) QName {
	key := QName{Namespace: namespace, Local: local}

	c.mu.RLock()
	q, ok := c.names[key]
	c.mu.RUnlock()
	if ok {
		return q
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok = c.names[key]; ok {
		return q
	}
	q = QName{Namespace: strings.Clone(namespace), Local: strings.Clone(local)}
	c.names[key] = q
	return q
}

// Len returns the number of interned names.
func (c *QNameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
