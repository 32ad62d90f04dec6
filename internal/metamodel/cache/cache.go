// Package cache stores metamodel nodes keyed by type identity and, once a
// build is published, by logical id.
//
// The primary map is write-once per key: LoadOrCreate uses a double-checked
// insert so concurrent callers for the same type receive the same node. The
// logical-id index is published atomically after validation succeeds; until
// then (or after a failed build) every public lookup fails.
package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

var (
	// ErrNotInitialized is returned by lookups before a build is published
	ErrNotInitialized = errors.New("metamodel not initialized")
	// ErrBuildFailed is returned by lookups after a build was rejected
	ErrBuildFailed = errors.New("metamodel build failed")
	// ErrNotFound is returned when no node matches the lookup key
	ErrNotFound = errors.New("metamodel node not found")
	// ErrAlreadyPublished is returned when a second index is published
	ErrAlreadyPublished = errors.New("metamodel already published")
)

// Status is the publication state of the cache
type Status int32

const (
	StatusBuilding Status = iota
	StatusPublished
	StatusFailed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusBuilding:
		return "building"
	case StatusPublished:
		return "published"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Cache holds every node of one metamodel
type Cache struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*node.Node
	order  []reflect.Type

	index   atomic.Pointer[map[string]*node.Node]
	status  atomic.Int32
	failure error
}

// New creates an empty cache
func New() *Cache {
	return &Cache{byType: make(map[reflect.Type]*node.Node)}
}

// LoadOrCreate returns the node for t, creating a bare node when none
// exists. created is true for exactly one caller per type.
func (c *Cache) LoadOrCreate(t reflect.Type) (n *node.Node, created bool) {
	c.mu.RLock()
	n, ok := c.byType[t]
	c.mu.RUnlock()
	if ok {
		return n, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.byType[t]; ok {
		return n, false
	}
	n = node.New(t)
	c.byType[t] = n
	c.order = append(c.order, t)
	return n, true
}

// Peek returns the node for t whatever its state. It is meant for the build
// itself: nodes may be partially populated.
func (c *Cache) Peek(t reflect.Type) (*node.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.byType[t]
	return n, ok
}

// Contains reports whether t has a node
func (c *Cache) Contains(t reflect.Type) bool {
	_, ok := c.Peek(t)
	return ok
}

// Len returns the number of nodes
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byType)
}

// Nodes returns every node in insertion order
func (c *Cache) Nodes() []*node.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*node.Node, len(c.order))
	for i, t := range c.order {
		out[i] = c.byType[t]
	}
	return out
}

// Status returns the publication state
func (c *Cache) Status() Status {
	return Status(c.status.Load())
}

// Publish exposes the logical-id index. It succeeds once per build.
func (c *Cache) Publish(index map[string]*node.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Status() != StatusBuilding {
		return fmt.Errorf("%w (status %s)", ErrAlreadyPublished, c.Status())
	}

	published := make(map[string]*node.Node, len(index))
	for id, n := range index {
		published[id] = n
	}
	c.index.Store(&published)
	c.status.Store(int32(StatusPublished))
	return nil
}

// Reject records a failed build. No index is ever exposed for it.
func (c *Cache) Reject(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index.Store(nil)
	c.failure = err
	c.status.Store(int32(StatusFailed))
}

// Failure returns the error recorded by Reject
func (c *Cache) Failure() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failure
}

func (c *Cache) ready() error {
	switch c.Status() {
	case StatusPublished:
		return nil
	case StatusFailed:
		return fmt.Errorf("%w: %v", ErrBuildFailed, c.Failure())
	default:
		return ErrNotInitialized
	}
}

// LookupByType returns the node for t. Pointer types resolve to their
// element type.
func (c *Cache) LookupByType(t reflect.Type) (*node.Node, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	n, ok := c.Peek(t)
	if !ok {
		return nil, fmt.Errorf("%w: type %v", ErrNotFound, t)
	}
	return n, nil
}

// LookupByLogicalID returns the node registered under id
func (c *Cache) LookupByLogicalID(id string) (*node.Node, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	index := c.index.Load()
	if index == nil {
		return nil, ErrNotInitialized
	}
	n, ok := (*index)[id]
	if !ok {
		return nil, fmt.Errorf("%w: logical id %s", ErrNotFound, id)
	}
	return n, nil
}

// LogicalIDs returns every published logical id in sorted order
func (c *Cache) LogicalIDs() ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	index := c.index.Load()
	if index == nil {
		return nil, ErrNotInitialized
	}
	ids := make([]string, 0, len(*index))
	for id := range *index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Published returns every node of a published metamodel in insertion order
func (c *Cache) Published() ([]*node.Node, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.Nodes(), nil
}

// Clear drops every node and the index, returning the cache to its initial
// state. It is the shutdown path.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byType = make(map[reflect.Type]*node.Node)
	c.order = nil
	c.index.Store(nil)
	c.failure = nil
	c.status.Store(int32(StatusBuilding))
}
