// Package node defines the metamodel node: the per-type record of structural
// members plus installed capabilities.
package node

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
)

// ErrAlreadyIntrospected is returned when structural members are set twice
var ErrAlreadyIntrospected = errors.New("node already structurally introspected")

// State is the lifecycle position of a node
type State int32

const (
	StateBare State = iota
	StateIntrospected
	StateFaceted
	StateValidated
	StateIndexed
	StateRejected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateBare:
		return "bare"
	case StateIntrospected:
		return "introspected"
	case StateFaceted:
		return "faceted"
	case StateValidated:
		return "validated"
	case StateIndexed:
		return "indexed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Node describes one domain type. It is keyed by its reflect.Type and is
// created exactly once per type by the cache. Cross-node references are
// stored as types and resolved through the cache, never as pointers.
type Node struct {
	capability.Holder

	typ   reflect.Type
	state atomic.Int32

	mu           sync.RWMutex
	members      []*Member
	introspected bool
	references   []reflect.Type
}

// New creates a bare node for t
func New(t reflect.Type) *Node {
	return &Node{typ: t}
}

// Type returns the type identity of the node
func (n *Node) Type() reflect.Type {
	return n.typ
}

// Name returns the Go name of the node's type
func (n *Node) Name() string {
	return n.typ.String()
}

// State returns the current lifecycle state
func (n *Node) State() State {
	return State(n.state.Load())
}

// SetState moves the node to s
func (n *Node) SetState(s State) {
	n.state.Store(int32(s))
}

// SetMembers records the structural members discovered by introspection.
// Members can only be set once; a node never loses discovered members.
func (n *Node) SetMembers(members []*Member) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.introspected {
		return fmt.Errorf("%w: %s", ErrAlreadyIntrospected, n.typ)
	}
	n.members = members
	n.introspected = true
	n.SetState(StateIntrospected)
	return nil
}

// Members returns the structural members in discovery order
func (n *Node) Members() []*Member {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]*Member, len(n.members))
	copy(out, n.members)
	return out
}

// Member finds a member by name
func (n *Node) Member(name string) (*Member, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, m := range n.members {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// MembersOf returns the members of the given kind
func (n *Node) MembersOf(kind MemberKind) []*Member {
	var out []*Member
	for _, m := range n.Members() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// SetReferences records the types this node references
func (n *Node) SetReferences(refs []reflect.Type) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.references = make([]reflect.Type, len(refs))
	copy(n.references, refs)
}

// References returns the types discovered as referenced by this node
func (n *Node) References() []reflect.Type {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]reflect.Type, len(n.references))
	copy(out, n.references)
	return out
}

// ReferencesType reports whether the node references t
func (n *Node) ReferencesType(t reflect.Type) bool {
	for _, ref := range n.References() {
		if ref == t {
			return true
		}
	}
	return false
}

// LogicalID returns the node's logical type name, if one is installed
func (n *Node) LogicalID() (string, bool) {
	c, ok := capability.Lookup[capability.LogicalTypeName](&n.Holder, capability.KindLogicalTypeName)
	if !ok || c.Name == "" {
		return "", false
	}
	return c.Name, true
}

// DisplayName returns the installed display name, falling back to the Go name
func (n *Node) DisplayName() string {
	if c, ok := capability.Lookup[capability.DisplayName](&n.Holder, capability.KindDisplayName); ok {
		return c.Value
	}
	return n.typ.Name()
}

// Seal makes the node and all of its members read-only
func (n *Node) Seal() {
	n.Holder.Seal()
	for _, m := range n.Members() {
		m.Seal()
	}
}

// Unseal reopens the node and its members for post-processing
func (n *Node) Unseal() {
	n.Holder.Unseal()
	for _, m := range n.Members() {
		m.Unseal()
	}
}
