package node

import (
	"reflect"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
)

// MemberKind classifies a structural member
type MemberKind int

const (
	// MemberProperty is a scalar or reference field
	MemberProperty MemberKind = iota
	// MemberCollection is a slice, array or map field
	MemberCollection
	// MemberAction is an exported method
	MemberAction
)

// String returns the string representation of the member kind
func (k MemberKind) String() string {
	switch k {
	case MemberProperty:
		return "property"
	case MemberCollection:
		return "collection"
	case MemberAction:
		return "action"
	default:
		return "unknown"
	}
}

// Member is a structural member of a node. Like the node it carries its own
// capabilities.
type Member struct {
	capability.Holder

	Name  string
	Kind  MemberKind
	Owner reflect.Type

	// Type is the field type for properties and collections, and the first
	// result type for actions (nil when the action returns nothing).
	Type reflect.Type

	// Field is set for properties and collections
	Field reflect.StructField

	// Method and Params are set for actions; Params excludes the receiver
	Method reflect.Method
	Params []reflect.Type
}

// ID returns the member id in owner#member form
func (m *Member) ID() string {
	if m.Owner == nil {
		return m.Name
	}
	return m.Owner.String() + "#" + m.Name
}

// DisplayName returns the installed display name, falling back to the Go name
func (m *Member) DisplayName() string {
	if c, ok := capability.Lookup[capability.DisplayName](&m.Holder, capability.KindDisplayName); ok {
		return c.Value
	}
	return m.Name
}

// Required reports whether a Mandatory capability marks the member required
func (m *Member) Required() bool {
	c, ok := capability.Lookup[capability.Mandatory](&m.Holder, capability.KindMandatory)
	return ok && c.Required
}
