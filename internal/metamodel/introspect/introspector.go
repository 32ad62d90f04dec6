package introspect

import (
	"reflect"
	"strings"

	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// TagKey is the struct tag read by introspection and tag-driven strategies
const TagKey = "meta"

// DefaultSupportingPrefixes name methods that support a member rather than
// being actions themselves
var DefaultSupportingPrefixes = []string{"Choices", "Hide", "Disable", "Default", "Validate"}

// DefaultProtocolMethods are methods recognised by strategies as type-level
// declarations
var DefaultProtocolMethods = []string{"LogicalTypeName", "Immutable", "Describe", "String"}

// Introspector discovers the structural members of struct types
type Introspector struct {
	supportingPrefixes []string
	protocolMethods    map[string]bool
}

// Option configures an Introspector
type Option func(*Introspector)

// WithSupportingPrefixes replaces the supporting-method prefixes
func WithSupportingPrefixes(prefixes ...string) Option {
	return func(i *Introspector) {
		i.supportingPrefixes = prefixes
	}
}

// WithProtocolMethods adds method names that are never actions
func WithProtocolMethods(names ...string) Option {
	return func(i *Introspector) {
		for _, n := range names {
			i.protocolMethods[n] = true
		}
	}
}

// NewIntrospector creates an introspector
func NewIntrospector(opts ...Option) *Introspector {
	i := &Introspector{
		supportingPrefixes: DefaultSupportingPrefixes,
		protocolMethods:    make(map[string]bool),
	}
	for _, n := range DefaultProtocolMethods {
		i.protocolMethods[n] = true
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SeedType normalizes a seed to its struct type identity
func SeedType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, &ReferenceError{Reason: "nil type"}
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &ReferenceError{Type: t, Reason: "seed is not a struct type"}
	}
	if t.Name() == "" {
		return nil, &ReferenceError{Type: t, Reason: "seed is an anonymous struct"}
	}
	return t, nil
}

// Members returns the properties, collections and actions of t. Fields come
// first in declaration order (promoted fields included), then actions in
// name order.
func (i *Introspector) Members(t reflect.Type) ([]*node.Member, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ReferenceError{Type: t, Reason: "not a struct type"}
	}

	var members []*node.Member

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tag, ok := f.Tag.Lookup(TagKey); ok && strings.TrimSpace(tag) == "-" {
			continue
		}
		members = append(members, &node.Member{
			Name:  f.Name,
			Kind:  fieldKind(f.Type),
			Owner: t,
			Type:  f.Type,
			Field: f,
		})
	}

	pt := reflect.PointerTo(t)
	for j := 0; j < pt.NumMethod(); j++ {
		m := pt.Method(j)
		if !i.isAction(m.Name) {
			continue
		}
		params := make([]reflect.Type, 0, m.Type.NumIn()-1)
		for k := 1; k < m.Type.NumIn(); k++ {
			params = append(params, m.Type.In(k))
		}
		members = append(members, &node.Member{
			Name:   m.Name,
			Kind:   node.MemberAction,
			Owner:  t,
			Type:   actionResult(m.Type),
			Method: m,
			Params: params,
		})
	}

	return members, nil
}

func (i *Introspector) isAction(name string) bool {
	if i.protocolMethods[name] {
		return false
	}
	for _, prefix := range i.supportingPrefixes {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return false
		}
	}
	return true
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func actionResult(mt reflect.Type) reflect.Type {
	if mt.NumOut() == 0 {
		return nil
	}
	if out := mt.Out(0); out != errorType {
		return out
	}
	return nil
}

// fieldKind classifies a field. Byte slices and arrays and text-marshalable
// types (uuid.UUID, net.IP) are properties despite their container kind.
func fieldKind(t reflect.Type) node.MemberKind {
	if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return node.MemberProperty
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return node.MemberProperty
		}
		return node.MemberCollection
	case reflect.Map:
		return node.MemberCollection
	default:
		return node.MemberProperty
	}
}
