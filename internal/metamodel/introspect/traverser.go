package introspect

import (
	"encoding"
	"fmt"
	"reflect"

	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// DefaultMaxUnwrap bounds container unwrapping for self-referential
// container types
const DefaultMaxUnwrap = 16

// Traverser enumerates the types referenced by an introspected node
type Traverser interface {
	ReferencedTypes(n *node.Node) ([]reflect.Type, error)
}

// TraverserFunc adapts a function to the Traverser interface
type TraverserFunc func(n *node.Node) ([]reflect.Type, error)

// ReferencedTypes calls f(n)
func (f TraverserFunc) ReferencedTypes(n *node.Node) ([]reflect.Type, error) {
	return f(n)
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// ReflectTraverser walks member types, action parameters and results,
// unwrapping pointers, slices, arrays, maps and channels. Named struct
// types are domain references. Types that marshal to text (time.Time,
// uuid.UUID, ...) and non-struct kinds are values. Interfaces are skipped.
type ReflectTraverser struct {
	valueTypes map[reflect.Type]bool
	valueNames map[string]bool
	maxUnwrap  int
}

// NewReflectTraverser creates a traverser; valueTypes are additional struct
// types treated as values
func NewReflectTraverser(valueTypes ...reflect.Type) *ReflectTraverser {
	vt := make(map[reflect.Type]bool, len(valueTypes))
	for _, t := range valueTypes {
		vt[t] = true
	}
	return &ReflectTraverser{valueTypes: vt, valueNames: make(map[string]bool), maxUnwrap: DefaultMaxUnwrap}
}

// WithValueNames treats struct types whose qualified name (e.g.
// "domain.Money") is listed as values
func (r *ReflectTraverser) WithValueNames(names ...string) *ReflectTraverser {
	for _, n := range names {
		r.valueNames[n] = true
	}
	return r
}

// ReferencedTypes returns the distinct domain types referenced by n's
// members, in member order
func (r *ReflectTraverser) ReferencedTypes(n *node.Node) ([]reflect.Type, error) {
	seen := make(map[reflect.Type]bool)
	var refs []reflect.Type

	visit := func(m *node.Member, t reflect.Type) error {
		found, err := r.collect(t, 0)
		if err != nil {
			return &ReferenceError{Type: n.Type(), Member: m.Name, Reason: err.Error()}
		}
		for _, ref := range found {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
		return nil
	}

	for _, m := range n.Members() {
		if m.Type != nil {
			if err := visit(m, m.Type); err != nil {
				return nil, err
			}
		}
		for _, p := range m.Params {
			if err := visit(m, p); err != nil {
				return nil, err
			}
		}
	}

	return refs, nil
}

func (r *ReflectTraverser) collect(t reflect.Type, depth int) ([]reflect.Type, error) {
	if depth > r.maxUnwrap {
		return nil, fmt.Errorf("type %s nests deeper than %d levels", t, r.maxUnwrap)
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Chan:
		return r.collect(t.Elem(), depth+1)

	case reflect.Map:
		// Element first, then key
		elem, err := r.collect(t.Elem(), depth+1)
		if err != nil {
			return nil, err
		}
		key, err := r.collect(t.Key(), depth+1)
		if err != nil {
			return nil, err
		}
		return append(elem, key...), nil

	case reflect.Struct:
		if r.isValue(t) {
			return nil, nil
		}
		if t.Name() == "" {
			return nil, fmt.Errorf("anonymous struct type %s", t)
		}
		return []reflect.Type{t}, nil

	case reflect.Func:
		return nil, fmt.Errorf("func type %s is not a domain type", t)

	case reflect.UnsafePointer:
		return nil, fmt.Errorf("unsafe pointer is not a domain type")

	default:
		// Basic kinds and interfaces
		return nil, nil
	}
}

func (r *ReflectTraverser) isValue(t reflect.Type) bool {
	if r.valueTypes[t] || r.valueNames[t.String()] {
		return true
	}
	return t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType)
}
