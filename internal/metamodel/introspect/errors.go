// Package introspect discovers the structural members of domain types via
// reflection and enumerates the types a node references.
package introspect

import (
	"fmt"
	"reflect"
)

// ReferenceError reports a type or member that cannot be resolved into the
// closed type universe. It always aborts the build.
type ReferenceError struct {
	Type   reflect.Type
	Member string
	Reason string
}

// Error implements the error interface
func (e *ReferenceError) Error() string {
	name := "<nil>"
	if e.Type != nil {
		name = e.Type.String()
	}
	if e.Member != "" {
		return fmt.Sprintf("cannot resolve %s#%s: %s", name, e.Member, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %s: %s", name, e.Reason)
}
