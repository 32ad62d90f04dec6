package capability

import (
	"fmt"
	"reflect"
	"strings"
)

// LogicalTypeName is the stable, externally meaningful identifier of a type
type LogicalTypeName struct {
	Name string
}

func (LogicalTypeName) Kind() Kind       { return KindLogicalTypeName }
func (c LogicalTypeName) String() string { return c.Name }

// DisplayName is the human-readable name of a type or member
type DisplayName struct {
	Value string
}

func (DisplayName) Kind() Kind       { return KindDisplayName }
func (c DisplayName) String() string { return c.Value }

// Description is a longer explanation shown alongside the display name
type Description struct {
	Value string
}

func (Description) Kind() Kind       { return KindDescription }
func (c Description) String() string { return c.Value }

// Mandatory records whether a member must hold a value
type Mandatory struct {
	Required bool
}

func (Mandatory) Kind() Kind { return KindMandatory }

func (c Mandatory) String() string {
	if c.Required {
		return "required"
	}
	return "optional"
}

// MaxLength bounds the length of a text member
type MaxLength struct {
	Value int
}

func (MaxLength) Kind() Kind       { return KindMaxLength }
func (c MaxLength) String() string { return fmt.Sprintf("%d", c.Value) }

// Hidden marks a type or member as never rendered
type Hidden struct{}

func (Hidden) Kind() Kind     { return KindHidden }
func (Hidden) String() string { return "hidden" }

// ReadOnly marks a member as not editable
type ReadOnly struct {
	Reason string
}

func (ReadOnly) Kind() Kind { return KindReadOnly }

func (c ReadOnly) String() string {
	if c.Reason == "" {
		return "read-only"
	}
	return "read-only (" + c.Reason + ")"
}

// Choices points at the method supplying the permitted values of a member
type Choices struct {
	Method reflect.Method
}

func (Choices) Kind() Kind       { return KindChoices }
func (c Choices) String() string { return c.Method.Name }

// Values invokes the choices method on the given owner, which must be a
// pointer to the owning type.
func (c Choices) Values(owner any) ([]any, error) {
	v := reflect.ValueOf(owner)
	if !v.IsValid() || v.Type() != c.Method.Type.In(0) {
		return nil, fmt.Errorf("choices %s: owner must be %s, got %T", c.Method.Name, c.Method.Type.In(0), owner)
	}
	out := c.Method.Func.Call([]reflect.Value{v})
	if len(out) == 0 {
		return nil, nil
	}
	list := out[0]
	if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
		return nil, fmt.Errorf("choices %s: returned %s, want a slice", c.Method.Name, list.Type())
	}
	values := make([]any, list.Len())
	for i := range values {
		values[i] = list.Index(i).Interface()
	}
	return values, nil
}

// Immutable marks a type whose instances never change once created
type Immutable struct{}

func (Immutable) Kind() Kind     { return KindImmutable }
func (Immutable) String() string { return "immutable" }

// ElementType records the element type of a collection member
type ElementType struct {
	Type reflect.Type
}

func (ElementType) Kind() Kind { return KindElementType }

func (c ElementType) String() string {
	if c.Type == nil {
		return ""
	}
	return c.Type.String()
}

// Describe renders a capability for reports and exports
func Describe(c Capability) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return strings.TrimSpace(fmt.Sprintf("%v", c))
}
