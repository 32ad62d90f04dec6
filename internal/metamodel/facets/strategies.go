package facets

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/introspect"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
	strutil "github.com/conduit-lang/metamodel/internal/util/strings"
)

// LegacyTitleTagKey is the struct tag read by LegacyTitleTagStrategy
const LegacyTitleTagKey = "title"

type logicalTypeNamer interface {
	LogicalTypeName() string
}

type describer interface {
	Describe() string
}

type immutable interface {
	Immutable()
}

// instance returns a pointer to a zero value of t, which carries both the
// value and pointer method sets
func instance(t reflect.Type) any {
	return reflect.New(t).Interface()
}

// FallbackStrategy installs generic defaults that later stages refine:
// the Go-derived logical type name and display names, mandatory unless the
// member type can be nil, and the element type of collections.
type FallbackStrategy struct{}

func (FallbackStrategy) Name() string { return "fallback" }

func (FallbackStrategy) Process(pc *programming.ProcessContext) error {
	if !pc.IsMember() {
		t := pc.Node.Type()
		pc.Install(capability.LogicalTypeName{Name: t.String()})
		pc.Install(capability.DisplayName{Value: strutil.Humanize(t.Name())})
		return nil
	}

	m := pc.Member
	pc.Install(capability.DisplayName{Value: strutil.Humanize(m.Name)})
	switch m.Kind {
	case node.MemberProperty:
		pc.Install(capability.Mandatory{Required: !nullable(m.Type)})
	case node.MemberCollection:
		pc.Install(capability.Mandatory{Required: false})
		pc.Install(capability.ElementType{Type: m.Type.Elem()})
	}
	return nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}

// LogicalTypeNameStrategy reads the logical type name a type declares
// through a LogicalTypeName() string method
type LogicalTypeNameStrategy struct{}

func (LogicalTypeNameStrategy) Name() string { return "logical-type-name" }

func (LogicalTypeNameStrategy) Process(pc *programming.ProcessContext) error {
	if pc.IsMember() {
		return nil
	}
	v, ok := instance(pc.Node.Type()).(logicalTypeNamer)
	if !ok {
		return nil
	}
	if name := strings.TrimSpace(v.LogicalTypeName()); name != "" {
		pc.Install(capability.LogicalTypeName{Name: name})
	}
	return nil
}

// DescriptionStrategy reads a type description from a Describe() string
// method
type DescriptionStrategy struct{}

func (DescriptionStrategy) Name() string { return "description" }

func (DescriptionStrategy) Process(pc *programming.ProcessContext) error {
	if pc.IsMember() {
		return nil
	}
	if v, ok := instance(pc.Node.Type()).(describer); ok {
		if desc := strings.TrimSpace(v.Describe()); desc != "" {
			pc.Install(capability.Description{Value: desc})
		}
	}
	return nil
}

// ImmutableStrategy marks types that declare an Immutable() method
type ImmutableStrategy struct{}

func (ImmutableStrategy) Name() string { return "immutable" }

func (ImmutableStrategy) Process(pc *programming.ProcessContext) error {
	if pc.IsMember() {
		return nil
	}
	if _, ok := instance(pc.Node.Type()).(immutable); ok {
		pc.Install(capability.Immutable{})
	}
	return nil
}

// TagStrategy applies `meta:"..."` struct tags to properties and
// collections
type TagStrategy struct{}

func (TagStrategy) Name() string { return "meta-tag" }

func (TagStrategy) Process(pc *programming.ProcessContext) error {
	if !pc.IsMember() || pc.Member.Kind == node.MemberAction {
		return nil
	}
	tag, ok := pc.Member.Field.Tag.Lookup(introspect.TagKey)
	if !ok {
		return nil
	}
	mt, err := ParseMetaTag(tag)
	if err != nil {
		return err
	}

	if mt.Name != "" {
		pc.Install(capability.DisplayName{Value: mt.Name})
	}
	if mt.DescribedAs != "" {
		pc.Install(capability.Description{Value: mt.DescribedAs})
	}
	if mt.Mandatory != nil {
		pc.Install(capability.Mandatory{Required: *mt.Mandatory})
	}
	if mt.Hidden {
		pc.Install(capability.Hidden{})
	}
	if mt.ReadOnly {
		pc.Install(capability.ReadOnly{Reason: "declared"})
	}
	if mt.MaxLength != nil {
		pc.Install(capability.MaxLength{Value: *mt.MaxLength})
	}
	return nil
}

// ChoicesStrategy links a property to its Choices<Property>() method. It
// also contributes the validator that checks those methods' signatures.
type ChoicesStrategy struct{}

func (ChoicesStrategy) Name() string { return "choices" }

func (ChoicesStrategy) Process(pc *programming.ProcessContext) error {
	if !pc.IsMember() || pc.Member.Kind != node.MemberProperty {
		return nil
	}
	method, ok := reflect.PointerTo(pc.Member.Owner).MethodByName("Choices" + pc.Member.Name)
	if !ok {
		return nil
	}
	pc.Install(capability.Choices{Method: method})
	return nil
}

// RefineModel adds ChoicesTypeValidator. A registration error surfaces from
// Finalize.
func (ChoicesStrategy) RefineModel(r programming.ValidatorRegistrar) {
	_ = r.AddValidator(programming.StageRefinement, ChoicesTypeValidator{})
}

// LegacyTitleTagStrategy reads display names from the older `title:"..."`
// tag. It is registered as deprecated.
type LegacyTitleTagStrategy struct{}

func (LegacyTitleTagStrategy) Name() string { return "legacy-title-tag" }

func (LegacyTitleTagStrategy) Process(pc *programming.ProcessContext) error {
	if !pc.IsMember() || pc.Member.Kind == node.MemberAction {
		return nil
	}
	title, ok := pc.Member.Field.Tag.Lookup(LegacyTitleTagKey)
	if !ok {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("empty %s tag", LegacyTitleTagKey)
	}
	pc.Install(capability.DisplayName{Value: title})
	return nil
}
