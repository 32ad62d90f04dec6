package facets

import (
	"reflect"
	"regexp"
	"strconv"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/failure"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// Failure templates reported by the default validators
const (
	MissingLogicalTypeNameTemplate = "type '${type}' has no logical type name"
	InvalidLogicalTypeNameTemplate = "logical type name '${logicalId}' of type '${type}' is not a namespaced identifier"
	ConflictingFacetsTemplate      = "member '${member}' of type '${type}' has conflicting facets: ${conflictingFacets}"
	IllegalMaxLengthTemplate       = "member '${member}' of type '${type}' cannot declare max length ${maxLength}: ${reason}"
	InvalidChoicesTemplate         = "choices method '${method}' of member '${member}' in type '${type}' ${reason}"
)

var logicalTypeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)

// LogicalTypeNameValidator requires every type to carry a namespaced
// logical type name such as "sales.Order"
type LogicalTypeNameValidator struct{}

func (LogicalTypeNameValidator) Name() string { return "logical-type-name" }

func (LogicalTypeNameValidator) Validate(n *node.Node, failures *failure.Collector) {
	id, ok := n.LogicalID()
	if !ok {
		failures.Add(MissingLogicalTypeNameTemplate, failure.Vars{"type": n.Name()})
		return
	}
	if !logicalTypeNamePattern.MatchString(id) {
		failures.Add(InvalidLogicalTypeNameTemplate, failure.Vars{
			"type":      n.Name(),
			"logicalId": id,
		})
	}
}

// MandatoryHiddenValidator rejects members that are both mandatory and
// hidden: nobody could ever supply their value
type MandatoryHiddenValidator struct{}

func (MandatoryHiddenValidator) Name() string { return "mandatory-hidden" }

func (MandatoryHiddenValidator) Validate(n *node.Node, failures *failure.Collector) {
	for _, m := range n.Members() {
		if m.Required() && m.Has(capability.KindHidden) {
			failures.Add(ConflictingFacetsTemplate, failure.Vars{
				"type":              n.Name(),
				"member":            m.Name,
				"conflictingFacets": "mandatory, hidden",
			})
		}
	}
}

// MaxLengthValidator only allows positive max lengths on text properties
type MaxLengthValidator struct{}

func (MaxLengthValidator) Name() string { return "max-length" }

func (MaxLengthValidator) Validate(n *node.Node, failures *failure.Collector) {
	for _, m := range n.Members() {
		ml, ok := capability.Lookup[capability.MaxLength](&m.Holder, capability.KindMaxLength)
		if !ok {
			continue
		}
		reason := ""
		switch {
		case m.Kind != node.MemberProperty || !isText(m.Type):
			reason = "only text properties have a length"
		case ml.Value <= 0:
			reason = "length must be positive"
		}
		if reason != "" {
			failures.Add(IllegalMaxLengthTemplate, failure.Vars{
				"type":      n.Name(),
				"member":    m.Name,
				"maxLength": strconv.Itoa(ml.Value),
				"reason":    reason,
			})
		}
	}
}

func isText(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return false
	}
	return t.Kind() == reflect.String || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8)
}

// ChoicesTypeValidator checks that a choices method takes no arguments and
// returns a slice of the member's type
type ChoicesTypeValidator struct{}

func (ChoicesTypeValidator) Name() string { return "choices-type" }

func (ChoicesTypeValidator) Validate(n *node.Node, failures *failure.Collector) {
	for _, m := range n.Members() {
		choices, ok := capability.Lookup[capability.Choices](&m.Holder, capability.KindChoices)
		if !ok {
			continue
		}
		if reason := choicesProblem(choices.Method.Type, m.Type); reason != "" {
			failures.Add(InvalidChoicesTemplate, failure.Vars{
				"type":   n.Name(),
				"member": m.Name,
				"method": choices.Method.Name,
				"reason": reason,
			})
		}
	}
}

func choicesProblem(mt, memberType reflect.Type) string {
	if mt.NumIn() != 1 {
		return "must not take arguments"
	}
	if mt.NumOut() != 1 {
		return "must return exactly one value"
	}
	out := mt.Out(0)
	if out.Kind() != reflect.Slice {
		return "must return a slice, not " + out.String()
	}
	if !out.Elem().AssignableTo(memberType) {
		return "returns " + out.String() + ", want []" + memberType.String()
	}
	return ""
}
