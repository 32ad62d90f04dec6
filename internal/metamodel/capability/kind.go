// Package capability defines the behavioral facets that detection strategies
// install on metamodel nodes and members.
//
// The set of capability kinds is closed: a node or member holds at most one
// live capability per kind, and installing a second capability of the same
// kind replaces the first.
package capability

import "fmt"

// Kind identifies what a capability represents
type Kind int

const (
	// KindLogicalTypeName is the stable, externally meaningful type id
	KindLogicalTypeName Kind = iota
	KindDisplayName
	KindDescription
	KindMandatory
	KindMaxLength
	KindHidden
	KindReadOnly
	KindChoices
	KindImmutable
	KindElementType

	kindCount
)

// Kinds returns every capability kind in declaration order
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the string representation of the capability kind
func (k Kind) String() string {
	switch k {
	case KindLogicalTypeName:
		return "logical_type_name"
	case KindDisplayName:
		return "display_name"
	case KindDescription:
		return "description"
	case KindMandatory:
		return "mandatory"
	case KindMaxLength:
		return "max_length"
	case KindHidden:
		return "hidden"
	case KindReadOnly:
		return "read_only"
	case KindChoices:
		return "choices"
	case KindImmutable:
		return "immutable"
	case KindElementType:
		return "element_type"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a member of the closed enumeration
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown capability kind: %s", s)
}
