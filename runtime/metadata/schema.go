package metadata

import "time"

// SchemaVersion is the version of the snapshot format
const SchemaVersion = "1.0.0"

// Metadata is the top-level container of a metamodel snapshot
type Metadata struct {
	Version      string          `json:"version"`      // Schema version for evolution
	Generated    time.Time       `json:"generated"`    // Timestamp of snapshot generation
	BuildID      string          `json:"build_id"`     // Build that produced the metamodel
	Types        []TypeMetadata  `json:"types"`        // All types in discovery order
	Dependencies DependencyGraph `json:"dependencies"` // Type reference graph
}

// TypeMetadata captures a single metamodel node
type TypeMetadata struct {
	Type         string               `json:"type"`                 // Go type (e.g., "domain.Order")
	LogicalID    string               `json:"logical_id,omitempty"` // Logical type name
	DisplayName  string               `json:"display_name"`         // Human-readable name
	State        string               `json:"state"`                // Lifecycle state
	Capabilities []CapabilityMetadata `json:"capabilities"`         // Type-level capabilities
	Members      []MemberMetadata     `json:"members"`              // Structural members
	References   []string             `json:"references,omitempty"` // Referenced types by logical id
}

// MemberMetadata captures a structural member
type MemberMetadata struct {
	Name         string               `json:"name"`             // Go member name
	Kind         string               `json:"kind"`             // property, collection or action
	Type         string               `json:"type,omitempty"`   // Field type or action result type
	Params       []string             `json:"params,omitempty"` // Action parameter types
	Capabilities []CapabilityMetadata `json:"capabilities"`     // Member-level capabilities
}

// CapabilityMetadata captures one installed capability
type CapabilityMetadata struct {
	Kind        string `json:"kind"`                   // Capability kind (e.g., "max_length")
	Value       string `json:"value"`                  // Rendered value
	InstalledBy string `json:"installed_by,omitempty"` // Strategy that installed it last
}

// DependencyGraph captures the reference relationships between types
type DependencyGraph struct {
	Nodes map[string]*DependencyNode `json:"nodes"` // All nodes indexed by ID
	Edges []DependencyEdge           `json:"edges"` // All reference edges
}

// DependencyNode represents a single type in the dependency graph
type DependencyNode struct {
	ID   string `json:"id"`   // Logical id
	Type string `json:"type"` // Go type
	Name string `json:"name"` // Display name
}

// DependencyEdge represents a reference from one type to another
type DependencyEdge struct {
	From         string `json:"from"`             // Referencing type
	To           string `json:"to"`               // Referenced type
	Relationship string `json:"relationship"`     // Member kind carrying the reference
	Member       string `json:"member,omitempty"` // Member carrying the reference
	Weight       int    `json:"weight"`           // Relationship weight
}
