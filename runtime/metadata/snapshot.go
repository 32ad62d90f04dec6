package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/conduit-lang/metamodel/internal/metamodel/cache"
	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// FromCache renders the published metamodel held by c. It fails with
// cache.ErrNotInitialized or cache.ErrBuildFailed when there is none.
func FromCache(c *cache.Cache, buildID uuid.UUID) (*Metadata, error) {
	nodes, err := c.Published()
	if err != nil {
		return nil, err
	}

	meta := &Metadata{
		Version:   SchemaVersion,
		Generated: time.Now().UTC(),
		BuildID:   buildID.String(),
		Types:     make([]TypeMetadata, 0, len(nodes)),
	}
	for _, n := range nodes {
		meta.Types = append(meta.Types, DescribeNode(n, c))
	}
	meta.Dependencies = *BuildDependencyGraph(nodes, c)
	return meta, nil
}

// Marshal encodes a snapshot as indented JSON
func Marshal(meta *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// DescribeNode renders a single node. References resolve to logical ids
// through lookup.
func DescribeNode(n *node.Node, lookup NodeLookup) TypeMetadata {
	tm := TypeMetadata{
		Type:         n.Name(),
		DisplayName:  n.DisplayName(),
		State:        n.State().String(),
		Capabilities: describeHolder(&n.Holder),
		Members:      make([]MemberMetadata, 0),
	}
	if id, ok := n.LogicalID(); ok {
		tm.LogicalID = id
	}

	for _, m := range n.Members() {
		mm := MemberMetadata{
			Name:         m.Name,
			Kind:         m.Kind.String(),
			Type:         typeString(m.Type),
			Capabilities: describeHolder(&m.Holder),
		}
		for _, p := range m.Params {
			mm.Params = append(mm.Params, typeString(p))
		}
		tm.Members = append(tm.Members, mm)
	}

	for _, ref := range n.References() {
		if rn, ok := lookup.Peek(ref); ok {
			tm.References = append(tm.References, nodeID(rn))
		} else {
			tm.References = append(tm.References, ref.String())
		}
	}
	return tm
}

// NodeLookup resolves referenced types to nodes
type NodeLookup interface {
	Peek(t reflect.Type) (*node.Node, bool)
}

func describeHolder(h *capability.Holder) []CapabilityMetadata {
	kinds := h.Kinds()
	out := make([]CapabilityMetadata, 0, len(kinds))
	for _, k := range kinds {
		c, ok := h.Capability(k)
		if !ok {
			continue
		}
		out = append(out, CapabilityMetadata{
			Kind:        k.String(),
			Value:       capability.Describe(c),
			InstalledBy: h.InstalledBy(k),
		})
	}
	return out
}

func typeString(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// nodeID is the graph id of a node: its logical id, or its Go type when it
// has none
func nodeID(n *node.Node) string {
	if id, ok := n.LogicalID(); ok {
		return id
	}
	return n.Name()
}
