package programming

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/failure"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
)

// NodeLookup resolves type identities to nodes while a build is running.
// Nodes returned during discovery may still be partially populated.
type NodeLookup interface {
	Peek(t reflect.Type) (*node.Node, bool)
}

// Context is the shared metamodel context handed to every component that
// asks for it. It is passed explicitly; there is no ambient instance.
type Context struct {
	Logger *zap.Logger
	Nodes  NodeLookup
}

// NewContext creates a shared context. A nil logger is replaced by a no-op
// logger.
func NewContext(logger *zap.Logger, nodes NodeLookup) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{Logger: logger, Nodes: nodes}
}

// Strategy is a detection strategy. Process is called once for the type
// itself (Member is nil) and once per structural member.
type Strategy interface {
	Process(pc *ProcessContext) error
}

// Validator inspects a fully faceted node and reports violated invariants
// to the collector. Nodes are sealed while validators run: installing a
// capability panics.
type Validator interface {
	Validate(n *node.Node, failures *failure.Collector)
}

// PostProcessor augments a validated node in a final pass
type PostProcessor interface {
	PostProcess(pc *ProcessContext) error
}

// Refiner is a strategy that contributes further validators at finalize
type Refiner interface {
	RefineModel(r ValidatorRegistrar)
}

// ValidatorRegistrar accepts validators contributed by refiners
type ValidatorRegistrar interface {
	AddValidator(stage Stage, v Validator, markers ...Marker) error
}

// ContextAware components receive the shared context at registration time
type ContextAware interface {
	SetMetamodelContext(ctx *Context)
}

// Named components report a stable name for logs and diagnostics
type Named interface {
	Name() string
}

// NameOf returns the component's name, defaulting to its Go type name
func NameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}

// ProcessContext is what a strategy or post-processor sees while it runs
type ProcessContext struct {
	Node    *node.Node
	Member  *node.Member
	Context *Context

	installedBy string
}

// NewProcessContext creates a process context for the given component
func NewProcessContext(ctx *Context, n *node.Node, m *node.Member, component any) *ProcessContext {
	return &ProcessContext{
		Node:        n,
		Member:      m,
		Context:     ctx,
		installedBy: NameOf(component),
	}
}

// Holder returns the member's capabilities when processing a member, and
// the node's otherwise
func (pc *ProcessContext) Holder() *capability.Holder {
	if pc.Member != nil {
		return &pc.Member.Holder
	}
	return &pc.Node.Holder
}

// Install attaches c to the current holder, replacing any earlier
// capability of the same kind
func (pc *ProcessContext) Install(c capability.Capability) {
	pc.Holder().Install(c, pc.installedBy)
}

// IsMember reports whether the context targets a member
func (pc *ProcessContext) IsMember() bool {
	return pc.Member != nil
}
