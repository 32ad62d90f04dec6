package facets

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/metamodel/capability"
	"github.com/conduit-lang/metamodel/internal/metamodel/node"
	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
)

// ImmutableReadOnlyPostProcessor makes every property and collection of an
// immutable type read-only
type ImmutableReadOnlyPostProcessor struct{}

func (ImmutableReadOnlyPostProcessor) Name() string { return "immutable-read-only" }

func (ImmutableReadOnlyPostProcessor) PostProcess(pc *programming.ProcessContext) error {
	if !pc.IsMember() || pc.Member.Kind == node.MemberAction {
		return nil
	}
	if pc.Node.Has(capability.KindImmutable) && !pc.Member.Has(capability.KindReadOnly) {
		pc.Install(capability.ReadOnly{Reason: "immutable type"})
	}
	return nil
}

// DescriptionInheritancePostProcessor gives a reference property without a
// description the description of the type it refers to
type DescriptionInheritancePostProcessor struct {
	ctx *programming.Context
}

func (p *DescriptionInheritancePostProcessor) Name() string { return "description-inheritance" }

// SetMetamodelContext implements programming.ContextAware
func (p *DescriptionInheritancePostProcessor) SetMetamodelContext(ctx *programming.Context) {
	p.ctx = ctx
}

func (p *DescriptionInheritancePostProcessor) PostProcess(pc *programming.ProcessContext) error {
	if !pc.IsMember() || pc.Member.Kind != node.MemberProperty || pc.Member.Has(capability.KindDescription) {
		return nil
	}
	ctx := p.ctx
	if ctx == nil {
		ctx = pc.Context
	}
	if ctx == nil || ctx.Nodes == nil {
		return nil
	}

	t := pc.Member.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	ref, ok := ctx.Nodes.Peek(t)
	if !ok {
		return nil
	}
	desc, ok := capability.Lookup[capability.Description](&ref.Holder, capability.KindDescription)
	if !ok {
		return nil
	}
	pc.Install(desc)
	ctx.Logger.Debug("description inherited",
		zap.String("member", pc.Member.ID()),
		zap.String("from", ref.Name()),
	)
	return nil
}
