// Package facets is the default programming model: the detection
// strategies, validators and post-processors every metamodel build starts
// from.
//
// Domain types declare their metadata with plain Go:
//
//	type Customer struct {
//		Email string `meta:"name=Email Address,mandatory,maxlen=120"`
//		Tier  string
//	}
//
//	func (*Customer) LogicalTypeName() string { return "crm.Customer" }
//	func (*Customer) Describe() string        { return "A paying customer" }
//	func (*Customer) ChoicesTier() []string   { return []string{"gold", "silver"} }
//
// Strategies run in stage order, so a generic fallback installed early is
// replaced by anything more specific later on.
package facets

import (
	"go.uber.org/multierr"

	"github.com/conduit-lang/metamodel/internal/metamodel/programming"
)

// Install registers the default programming model on b
func Install(b *programming.Builder) error {
	return multierr.Combine(
		b.AddStrategy(programming.StageFallbackDefaults, FallbackStrategy{}),
		b.AddStrategy(programming.StageObjectNaming, LogicalTypeNameStrategy{}),
		b.AddStrategy(programming.StageObjectNaming, DescriptionStrategy{}),
		b.AddStrategy(programming.StageObjectNaming, ImmutableStrategy{}),
		b.AddStrategy(programming.StageMemberModelling, TagStrategy{}),
		b.AddStrategy(programming.StageMemberModelling, ChoicesStrategy{}),
		b.AddStrategy(programming.StageLayout, LegacyTitleTagStrategy{}, programming.MarkerDeprecated),

		b.AddValidator(programming.StageObjectNaming, LogicalTypeNameValidator{}),
		b.AddValidator(programming.StageMemberModelling, MaxLengthValidator{}),
		b.AddValidator(programming.StageMandatorySupport, MandatoryHiddenValidator{}),

		b.AddPostProcessor(programming.StageRefinement, ImmutableReadOnlyPostProcessor{}),
		b.AddPostProcessor(programming.StageRefinement, &DescriptionInheritancePostProcessor{}),
	)
}
