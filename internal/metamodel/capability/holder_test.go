package capability

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_InstallReplaces(t *testing.T) {
	var h Holder

	h.Install(DisplayName{Value: "Fallback"}, "fallback")
	h.Install(DisplayName{Value: "Override"}, "tags")

	got, ok := Lookup[DisplayName](&h, KindDisplayName)
	require.True(t, ok)
	assert.Equal(t, "Override", got.Value)
	assert.Equal(t, "tags", h.InstalledBy(KindDisplayName))
	assert.Equal(t, 1, h.Len())
}

func TestHolder_Kinds(t *testing.T) {
	var h Holder
	h.Install(Hidden{}, "a")
	h.Install(LogicalTypeName{Name: "demo.Order"}, "b")
	h.Install(Mandatory{Required: true}, "c")

	assert.Equal(t, []Kind{KindLogicalTypeName, KindMandatory, KindHidden}, h.Kinds())
	assert.True(t, h.Has(KindHidden))
	assert.False(t, h.Has(KindChoices))
}

func TestHolder_Sealed(t *testing.T) {
	var h Holder
	h.Install(Hidden{}, "a")
	h.Seal()

	assert.True(t, h.Sealed())
	assert.Panics(t, func() { h.Install(ReadOnly{}, "validator") })
	assert.Panics(t, func() { h.Remove(KindHidden) })

	h.Unseal()
	h.Install(ReadOnly{}, "post")
	assert.True(t, h.Has(KindReadOnly))
}

func TestHolder_NilIgnored(t *testing.T) {
	var h Holder
	h.Install(nil, "x")
	assert.Equal(t, 0, h.Len())
}

func TestLookup_WrongType(t *testing.T) {
	var h Holder
	h.Install(Hidden{}, "a")

	_, ok := Lookup[ReadOnly](&h, KindHidden)
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("nope")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Kind(99).String())
}

type palette struct{}

func (p *palette) ChoicesColor() []string { return []string{"red", "green"} }

func TestChoices_Values(t *testing.T) {
	m, ok := reflect.TypeOf(&palette{}).MethodByName("ChoicesColor")
	require.True(t, ok)

	c := Choices{Method: m}
	values, err := c.Values(&palette{})
	require.NoError(t, err)
	assert.Equal(t, []any{"red", "green"}, values)

	_, err = c.Values(palette{})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "required", Describe(Mandatory{Required: true}))
	assert.Equal(t, "read-only (immutable)", Describe(ReadOnly{Reason: "immutable"}))
	assert.Equal(t, "int", Describe(ElementType{Type: reflect.TypeOf(0)}))
}
