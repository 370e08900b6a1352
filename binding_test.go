package xlbind

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name    string `xl:"Full Name,lastnonblank"`
	Email   string
	Phone   string `xl:",display=Telephone"`
	private string
	Score   float64
}

func boolPtr(v bool) *bool { return &v }

var contactType = reflect.TypeOf(contact{})

func TestRegistry_TagsScannedOnFirstUse(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Binding(FieldKey{Type: contactType, Name: "Name"}))

	bindings, err := reg.BindingsFor(contactType)
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, "Name", bindings[0].Field.Name)
	assert.Equal(t, "Full Name", bindings[0].Name)
	assert.True(t, bindings[0].LastNonBlank())
	assert.Equal(t, "Phone", bindings[1].Field.Name)
	assert.Equal(t, "Telephone", bindings[1].Display)
}

func TestRegistry_MergeOverlaysSetAttributes(t *testing.T) {
	reg := NewRegistry()
	key := FieldKey{Type: contactType, Name: "Name"}

	b := NewBinding(key)
	b.Index = 3
	b.Format = "@"
	require.NoError(t, reg.Merge(b, false))

	got := reg.Binding(key)
	require.NotNil(t, got)
	assert.Equal(t, "Full Name", got.Name, "unset name keeps the tag value")
	assert.Equal(t, 3, got.Index)
	assert.Equal(t, "@", got.Format)
	assert.True(t, got.LastNonBlank())

	later := NewBinding(key)
	later.UseLastNonBlank = boolPtr(false)
	require.NoError(t, reg.Merge(later, false))
	assert.False(t, reg.Binding(key).LastNonBlank(), "an explicit false overrides")
	assert.Equal(t, 3, reg.Binding(key).Index)
}

func TestRegistry_MergeBuiltinFormatZeroIsUnset(t *testing.T) {
	reg := NewRegistry()
	key := FieldKey{Type: contactType, Name: "Name"}

	b := NewBinding(key)
	b.BuiltinFormat = 14
	require.NoError(t, reg.Merge(b, false))
	require.NoError(t, reg.Merge(NewBinding(key), false))
	assert.Equal(t, Format{Builtin: 14}, reg.Binding(key).DisplayFormat())

	general := NewBinding(key)
	general.Format = "General"
	require.NoError(t, reg.Merge(general, false))
	assert.Equal(t, Format{Custom: "General", Builtin: 14}, reg.Binding(key).DisplayFormat())
	assert.False(t, reg.Binding(key).DisplayFormat().IsZero())
}

func TestRegistry_MergeOverwrite(t *testing.T) {
	reg := NewRegistry()
	key := FieldKey{Type: contactType, Name: "Name"}

	b := NewBinding(key)
	b.Display = "Contact"
	require.NoError(t, reg.Merge(b, true))

	want := &Binding{Field: key, Index: -1, Display: "Contact"}
	if diff := cmp.Diff(want, reg.Binding(key), cmp.Comparer(func(a, b reflect.Type) bool { return a == b })); diff != "" {
		t.Errorf("binding mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_MergeCopiesInput(t *testing.T) {
	reg := NewRegistry()
	key := FieldKey{Type: contactType, Name: "Email"}
	b := NewBinding(key)
	b.Name = "Mail"
	require.NoError(t, reg.Merge(b, false))

	b.Name = "Changed"
	assert.Equal(t, "Mail", reg.Binding(key).Name)
}

func TestRegistry_MergeErrors(t *testing.T) {
	reg := NewRegistry()

	assert.Error(t, reg.Merge(nil, false))
	assert.ErrorContains(t, reg.Merge(NewBinding(FieldKey{Type: contactType, Name: "private"}), false), `no exported field "private"`)
	assert.ErrorContains(t, reg.Merge(NewBinding(FieldKey{Type: reflect.TypeOf(0), Name: "X"}), false), "not a struct")
	assert.Error(t, reg.Merge(NewBinding(FieldKey{Name: "X"}), false))
}

func TestRegistry_PointerTypeKeys(t *testing.T) {
	reg := NewRegistry()
	b := NewBinding(FieldKey{Type: reflect.TypeOf(&contact{}), Name: "Email"})
	b.Name = "Mail"
	require.NoError(t, reg.Merge(b, false))

	assert.Equal(t, "Mail", reg.Binding(FieldKey{Type: contactType, Name: "Email"}).Name)
	assert.Equal(t, "Mail", reg.Binding(FieldKey{Type: reflect.TypeOf(&contact{}), Name: "Email"}).Name)
}

func TestRegistry_BindingsForDeclarationOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Map[contact](reg, "Score", Index(0)))
	require.NoError(t, Map[contact](reg, "Email", Header("Mail")))

	bindings, err := reg.BindingsFor(contactType)
	require.NoError(t, err)
	var names []string
	for _, b := range bindings {
		names = append(names, b.Field.Name)
	}
	assert.Equal(t, []string{"Name", "Email", "Phone", "Score"}, names)
}

func TestMap(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Map[contact](reg, "Name",
		Header("Contact"),
		NumberFormat("@"),
		BuiltinFormat(49),
		WithResolver("field"),
		Display("Who"),
	))

	b := reg.Binding(FieldKey{Type: contactType, Name: "Name"})
	require.NotNil(t, b)
	assert.Equal(t, "Contact", b.Name, "Map wins over the tag")
	assert.True(t, b.LastNonBlank(), "attributes Map leaves unset keep the tag value")
	assert.Equal(t, Format{Custom: "@", Builtin: 49}, b.DisplayFormat())
	assert.Equal(t, "field", b.Resolver)
	assert.Equal(t, "Who", b.Display)
}

func TestMap_IgnoreAndOverwrite(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Map[contact](reg, "Email", Ignore()))
	assert.True(t, reg.Binding(FieldKey{Type: contactType, Name: "Email"}).IsIgnored())

	require.NoError(t, Map[contact](reg, "Name", Index(1), Overwrite()))
	b := reg.Binding(FieldKey{Type: contactType, Name: "Name"})
	assert.Equal(t, "", b.Name)
	assert.Equal(t, 1, b.Index)
	assert.False(t, b.LastNonBlank())
}

func TestMap_LastNonBlankAndPointer(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Map[*contact](reg, "Email", LastNonBlank()))
	assert.True(t, reg.Binding(FieldKey{Type: contactType, Name: "Email"}).LastNonBlank())
}

func TestMap_Errors(t *testing.T) {
	reg := NewRegistry()

	assert.ErrorContains(t, Map[contact](reg, "Missing"), `no exported field "Missing"`)
	assert.ErrorContains(t, Map[contact](reg, "  "), "empty field selector")
	assert.ErrorContains(t, Map[int](reg, "X"), "not a struct")
	assert.ErrorContains(t, Map[contact](reg, "Email", Index(-4)), "invalid index")
	assert.Error(t, Map[contact](nil, "Email"))
}

func TestBinding_NilSafe(t *testing.T) {
	var b *Binding
	assert.False(t, b.IsIgnored())
	assert.False(t, b.LastNonBlank())
	assert.True(t, b.DisplayFormat().IsZero())
}

func TestFieldKey_String(t *testing.T) {
	assert.Equal(t, "contact.Email", FieldKey{Type: contactType, Name: "Email"}.String())
	assert.Equal(t, "Email", FieldKey{Name: "Email"}.String())
}
