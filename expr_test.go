package xlbind

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprResolver_MapColumn(t *testing.T) {
	tests := []struct {
		name       string
		match      string
		header     any
		index      int
		wantHeader any
		wantOK     bool
	}{
		{"bool claims", `header startsWith "Qty"`, "Qty (pcs)", 1, "Qty (pcs)", true},
		{"bool declines", `header startsWith "Qty"`, "Name", 0, nil, false},
		{"string rewrites", `lower(header) == "e-mail" ? "Email" : ""`, "E-Mail", 3, "Email", true},
		{"empty string declines", `lower(header) == "e-mail" ? "Email" : ""`, "Phone", 3, nil, false},
		{"by index", `index == 4`, nil, 4, nil, true},
		{"numeric header", `value == 2024`, 2024.0, 0, 2024.0, true},
		{"other result declines", `index`, "X", 2, nil, false},
		{"runtime error declines", `int(header) > 0`, "X", 0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewExprResolver(tt.match, "")
			require.NoError(t, err)
			got, ok := factory().MapColumn(tt.header, tt.index)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantHeader, got)
			}
		})
	}
}

func TestExprResolver_CompileErrors(t *testing.T) {
	_, err := NewExprResolver("", "")
	assert.ErrorContains(t, err, "empty match expression")

	_, err = NewExprResolver(`header ==`, "")
	assert.ErrorContains(t, err, "compile expression")

	_, err = NewExprResolver(`true`, `cell +`)
	assert.ErrorContains(t, err, "compile expression")
}

func TestExprResolver_Transform(t *testing.T) {
	type reading struct {
		Sensor string
		Grams  float64
	}
	factory, err := NewExprResolver(`header == "Kilograms" ? "Grams" : ""`, `cell * 1000`)
	require.NoError(t, err)

	g := memSheet(t, "Readings",
		[]any{"Sensor", "Kilograms"},
		[]any{"s1", 1.25},
		[]any{"s2", "heavy"},
	)
	reg := NewRegistry()
	require.NoError(t, Map[reading](reg, "Grams", WithResolver("kg")))
	s, _ := newTestSession(t, g, WithRegistry(reg), WithResolverFactory("kg", factory))

	seq, err := Take[reading](s, "Readings")
	require.NoError(t, err)
	var results []RowResult[reading]
	for res := range seq {
		results = append(results, res)
	}
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, &reading{Sensor: "s1", Grams: 1250}, results[0].Value)
	assert.ErrorIs(t, results[1].Err, ErrResolverRejected)
}

func TestExprResolver_InlineIdentifier(t *testing.T) {
	type stock struct {
		Item string
		Qty  int `xl:",resolver='expr:header startsWith \"Qty\"'"`
	}
	g := memSheet(t, "Stock",
		[]any{"Item", "Qty on hand"},
		[]any{"bolt", 12},
	)
	s, _ := newTestSession(t, g)

	items, err := TakeAll[stock](s, "Stock")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 12, items[0].Qty)

	cols, err := s.Columns("Stock", reflect.TypeOf(stock{}))
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "resolver", cols[1].Source)
	assert.True(t, s.Resolvers().Has(`expr:header startsWith "Qty"`))
}

func TestExprResolver_InlineCompileError(t *testing.T) {
	rr := NewResolverRegistry()
	_, err := rr.Create("expr:header ==")
	assert.ErrorContains(t, err, "compile expression")
	assert.False(t, rr.Has("expr:header =="))
}

func TestResolverRegistry(t *testing.T) {
	rr := NewResolverRegistry()
	assert.True(t, rr.Has("field"))
	assert.False(t, rr.Has("custom"))

	rr.Register("custom", func() Resolver { return FieldResolver{} })
	assert.Equal(t, []string{"custom", "field"}, rr.Names())

	res, err := rr.Create("custom")
	require.NoError(t, err)
	assert.IsType(t, FieldResolver{}, res)

	rr.Register("broken", func() Resolver { return nil })
	_, err = rr.Create("broken")
	assert.ErrorContains(t, err, "returned nil")

	_, err = rr.Create("nope")
	assert.ErrorContains(t, err, `unknown resolver "nope"`)
}
