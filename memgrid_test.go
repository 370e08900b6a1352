package xlbind

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemGrid_Extents(t *testing.T) {
	g := NewMemGrid("A", "B", "A")
	assert.Equal(t, []string{"A", "B"}, g.GetSheetNames())
	assert.Equal(t, -1, g.GetLastRow("A"))
	assert.Equal(t, -1, g.GetLastRow("Missing"))

	require.NoError(t, g.SetCellValue(NewCellRef("A", 3, 2), "x"))
	require.NoError(t, g.SetCellValue(NewCellRef("A", 1, 5), 1))
	assert.Equal(t, 3, g.GetLastRow("A"))
	assert.Equal(t, 5, g.GetLastCol("A", 1))
	assert.Equal(t, -1, g.GetLastCol("A", 0))

	require.NoError(t, g.ClearRow("A", 3))
	assert.Equal(t, 1, g.GetLastRow("A"))

	assert.Error(t, g.SetCellValue(NewCellRef("Missing", 0, 0), "x"))
	assert.Error(t, g.NewSheet(""))
}

func TestMemGrid_SetCellValueKinds(t *testing.T) {
	g := NewMemGrid("S")
	ref := NewCellRef("S", 0, 0)

	require.NoError(t, g.SetCellValue(ref, int16(7)))
	assert.Equal(t, CellNumber, g.GetCellData(ref).Type)
	assert.Equal(t, 7.0, g.GetCellData(ref).Value)

	require.NoError(t, g.SetCellValue(ref, uint8(3)))
	assert.Equal(t, 3.0, g.GetCellData(ref).Value)

	require.NoError(t, g.SetCellValue(ref, march15))
	cd := g.GetCellData(ref)
	assert.True(t, cd.IsDate)
	tm, err := cd.TimeValue()
	require.NoError(t, err)
	assert.True(t, march15.Equal(tm))

	require.NoError(t, g.SetCellValue(ref, []int{1}))
	assert.Equal(t, CellString, g.GetCellData(ref).Type)
	assert.Equal(t, "[1]", g.GetCellData(ref).Value)

	require.NoError(t, g.SetCellValue(ref, nil))
	assert.True(t, g.GetCellData(ref).IsBlank())
}

func TestMemGrid_Styles(t *testing.T) {
	g := NewMemGrid("S")
	ref := NewCellRef("S", 1, 0)

	require.NoError(t, g.SetCellValue(ref, 45366.0))
	id, err := g.NewStyle(Format{Custom: "yyyy-mm-dd"})
	require.NoError(t, err)
	require.NoError(t, g.SetCellStyle(ref, id))
	assert.True(t, g.GetCellData(ref).IsDate, "a date format marks the number as a date")

	f, ok := g.CellStyle(ref)
	assert.True(t, ok)
	assert.Equal(t, Format{Custom: "yyyy-mm-dd"}, f)

	// Rewriting the value keeps the style.
	require.NoError(t, g.SetCellValue(ref, 45367.0))
	assert.True(t, g.GetCellData(ref).IsDate)
	assert.Equal(t, id, g.GetCellData(ref).StyleID)

	assert.Error(t, g.SetCellStyle(ref, 99))
	_, ok = g.CellStyle(NewCellRef("S", 5, 5))
	assert.False(t, ok)
}

func TestMemGrid_FormulaCell(t *testing.T) {
	g := memSheet(t, "Calc", []any{"Qty", "Double"}, []any{3})
	require.NoError(t, g.SetCellData(&CellData{
		Ref:        NewCellRef("Calc", 1, 1),
		Type:       CellFormula,
		Formula:    "A2*2",
		CachedType: CellNumber,
		Value:      6.0,
	}))

	type calc struct {
		Qty    int
		Double float64
	}
	s, _ := newTestSession(t, g)
	rows, err := TakeAll[calc](s, "Calc")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, &calc{Qty: 3, Double: 6}, rows[0])
}

func TestMemGrid_Write(t *testing.T) {
	g := NewMemGrid("Orders", "Empty")
	s, _ := newTestSession(t, g, WithRegistry(newRegistry(t)))
	require.NoError(t, Put(s, "Orders", wantOrders()))
	require.NoError(t, g.SetCellData(&CellData{
		Ref:     NewCellRef("Orders", 3, 2),
		Type:    CellFormula,
		Formula: "SUM(C2:C3)",
	}))

	var buf bytes.Buffer
	require.NoError(t, g.Write(&buf))

	x, err := OpenWorkbookReader(&buf)
	require.NoError(t, err)
	defer x.Close()
	assert.Equal(t, []string{"Orders", "Empty"}, x.GetSheetNames())

	sum := x.GetCellData(NewCellRef("Orders", 3, 2))
	require.NotNil(t, sum)
	assert.Equal(t, "SUM(C2:C3)", sum.Formula)

	placed := x.GetCellData(NewCellRef("Orders", 1, 4))
	require.NotNil(t, placed)
	assert.True(t, placed.IsDate)

	reader, _ := newTestSession(t, x, WithRegistry(newRegistry(t)))
	seq, err := Take[Order](reader, "Orders")
	require.NoError(t, err)
	var got []*Order
	for res := range seq {
		require.NoError(t, res.Err)
		got = append(got, res.Value)
	}
	// The formula row has no cached result and reads as blank.
	if diff := cmp.Diff(wantOrders(), got); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
}
