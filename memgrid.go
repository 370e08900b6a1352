package xlbind

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/xuri/excelize/v2"
)

// MemGrid is an in-memory Grid. It is useful for tests and for callers that
// build sheets without a file; Write encodes it as xlsx.
type MemGrid struct {
	order  []string
	sheets map[string]*SheetData
	styles []Format // style id = index + 1
}

// SheetData holds in-memory data for a single sheet.
type SheetData struct {
	Name string
	Rows map[int]*RowData
}

// RowData holds in-memory data for a single row.
type RowData struct {
	Cells map[int]*CellData
}

// NewMemGrid creates an empty in-memory grid with the given sheets.
func NewMemGrid(sheets ...string) *MemGrid {
	g := &MemGrid{sheets: make(map[string]*SheetData)}
	for _, name := range sheets {
		_ = g.NewSheet(name)
	}
	return g
}

// GetSheetNames returns sheet names in creation order.
func (g *MemGrid) GetSheetNames() []string {
	return append([]string(nil), g.order...)
}

// NewSheet adds an empty sheet. Adding an existing sheet is a no-op.
func (g *MemGrid) NewSheet(name string) error {
	if name == "" {
		return fmt.Errorf("sheet name is empty")
	}
	if _, ok := g.sheets[name]; ok {
		return nil
	}
	g.sheets[name] = &SheetData{Name: name, Rows: make(map[int]*RowData)}
	g.order = append(g.order, name)
	return nil
}

// GetLastRow returns the highest row index holding a cell, or -1.
func (g *MemGrid) GetLastRow(sheet string) int {
	sd, ok := g.sheets[sheet]
	if !ok {
		return -1
	}
	last := -1
	for idx, rd := range sd.Rows {
		if idx > last && len(rd.Cells) > 0 {
			last = idx
		}
	}
	return last
}

// GetLastCol returns the highest column index holding a cell in a row, or -1.
func (g *MemGrid) GetLastCol(sheet string, row int) int {
	rd := g.row(sheet, row)
	if rd == nil {
		return -1
	}
	last := -1
	for idx := range rd.Cells {
		if idx > last {
			last = idx
		}
	}
	return last
}

func (g *MemGrid) row(sheet string, row int) *RowData {
	sd, ok := g.sheets[sheet]
	if !ok {
		return nil
	}
	return sd.Rows[row]
}

// GetCellData returns the stored cell, or nil.
func (g *MemGrid) GetCellData(ref CellRef) *CellData {
	rd := g.row(ref.Sheet, ref.Row)
	if rd == nil {
		return nil
	}
	return rd.Cells[ref.Col]
}

// SetCellData stores a fully described cell, e.g. a formula with a cached result.
func (g *MemGrid) SetCellData(cd *CellData) error {
	sd, ok := g.sheets[cd.Ref.Sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", cd.Ref.Sheet)
	}
	rd, ok := sd.Rows[cd.Ref.Row]
	if !ok {
		rd = &RowData{Cells: make(map[int]*CellData)}
		sd.Rows[cd.Ref.Row] = rd
	}
	rd.Cells[cd.Ref.Col] = cd
	return nil
}

// SetCellValue writes a value, keeping the cell's style.
// Supported values: nil, string, bool, time.Time and all numeric kinds;
// anything else is stored as its string form.
func (g *MemGrid) SetCellValue(ref CellRef, value any) error {
	if _, ok := g.sheets[ref.Sheet]; !ok {
		return fmt.Errorf("sheet %q not found", ref.Sheet)
	}
	cd := g.GetCellData(ref)
	if cd == nil {
		cd = &CellData{Ref: ref}
	}
	cd.Formula, cd.CachedType, cd.IsDate = "", CellBlank, false

	switch v := value.(type) {
	case nil:
		cd.Type, cd.Value = CellBlank, nil
	case string:
		cd.Type, cd.Value = CellString, v
	case bool:
		cd.Type, cd.Value = CellBoolean, v
	case time.Time:
		cd.Type, cd.Value, cd.IsDate = CellNumber, timeToSerial(v), true
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			cd.Type, cd.Value = CellNumber, float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			cd.Type, cd.Value = CellNumber, float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			cd.Type, cd.Value = CellNumber, rv.Float()
		default:
			cd.Type, cd.Value = CellString, fmt.Sprint(value)
		}
	}
	if cd.Type == CellNumber && cd.StyleID > 0 {
		f := g.styles[cd.StyleID-1]
		cd.IsDate = cd.IsDate || isDateFormat(f.Builtin, f.Custom)
	}
	return g.SetCellData(cd)
}

// ClearCell blanks a cell, keeping its style.
func (g *MemGrid) ClearCell(ref CellRef) error {
	cd := g.GetCellData(ref)
	if cd == nil {
		return nil
	}
	cd.Type, cd.Value, cd.Formula, cd.CachedType, cd.IsDate = CellBlank, nil, "", CellBlank, false
	return nil
}

// ClearRow removes every cell of a row.
func (g *MemGrid) ClearRow(sheet string, row int) error {
	sd, ok := g.sheets[sheet]
	if !ok {
		return fmt.Errorf("sheet %q not found", sheet)
	}
	delete(sd.Rows, row)
	return nil
}

// NewStyle registers a number format and returns its style id.
func (g *MemGrid) NewStyle(format Format) (int, error) {
	g.styles = append(g.styles, format)
	return len(g.styles), nil
}

// SetCellStyle applies a style id to a cell, creating a blank cell if needed.
func (g *MemGrid) SetCellStyle(ref CellRef, styleID int) error {
	if styleID < 1 || styleID > len(g.styles) {
		return fmt.Errorf("invalid style id %d", styleID)
	}
	cd := g.GetCellData(ref)
	if cd == nil {
		cd = &CellData{Ref: ref, Type: CellBlank}
		if err := g.SetCellData(cd); err != nil {
			return err
		}
	}
	cd.StyleID = styleID
	f := g.styles[styleID-1]
	if cd.Type == CellNumber && isDateFormat(f.Builtin, f.Custom) {
		cd.IsDate = true
	}
	return nil
}

// CellStyle returns the format applied to a cell.
func (g *MemGrid) CellStyle(ref CellRef) (Format, bool) {
	cd := g.GetCellData(ref)
	if cd == nil || cd.StyleID < 1 {
		return Format{}, false
	}
	return g.styles[cd.StyleID-1], true
}

// StyleCount returns how many styles were created.
func (g *MemGrid) StyleCount() int {
	return len(g.styles)
}

// Write encodes the grid as an xlsx workbook.
func (g *MemGrid) Write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	x := NewExcelizeGrid(f)
	styleIDs := make(map[int]int)
	for i, name := range g.order {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if err := x.NewSheet(name); err != nil {
			return err
		}
		for _, rd := range g.sheets[name].Rows {
			for _, cd := range rd.Cells {
				if err := x.copyCell(cd, g.styles, styleIDs); err != nil {
					return err
				}
			}
		}
	}
	return f.Write(w)
}

// Close is a no-op.
func (g *MemGrid) Close() error {
	return nil
}
