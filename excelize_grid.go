package xlbind

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelizeGrid implements Grid on top of an excelize workbook.
type ExcelizeGrid struct {
	file      *excelize.File
	rows      map[string][][]string // sheet → GetRows snapshot for extents
	dateStyle map[int]bool          // style id → renders dates
}

// NewExcelizeGrid wraps an open excelize file.
func NewExcelizeGrid(f *excelize.File) *ExcelizeGrid {
	return &ExcelizeGrid{
		file:      f,
		rows:      make(map[string][][]string),
		dateStyle: make(map[int]bool),
	}
}

// NewWorkbook creates a Grid backed by a new, empty excelize workbook
// holding the given sheets. The default "Sheet1" is renamed to the first one.
func NewWorkbook(sheets ...string) (*ExcelizeGrid, error) {
	f := excelize.NewFile()
	x := NewExcelizeGrid(f)
	for i, name := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
			continue
		}
		if err := x.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}
	return x, nil
}

// OpenWorkbook opens an xlsx file and creates a Grid.
func OpenWorkbook(path string) (*ExcelizeGrid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %q: %w", path, err)
	}
	return NewExcelizeGrid(f), nil
}

// OpenWorkbookReader opens an xlsx stream and creates a Grid.
func OpenWorkbookReader(r io.Reader) (*ExcelizeGrid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook reader: %w", err)
	}
	return NewExcelizeGrid(f), nil
}

// GetSheetNames returns all sheet names.
func (x *ExcelizeGrid) GetSheetNames() []string {
	return x.file.GetSheetList()
}

// NewSheet adds a sheet to the workbook.
func (x *ExcelizeGrid) NewSheet(name string) error {
	if _, err := x.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return nil
}

// sheetRows returns the cached row snapshot of a sheet.
func (x *ExcelizeGrid) sheetRows(sheet string) [][]string {
	if rows, ok := x.rows[sheet]; ok {
		return rows
	}
	rows, err := x.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil
	}
	x.rows[sheet] = rows
	return rows
}

// GetLastRow returns the last row index with data, or -1.
func (x *ExcelizeGrid) GetLastRow(sheet string) int {
	return len(x.sheetRows(sheet)) - 1
}

// GetLastCol returns the last column index with data in a row, or -1.
func (x *ExcelizeGrid) GetLastCol(sheet string, row int) int {
	rows := x.sheetRows(sheet)
	if row < 0 || row >= len(rows) {
		return -1
	}
	return len(rows[row]) - 1
}

// GetCellData reads one cell with its type, formula and date flag.
func (x *ExcelizeGrid) GetCellData(ref CellRef) *CellData {
	name, err := excelize.CoordinatesToCellName(ref.Col+1, ref.Row+1)
	if err != nil {
		return nil
	}
	raw, err := x.file.GetCellValue(ref.Sheet, name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil
	}
	formula, _ := x.file.GetCellFormula(ref.Sheet, name)
	if raw == "" && formula == "" {
		return nil
	}
	typ, err := x.file.GetCellType(ref.Sheet, name)
	if err != nil {
		return nil
	}
	styleID, _ := x.file.GetCellStyle(ref.Sheet, name)

	cd := &CellData{Ref: ref, StyleID: styleID}
	cellType, value, isDate := x.decodeRaw(typ, raw, styleID)
	cd.Value, cd.IsDate = value, isDate
	if formula != "" {
		cd.Type, cd.CachedType, cd.Formula = CellFormula, cellType, formula
	} else {
		cd.Type = cellType
	}
	return cd
}

// decodeRaw maps an excelize cell type and raw value onto a CellType.
func (x *ExcelizeGrid) decodeRaw(typ excelize.CellType, raw string, styleID int) (CellType, any, bool) {
	switch typ {
	case excelize.CellTypeBool:
		return CellBoolean, raw == "1" || strings.EqualFold(raw, "true"), false
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		if raw == "" {
			return CellBlank, nil, false
		}
		return CellString, raw, false
	case excelize.CellTypeError:
		return CellError, raw, false
	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return CellNumber, timeToSerial(t), true
		}
		return CellString, raw, false
	}
	if raw == "" {
		return CellBlank, nil, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return CellString, raw, false
	}
	return CellNumber, f, x.isDateStyle(styleID)
}

// isDateStyle reports whether a style id carries a date number format.
func (x *ExcelizeGrid) isDateStyle(styleID int) bool {
	if styleID <= 0 {
		return false
	}
	if v, ok := x.dateStyle[styleID]; ok {
		return v
	}
	style, err := x.file.GetStyle(styleID)
	isDate := false
	if err == nil && style != nil {
		custom := ""
		if style.CustomNumFmt != nil {
			custom = *style.CustomNumFmt
		}
		isDate = isDateFormat(style.NumFmt, custom)
	}
	x.dateStyle[styleID] = isDate
	return isDate
}

var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SetCellValue sets a value on a cell, preserving style.
func (x *ExcelizeGrid) SetCellValue(ref CellRef, value any) error {
	delete(x.rows, ref.Sheet)
	cell := ref.CellName()
	styleID, _ := x.file.GetCellStyle(ref.Sheet, cell)
	if err := x.file.SetCellValue(ref.Sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", ref, err)
	}
	if _, isTime := value.(time.Time); styleID > 0 && !isTime {
		return x.file.SetCellStyle(ref.Sheet, cell, cell, styleID)
	}
	return nil
}

// ClearCell clears a cell's content while preserving style.
func (x *ExcelizeGrid) ClearCell(ref CellRef) error {
	return x.SetCellValue(ref, nil)
}

// ClearRow clears every cell of a row. Rows below are not shifted.
// The extents snapshot is updated in place instead of being re-read.
func (x *ExcelizeGrid) ClearRow(sheet string, row int) error {
	last := x.GetLastCol(sheet, row)
	for col := 0; col <= last; col++ {
		cell := NewCellRef(sheet, row, col).CellName()
		styleID, _ := x.file.GetCellStyle(sheet, cell)
		if err := x.file.SetCellValue(sheet, cell, nil); err != nil {
			delete(x.rows, sheet)
			return fmt.Errorf("clear cell %s!%s: %w", sheet, cell, err)
		}
		if styleID > 0 {
			if err := x.file.SetCellStyle(sheet, cell, cell, styleID); err != nil {
				delete(x.rows, sheet)
				return err
			}
		}
	}
	if rows, ok := x.rows[sheet]; ok && row >= 0 && row < len(rows) {
		rows[row] = nil
		n := len(rows)
		for n > 0 && len(rows[n-1]) == 0 {
			n--
		}
		x.rows[sheet] = rows[:n]
	}
	return nil
}

// NewStyle creates a style object carrying a number format.
func (x *ExcelizeGrid) NewStyle(format Format) (int, error) {
	style := &excelize.Style{NumFmt: format.Builtin}
	if format.Custom != "" {
		custom := format.Custom
		style.CustomNumFmt = &custom
	}
	id, err := x.file.NewStyle(style)
	if err != nil {
		return 0, fmt.Errorf("create style %q: %w", format, err)
	}
	return id, nil
}

// SetCellStyle applies a style id to a cell.
func (x *ExcelizeGrid) SetCellStyle(ref CellRef, styleID int) error {
	cell := ref.CellName()
	return x.file.SetCellStyle(ref.Sheet, cell, cell, styleID)
}

// copyCell writes an in-memory cell into the workbook.
func (x *ExcelizeGrid) copyCell(cd *CellData, styles []Format, styleIDs map[int]int) error {
	ref := cd.Ref
	switch {
	case cd.Formula != "":
		if err := x.file.SetCellFormula(ref.Sheet, ref.CellName(), cd.Formula); err != nil {
			return fmt.Errorf("set formula %s: %w", ref, err)
		}
	case cd.Type == CellBlank:
	default:
		if err := x.SetCellValue(ref, cd.Value); err != nil {
			return err
		}
	}

	format := Format{}
	if cd.StyleID > 0 && cd.StyleID <= len(styles) {
		format = styles[cd.StyleID-1]
	} else if cd.IsDate {
		format = Format{Builtin: 22}
	}
	if format.IsZero() {
		return nil
	}
	id, ok := styleIDs[cd.StyleID]
	if !ok {
		var err error
		if id, err = x.NewStyle(format); err != nil {
			return err
		}
		styleIDs[cd.StyleID] = id
	}
	return x.SetCellStyle(ref, id)
}

// Write writes the workbook to the given writer.
func (x *ExcelizeGrid) Write(w io.Writer) error {
	return x.file.Write(w)
}

// SaveAs writes the workbook to a file.
func (x *ExcelizeGrid) SaveAs(path string) error {
	if err := x.file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}
	return nil
}

// Close closes the underlying excelize file.
func (x *ExcelizeGrid) Close() error {
	return x.file.Close()
}

// File returns the underlying excelize file for advanced operations.
func (x *ExcelizeGrid) File() *excelize.File {
	return x.file
}
