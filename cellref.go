package xlbind

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellRef addresses one cell of a grid. Row and Col are 0-based.
type CellRef struct {
	Sheet string
	Row   int
	Col   int
}

// NewCellRef creates a CellRef.
func NewCellRef(sheet string, row, col int) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// ParseCellRef parses an A1-style reference with an optional sheet prefix:
// "B5", "Orders!B5", "'Q1 Orders'!$B$5".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, fmt.Errorf("empty cell reference")
	}

	var ref CellRef
	name := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		ref.Sheet = strings.Trim(s[:i], "'")
		name = s[i+1:]
	}
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return CellRef{}, fmt.Errorf("parse cell reference %q: %w", s, err)
	}
	ref.Row, ref.Col = row-1, col-1
	return ref, nil
}

// String formats the reference as "Orders!B5", or "B5" without a sheet.
func (c CellRef) String() string {
	if c.Sheet == "" {
		return c.CellName()
	}
	return c.Sheet + "!" + c.CellName()
}

// CellName returns the A1-style name without the sheet.
func (c CellRef) CellName() string {
	return ColToName(c.Col) + strconv.Itoa(c.Row+1)
}

// ColToName converts a 0-based column index to its letters; 26 → "AA".
// Out-of-range indexes yield "".
func ColToName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return ""
	}
	return name
}

// NameToCol converts column letters to a 0-based index; "AA" → 26.
func NameToCol(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, fmt.Errorf("column name %q: %w", name, err)
	}
	return n - 1, nil
}
