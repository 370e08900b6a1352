package xlbind

import (
	"io"
	"strconv"
)

// Grid abstracts the workbook the binding engine reads from and writes to.
// Rows and columns are 0-based. Implementations are not required to be safe
// for concurrent use.
type Grid interface {
	// Sheet data
	GetSheetNames() []string
	NewSheet(name string) error

	// Extents. GetLastRow returns -1 for an empty or missing sheet and
	// GetLastCol returns -1 for an empty or missing row.
	GetLastRow(sheet string) int
	GetLastCol(sheet string, row int) int

	// Cell data access. GetCellData returns nil for a cell that holds nothing.
	GetCellData(ref CellRef) *CellData

	// Cell writes
	SetCellValue(ref CellRef, value any) error
	ClearCell(ref CellRef) error
	ClearRow(sheet string, row int) error

	// Styles
	NewStyle(format Format) (int, error)
	SetCellStyle(ref CellRef, styleID int) error

	// I/O
	Write(w io.Writer) error
	Close() error
}

// Format is a display number format applied to written cells. Custom takes
// precedence over Builtin; the zero Format means "no format".
type Format struct {
	Custom  string // custom number format code, e.g. "#,##0.00"
	Builtin int    // built-in number format id, e.g. 14 for dates
}

// IsZero reports whether no format is set.
func (f Format) IsZero() bool {
	return f.Custom == "" && f.Builtin <= 0
}

// String returns the format code or "builtin:<id>".
func (f Format) String() string {
	if f.Custom != "" {
		return f.Custom
	}
	if f.Builtin > 0 {
		return "builtin:" + strconv.Itoa(f.Builtin)
	}
	return ""
}

// isDateFormat reports whether a number format renders date/time values.
func isDateFormat(numFmt int, custom string) bool {
	if custom != "" {
		return isDateFormatCode(custom)
	}
	switch {
	case numFmt >= 14 && numFmt <= 22,
		numFmt >= 27 && numFmt <= 36,
		numFmt >= 45 && numFmt <= 47,
		numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}

// isDateFormatCode scans a custom format code for date/time tokens outside
// quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == '\\':
			i++
		default:
			switch ch {
			case 'y', 'Y', 'd', 'D', 'h', 'H', 's', 'S', 'm', 'M':
				return true
			}
		}
	}
	return false
}
