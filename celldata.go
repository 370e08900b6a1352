package xlbind

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// CellType represents the kind of data stored in a cell.
type CellType int

const (
	CellBlank CellType = iota
	CellString
	CellNumber
	CellBoolean
	CellFormula
	CellError
	CellUnknown
)

// String returns a human-readable name for the CellType.
func (ct CellType) String() string {
	switch ct {
	case CellBlank:
		return "Blank"
	case CellString:
		return "String"
	case CellNumber:
		return "Number"
	case CellBoolean:
		return "Boolean"
	case CellFormula:
		return "Formula"
	case CellError:
		return "Error"
	default:
		return "Unknown"
	}
}

// CellData holds everything the binding engine needs to know about one cell.
//
// Value is a string for CellString and CellError, a float64 for CellNumber,
// a bool for CellBoolean and nil for CellBlank. Formula cells carry the
// cached result in Value and its kind in CachedType.
type CellData struct {
	Ref        CellRef
	Value      any
	Type       CellType
	CachedType CellType // result type of a formula cell
	Formula    string   // formula without leading =
	IsDate     bool     // numeric value carries a date/time number format
	StyleID    int
}

// NewCellData creates a CellData with a reference, value, and type.
func NewCellData(ref CellRef, value any, cellType CellType) *CellData {
	return &CellData{
		Ref:   ref,
		Value: value,
		Type:  cellType,
	}
}

// IsFormulaCell returns true if this cell contains a formula.
func (cd *CellData) IsFormulaCell() bool {
	return cd.Type == CellFormula || cd.Formula != ""
}

// ResultType returns the type of the value the cell evaluates to: the cached
// result type for formula cells, the cell type otherwise.
func (cd *CellData) ResultType() CellType {
	if cd.IsFormulaCell() {
		if cd.CachedType == CellFormula {
			return CellUnknown
		}
		return cd.CachedType
	}
	return cd.Type
}

// IsBlank reports whether the cell holds no value.
func (cd *CellData) IsBlank() bool {
	if cd == nil {
		return true
	}
	switch cd.ResultType() {
	case CellBlank:
		return true
	case CellString:
		s, _ := cd.Value.(string)
		return s == ""
	}
	return cd.Value == nil
}

// StringValue returns the cell value as text.
func (cd *CellData) StringValue() string {
	switch v := cd.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}

// NumberValue returns the numeric value of the cell.
func (cd *CellData) NumberValue() (float64, error) {
	switch v := cd.Value.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cell %s is not numeric: %q", cd.Ref, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cell %s is not numeric: %T", cd.Ref, cd.Value)
	}
}

// BoolValue returns the boolean value of the cell.
func (cd *CellData) BoolValue() (bool, error) {
	switch v := cd.Value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cell %s is not boolean: %q", cd.Ref, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cell %s is not boolean: %T", cd.Ref, cd.Value)
	}
}

// TimeValue decodes a numeric date serial into a time.Time (UTC, 1900 date system).
func (cd *CellData) TimeValue() (time.Time, error) {
	f, err := cd.NumberValue()
	if err != nil {
		return time.Time{}, err
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("cell %s date serial %v: %w", cd.Ref, f, err)
	}
	return t, nil
}

// excelEpoch is day zero of the 1900 date system for serials after 1900-03-01.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// timeToSerial converts a time to a 1900 date system serial number.
func timeToSerial(t time.Time) float64 {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(t.Sub(excelEpoch)) / float64(24*time.Hour)
}
