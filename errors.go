package xlbind

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCellType is returned for a cell kind the coercion layer does not understand.
	ErrUnsupportedCellType = errors.New("unsupported cell type")
	// ErrUnsupportedValue is returned when a cell value does not parse into the field type.
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrResolverRejected is returned when a resolver declines a row.
	ErrResolverRejected = errors.New("resolver rejected value")
)

// RowError describes why a single row could not be converted.
type RowError struct {
	Sheet  string
	Row    int // 0-based row index
	Column int // 0-based column index, -1 if not column specific
	Err    error
}

func (e *RowError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("row %d of sheet %q: %v", e.Row+1, e.Sheet, e.Err)
	}
	return fmt.Sprintf("cell %s: %v", NewCellRef(e.Sheet, e.Row, e.Column), e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
