package xlbind

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadFile opens an xlsx file and reads every row of a sheet into records of
// type T. Row failures are joined into the returned error alongside the
// records that converted.
func ReadFile[T any](path, sheet string, opts ...Option) ([]*T, error) {
	grid, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer grid.Close()
	return readGrid[T](grid, sheet, opts)
}

// ReadReader reads every row of a sheet of an xlsx stream into records of type T.
func ReadReader[T any](r io.Reader, sheet string, opts ...Option) ([]*T, error) {
	grid, err := OpenWorkbookReader(r)
	if err != nil {
		return nil, err
	}
	defer grid.Close()
	return readGrid[T](grid, sheet, opts)
}

func readGrid[T any](grid Grid, sheet string, opts []Option) ([]*T, error) {
	s, err := NewSession(grid, opts...)
	if err != nil {
		return nil, err
	}
	return TakeAll[T](s, sheet)
}

// WriteFile writes records to a sheet of a new xlsx file at path.
func WriteFile[T any](path, sheet string, records []*T, opts ...Option) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file %q: %w", path, err)
	}
	defer out.Close()

	if err := Write(out, sheet, records, opts...); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// WriteBytes writes records to a sheet of a new workbook and returns it as bytes.
func WriteBytes[T any](sheet string, records []*T, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sheet, records, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes records to a sheet of a new workbook and encodes it to w.
func Write[T any](w io.Writer, sheet string, records []*T, opts ...Option) error {
	grid, err := NewWorkbook(sheet)
	if err != nil {
		return err
	}
	defer grid.Close()

	s, err := NewSession(grid, opts...)
	if err != nil {
		return err
	}
	if err := Put(s, sheet, records); err != nil {
		return err
	}
	if err := grid.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
