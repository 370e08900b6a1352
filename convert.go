package xlbind

import (
	"fmt"
	"reflect"
)

// readRow builds one record from a data row. On failure it returns the
// failing column index and the partial record is discarded.
func (s *Session) readRow(l *sheetLayout, row int) (reflect.Value, int, error) {
	rec := reflect.New(l.typ)
	for _, c := range l.columns {
		cd := s.grid.GetCellData(NewCellRef(l.sheet, row, c.Index))
		v, err := s.reg.decodeCell(cd, c.fieldType(), s.opts.trimSpaces)
		if err != nil {
			return reflect.Value{}, c.Index, err
		}

		if c.Binding.LastNonBlank() {
			if v == nil {
				if c.hasLast {
					v = c.last
				}
			} else {
				c.last, c.hasLast = v, true
			}
		}

		if c.Resolver != nil {
			if !c.Resolver.Take(c, v, rec) {
				return reflect.Value{}, c.Index, fmt.Errorf("%w: column %q", ErrResolverRejected, c.HeaderText())
			}
			continue
		}
		f, ok := c.Field(rec)
		if !ok {
			continue
		}
		if err := assignValue(f, v); err != nil {
			return reflect.Value{}, c.Index, err
		}
	}
	return rec, -1, nil
}

// writeRow writes the bound fields of a record into a row.
func (s *Session) writeRow(l *sheetLayout, row int, rec reflect.Value) (int, error) {
	for _, c := range l.columns {
		var v any
		if c.Resolver != nil {
			var ok bool
			if v, ok = c.Resolver.Put(c, rec); !ok {
				continue
			}
		} else {
			f, ok := c.Field(rec)
			if !ok {
				continue
			}
			var err error
			if v, err = s.reg.encodeValue(f); err != nil {
				return c.Index, err
			}
		}

		ref := NewCellRef(l.sheet, row, c.Index)
		if err := s.grid.SetCellValue(ref, v); err != nil {
			return c.Index, err
		}
		if v == nil {
			continue
		}
		format := c.Binding.DisplayFormat()
		if format.IsZero() {
			format = s.typeFormat(c.fieldType())
		}
		if format.IsZero() {
			continue
		}
		styleID, err := s.style(format)
		if err != nil {
			return c.Index, err
		}
		if err := s.grid.SetCellStyle(ref, styleID); err != nil {
			return c.Index, fmt.Errorf("style cell %s: %w", ref, err)
		}
	}
	return -1, nil
}

// typeFormat returns the session default format of a field type.
func (s *Session) typeFormat(t reflect.Type) Format {
	t = baseType(t)
	if t == nil {
		return Format{}
	}
	return s.opts.typeFormats[t]
}

// style returns the style id for a format, creating it once per session.
func (s *Session) style(format Format) (int, error) {
	if id, ok := s.styles[format]; ok {
		return id, nil
	}
	id, err := s.grid.NewStyle(format)
	if err != nil {
		return 0, err
	}
	s.styles[format] = id
	return id, nil
}
