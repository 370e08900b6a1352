package xlbind

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// Column is one resolved column of a sheet for a target type.
type Column struct {
	Index    int
	Header   any      // effective header value: string, float64, bool or nil
	Binding  *Binding // matched binding; synthetic for default-resolver columns
	Resolver Resolver // live resolver instance, or nil
	Source   string   // how the column was matched: index, name, resolver, convention, default, generated

	field   *fieldInfo // nil when the column has no bound field
	reg     *Registry
	last    any // last non-blank value seen in this column
	hasLast bool
}

// HeaderText returns the header as text.
func (c *Column) HeaderText() string {
	return headerText(c.Header)
}

// FieldName returns the bound field name, or "".
func (c *Column) FieldName() string {
	if c.field == nil {
		return ""
	}
	return c.field.name
}

// Field returns the bound field of a record.
func (c *Column) Field(record reflect.Value) (reflect.Value, bool) {
	record = reflect.Indirect(record)
	if c.field == nil || record.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return record.Field(c.field.index), true
}

// Assign stores a decoded value into the bound field.
func (c *Column) Assign(record reflect.Value, value any) error {
	f, ok := c.Field(record)
	if !ok {
		return fmt.Errorf("column %d has no bound field", c.Index)
	}
	return assignValue(f, value)
}

// Value returns the bound field's value encoded for writing.
func (c *Column) Value(record reflect.Value) (any, error) {
	f, ok := c.Field(record)
	if !ok {
		return nil, fmt.Errorf("column %d has no bound field", c.Index)
	}
	return c.reg.encodeValue(f)
}

// fieldType returns the static type of the bound field, or nil.
func (c *Column) fieldType() reflect.Type {
	if c.field == nil {
		return nil
	}
	return c.field.typ
}

// headerText renders a decoded header value as text.
func headerText(h any) string {
	switch v := h.(type) {
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
	}
	return fmt.Sprint(h)
}

// Refine normalizes a header for naming-convention matching: whitespace is
// stripped, characters in ignored are removed, and the result is truncated
// at the first character in truncate.
//
//	Refine("Order-No. [2021]", DefaultIgnoredNameChars, DefaultTruncateNameChars) == "OrderNo"
func Refine(s, ignored, truncate string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || strings.ContainsRune(ignored, r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if i := strings.IndexAny(out, truncate); i >= 0 {
		out = out[:i]
	}
	return out
}

// sheetLayout is the memoized column resolution of one sheet for one type.
type sheetLayout struct {
	sheet     string
	typ       reflect.Type
	headerRow int // -1 when headerless
	dataStart int
	columns   []*Column // ordered by index
}

func (l *sheetLayout) resetSlots() {
	for _, c := range l.columns {
		c.last, c.hasLast = nil, false
	}
}

// headerRowOf returns the header row of a sheet, or -1 if it has no data.
func (s *Session) headerRowOf(sheet string) int {
	if s.opts.headerRow >= 0 {
		return s.opts.headerRow
	}
	last := s.grid.GetLastRow(sheet)
	for row := 0; row <= last; row++ {
		if !s.isBlankRow(sheet, row) {
			return row
		}
	}
	return -1
}

// isBlankRow reports whether every cell of a row is blank.
func (s *Session) isBlankRow(sheet string, row int) bool {
	last := s.grid.GetLastCol(sheet, row)
	for col := 0; col <= last; col++ {
		cd := s.grid.GetCellData(NewCellRef(sheet, row, col))
		if !cd.IsBlank() {
			if s.opts.trimSpaces {
				if str, ok := cd.Value.(string); ok && strings.TrimSpace(str) == "" {
					continue
				}
			}
			return false
		}
	}
	return true
}

// layout returns the memoized columns of a sheet for a type, resolving
// them on first use. forWrite allows generating columns for an empty sheet.
func (s *Session) layout(sheet string, t reflect.Type, forWrite bool) (*sheetLayout, error) {
	key := layoutKey{sheet: sheet, typ: t}
	if l, ok := s.layouts[key]; ok {
		return l, nil
	}

	bindings, err := s.reg.BindingsFor(t)
	if err != nil {
		return nil, err
	}
	ti, err := s.reg.typeInfo(t)
	if err != nil {
		return nil, err
	}

	var l *sheetLayout
	switch {
	case s.opts.headerless && forWrite && s.grid.GetLastRow(sheet) < 0:
		l, err = s.generateColumns(sheet, ti, bindings)
	case s.opts.headerless:
		l, err = s.resolveHeaderless(sheet, ti, bindings)
	default:
		headerRow := s.headerRowOf(sheet)
		if headerRow < 0 || s.grid.GetLastCol(sheet, headerRow) < 0 {
			if !forWrite {
				// Nothing to resolve against yet; do not memoize.
				return &sheetLayout{sheet: sheet, typ: t, headerRow: -1, dataStart: 0}, nil
			}
			l, err = s.generateColumns(sheet, ti, bindings)
			break
		}
		l, err = s.resolveHeader(sheet, headerRow, ti, bindings)
	}
	if err != nil {
		return nil, err
	}
	s.layouts[key] = l
	s.log.WithFields(logrus.Fields{
		"sheet":   sheet,
		"type":    t.String(),
		"columns": len(l.columns),
	}).Debug("resolved columns")
	return l, nil
}

// resolveHeader matches every header cell against the bindings of a type.
func (s *Session) resolveHeader(sheet string, headerRow int, ti *typeInfo, bindings []*Binding) (*sheetLayout, error) {
	l := &sheetLayout{sheet: sheet, typ: ti.typ, headerRow: headerRow, dataStart: headerRow + 1}

	lastCol := s.grid.GetLastCol(sheet, headerRow)
	for _, b := range bindings {
		if !b.IsIgnored() && b.Index > lastCol {
			lastCol = b.Index
		}
	}

	claimed := make(map[string]bool)
	for col := 0; col <= lastCol; col++ {
		cd := s.grid.GetCellData(NewCellRef(sheet, headerRow, col))
		header, err := s.reg.decodeCell(cd, nil, true)
		if err != nil {
			header = nil
		}
		c, err := s.matchColumn(col, header, true, ti, bindings, claimed)
		if err != nil {
			return nil, fmt.Errorf("resolve column %s: %w", NewCellRef(sheet, headerRow, col), err)
		}
		if c == nil {
			s.log.WithFields(logrus.Fields{"sheet": sheet, "column": col, "header": headerText(header)}).
				Debug("header matched nothing")
			continue
		}
		l.columns = append(l.columns, c)
	}
	return l, nil
}

// resolveHeaderless binds the physical columns of the first data row
// through explicit indexes and resolvers only.
func (s *Session) resolveHeaderless(sheet string, ti *typeInfo, bindings []*Binding) (*sheetLayout, error) {
	start := s.opts.headerRow
	if start < 0 {
		start = 0
	}
	l := &sheetLayout{sheet: sheet, typ: ti.typ, headerRow: -1, dataStart: start}

	lastCol := s.grid.GetLastCol(sheet, start)
	for _, b := range bindings {
		if !b.IsIgnored() && b.Index > lastCol {
			lastCol = b.Index
		}
	}
	for col := 0; col <= lastCol; col++ {
		c, err := s.matchColumn(col, nil, false, ti, bindings, nil)
		if err != nil {
			return nil, fmt.Errorf("resolve column %s: %w", NewCellRef(sheet, start, col), err)
		}
		if c != nil {
			l.columns = append(l.columns, c)
		}
	}
	return l, nil
}

// matchColumn applies the resolution precedence to one header cell:
// explicit index, explicit name, field resolver, naming convention and
// finally the default resolver.
func (s *Session) matchColumn(col int, header any, hasHeader bool, ti *typeInfo, bindings []*Binding, claimed map[string]bool) (*Column, error) {
	newColumn := func(b *Binding, source string) *Column {
		return &Column{Index: col, Header: header, Binding: b, Source: source, field: ti.byName[b.Field.Name], reg: s.reg}
	}

	for _, b := range bindings {
		if b.Index == col && !b.IsIgnored() {
			c := newColumn(b, "index")
			if b.Resolver != "" {
				res, err := s.resolvers.Create(b.Resolver)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", b.Field, err)
				}
				c.Resolver = res
			}
			return c, nil
		}
	}

	text := headerText(header)
	if hasHeader && header != nil {
		for _, b := range bindings {
			if b.Index < 0 && b.Name != "" && !b.IsIgnored() && b.Name == text {
				c := newColumn(b, "name")
				if b.Resolver != "" {
					res, err := s.resolvers.Create(b.Resolver)
					if err != nil {
						return nil, fmt.Errorf("field %s: %w", b.Field, err)
					}
					c.Resolver = res
				}
				return c, nil
			}
		}
	}

	for _, b := range bindings {
		if b.Resolver == "" || b.Index >= 0 || b.Name != "" || b.IsIgnored() {
			continue
		}
		res, err := s.resolvers.Create(b.Resolver)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", b.Field, err)
		}
		if effective, ok := res.MapColumn(header, col); ok {
			c := newColumn(b, "resolver")
			c.Header, c.Resolver = effective, res
			return c, nil
		}
	}

	if hasHeader && header != nil {
		if fi := s.conventionMatch(text, ti, claimed); fi != nil {
			claimed[fi.name] = true
			b := NewBinding(FieldKey{Type: ti.typ, Name: fi.name})
			if existing := s.reg.Binding(b.Field); existing != nil {
				b = existing.clone()
			}
			if b.IsIgnored() {
				return nil, nil
			}
			b.Index = col
			return newColumn(b, "convention"), nil
		}
	}

	if s.opts.defaultResolver != "" {
		res, err := s.resolvers.Create(s.opts.defaultResolver)
		if err != nil {
			return nil, fmt.Errorf("default resolver: %w", err)
		}
		if effective, ok := res.MapColumn(header, col); ok {
			b := NewBinding(FieldKey{Type: ti.typ})
			b.Index, b.Name = col, headerText(effective)
			return &Column{Index: col, Header: effective, Binding: b, Resolver: res, Source: "default", reg: s.reg}, nil
		}
	}
	return nil, nil
}

// conventionMatch finds the field a header names: refined header against
// field names, then display names, then refined field names, all ignoring
// case. Fields pinned by an explicit index, name or resolver do not take
// part, and a field matches at most one column.
func (s *Session) conventionMatch(header string, ti *typeInfo, claimed map[string]bool) *fieldInfo {
	refined := s.refine(header)
	if refined == "" {
		return nil
	}

	var candidates []*fieldInfo
	for _, fi := range ti.fields {
		if claimed[fi.name] || !isBindableType(fi.typ) {
			continue
		}
		b := s.reg.Binding(FieldKey{Type: ti.typ, Name: fi.name})
		if b != nil && (b.Index >= 0 || b.Name != "" || b.Resolver != "") {
			continue
		}
		candidates = append(candidates, fi)
	}

	for _, fi := range candidates {
		if strings.EqualFold(fi.name, refined) {
			return fi
		}
	}
	for _, fi := range candidates {
		b := s.reg.Binding(FieldKey{Type: ti.typ, Name: fi.name})
		if b == nil || b.Display == "" {
			continue
		}
		if strings.EqualFold(b.Display, refined) || strings.EqualFold(s.refine(b.Display), refined) {
			return fi
		}
	}
	for _, fi := range candidates {
		if strings.EqualFold(s.refine(fi.name), refined) {
			return fi
		}
	}
	return nil
}

func (s *Session) refine(name string) string {
	return Refine(name, s.opts.ignoredNameChars, s.opts.truncateNameChars)
}

// generateColumns lays out the fields of a type on a sheet without a header
// row: explicitly indexed fields first, the rest in declaration order on the
// free columns. The header row is written unless the session is headerless.
func (s *Session) generateColumns(sheet string, ti *typeInfo, bindings []*Binding) (*sheetLayout, error) {
	headerRow := s.opts.headerRow
	if headerRow < 0 {
		headerRow = 0
	}
	l := &sheetLayout{sheet: sheet, typ: ti.typ, headerRow: headerRow, dataStart: headerRow + 1}

	byField := make(map[string]*Binding, len(bindings))
	used := make(map[int]bool)
	for _, b := range bindings {
		byField[b.Field.Name] = b
		if b.Index >= 0 && !b.IsIgnored() {
			used[b.Index] = true
		}
	}

	next := 0
	for _, fi := range ti.fields {
		b := byField[fi.name]
		if b.IsIgnored() {
			continue
		}
		if b == nil {
			if !isBindableType(fi.typ) {
				continue
			}
			b = NewBinding(FieldKey{Type: ti.typ, Name: fi.name})
		}
		b = b.clone()
		if b.Index < 0 {
			for used[next] {
				next++
			}
			b.Index = next
			used[next] = true
		}
		header := b.Name
		if header == "" {
			header = b.Display
		}
		if header == "" {
			header = fi.name
		}
		c := &Column{Index: b.Index, Header: header, Binding: b, Source: "generated", field: fi, reg: s.reg}
		if b.Resolver != "" {
			res, err := s.resolvers.Create(b.Resolver)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", b.Field, err)
			}
			c.Resolver = res
		}
		l.columns = append(l.columns, c)
	}
	sort.SliceStable(l.columns, func(i, j int) bool { return l.columns[i].Index < l.columns[j].Index })

	if s.opts.headerless {
		l.headerRow, l.dataStart = -1, headerRow
		return l, nil
	}
	for _, c := range l.columns {
		if err := s.grid.SetCellValue(NewCellRef(sheet, headerRow, c.Index), c.Header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return l, nil
}
