package xlbind

import (
	"fmt"
	"reflect"
	"strings"
)

// Describe returns a human-readable report of the bindings of T and, with a
// non-empty sheet, how the sheet's columns resolve. Useful for debugging
// bindings during development.
func Describe[T any](s *Session, sheet string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("describe: nil session")
	}
	return s.Describe(typeOf[T](), sheet)
}

// Describe is the non-generic form of Describe.
func (s *Session) Describe(t reflect.Type, sheet string) (string, error) {
	t = baseType(t)
	ti, err := s.reg.typeInfo(t)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", t, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", ti.typ)
	for _, fi := range ti.fields {
		binding := s.reg.Binding(FieldKey{Type: ti.typ, Name: fi.name})
		fmt.Fprintf(&b, "  %s %s%s\n", fi.name, fi.typ, describeBinding(binding))
	}
	if sheet == "" {
		return b.String(), nil
	}

	cols, err := s.Columns(sheet, ti.typ)
	if err != nil {
		return "", fmt.Errorf("describe %s on %q: %w", ti.typ, sheet, err)
	}
	l := s.layouts[layoutKey{sheet: sheet, typ: ti.typ}]
	switch {
	case l == nil:
		fmt.Fprintf(&b, "Sheet %q: no header row\n", sheet)
	case l.headerRow < 0:
		fmt.Fprintf(&b, "Sheet %q: headerless, data from row %d\n", sheet, l.dataStart+1)
	default:
		fmt.Fprintf(&b, "Sheet %q: header row %d, data from row %d\n", sheet, l.headerRow+1, l.dataStart+1)
	}
	for _, c := range cols {
		target := c.FieldName()
		if target == "" {
			target = "<resolver>"
		}
		fmt.Fprintf(&b, "  %s %q -> %s (%s)\n", ColToName(c.Index), c.HeaderText(), target, c.Source)
	}
	return b.String(), nil
}

// describeBinding returns the set attributes of a binding for display.
func describeBinding(b *Binding) string {
	if b == nil {
		return ""
	}
	var parts []string
	if b.IsIgnored() {
		parts = append(parts, "ignored")
	}
	if b.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%q", b.Name))
	}
	if b.Index >= 0 {
		parts = append(parts, fmt.Sprintf("index=%d", b.Index))
	}
	if b.LastNonBlank() {
		parts = append(parts, "lastNonBlank")
	}
	if b.Resolver != "" {
		parts = append(parts, fmt.Sprintf("resolver=%q", b.Resolver))
	}
	if f := b.DisplayFormat(); !f.IsZero() {
		parts = append(parts, fmt.Sprintf("format=%q", f))
	}
	if b.Display != "" {
		parts = append(parts, fmt.Sprintf("display=%q", b.Display))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
