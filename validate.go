package xlbind

import (
	"fmt"
	"reflect"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Binding will fail at runtime
	SeverityWarning                 // Binding may produce unexpected results
)

// ValidationIssue represents a single problem found in the bindings of a
// type or in their resolution against a sheet.
type ValidationIssue struct {
	Severity Severity
	Field    string  // field name, "" for sheet-level issues
	Ref      CellRef // header cell, zero for binding issues
	Message  string
}

// String formats the issue as "[ERROR] Order.Total: message" or "[WARN] Sheet1!C1: ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	where := v.Field
	if v.Ref.Sheet != "" {
		where = v.Ref.String()
	}
	return fmt.Sprintf("[%s] %s: %s", sev, where, v.Message)
}

// Validate checks the bindings of T for conflicts and unknown resolvers. With
// a non-empty sheet it also resolves the sheet's columns and reports headers
// that bind nothing and fields no column binds. A non-nil error means the
// bindings or the sheet could not be inspected at all.
func Validate[T any](s *Session, sheet string) ([]ValidationIssue, error) {
	if s == nil {
		return nil, fmt.Errorf("validate: nil session")
	}
	return s.Validate(typeOf[T](), sheet)
}

// Validate is the non-generic form of Validate.
func (s *Session) Validate(t reflect.Type, sheet string) ([]ValidationIssue, error) {
	t = baseType(t)
	bindings, err := s.reg.BindingsFor(t)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", t, err)
	}
	ti, err := s.reg.typeInfo(t)
	if err != nil {
		return nil, err
	}

	issues := s.validateBindings(ti, bindings)
	if sheet != "" {
		sheetIssues, err := s.validateSheet(ti, sheet)
		if err != nil {
			return nil, err
		}
		issues = append(issues, sheetIssues...)
	}
	return issues, nil
}

// validateBindings checks each binding on its own and against its siblings.
func (s *Session) validateBindings(ti *typeInfo, bindings []*Binding) []ValidationIssue {
	var issues []ValidationIssue
	byIndex := make(map[int]string)
	byName := make(map[string]string)

	for _, b := range bindings {
		field := b.Field.String()
		fi := ti.byName[b.Field.Name]
		issue := func(sev Severity, format string, args ...any) {
			issues = append(issues, ValidationIssue{Severity: sev, Field: field, Message: fmt.Sprintf(format, args...)})
		}

		if b.IsIgnored() {
			if b.Index >= 0 || b.Name != "" || b.Resolver != "" {
				issue(SeverityWarning, "field is ignored but declares a column binding")
			}
			continue
		}
		if b.Resolver != "" {
			if _, err := s.resolvers.factory(b.Resolver); err != nil {
				issue(SeverityError, "invalid resolver: %v", err)
			}
		}
		if b.Resolver == "" && fi != nil && !isBindableType(fi.typ) {
			issue(SeverityError, "field type %s cannot hold a cell value", fi.typ)
		}
		if b.Index >= 0 && b.Name != "" {
			issue(SeverityWarning, "index %d takes precedence over column name %q", b.Index, b.Name)
		}
		if b.Format != "" && b.BuiltinFormat > 0 {
			issue(SeverityWarning, "custom format %q takes precedence over built-in format %d", b.Format, b.BuiltinFormat)
		}
		if b.Index >= 0 {
			if other, dup := byIndex[b.Index]; dup {
				issue(SeverityError, "column index %d is already bound to %s", b.Index, other)
			} else {
				byIndex[b.Index] = field
			}
		}
		if b.Index < 0 && b.Name != "" {
			if other, dup := byName[b.Name]; dup {
				issue(SeverityWarning, "column name %q is already bound to %s", b.Name, other)
			} else {
				byName[b.Name] = field
			}
		}
	}
	return issues
}

// validateSheet resolves a sheet and reports what did not bind.
func (s *Session) validateSheet(ti *typeInfo, sheet string) ([]ValidationIssue, error) {
	if err := s.checkSheet(sheet); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	l, err := s.layout(sheet, ti.typ, false)
	if err != nil {
		return nil, fmt.Errorf("validate %s on %q: %w", ti.typ, sheet, err)
	}
	var issues []ValidationIssue
	if l.headerRow < 0 {
		return issues, nil
	}

	bound := make(map[int]bool)
	fields := make(map[string]bool)
	for _, c := range l.columns {
		bound[c.Index] = true
		if name := c.FieldName(); name != "" {
			fields[name] = true
		}
	}
	last := s.grid.GetLastCol(sheet, l.headerRow)
	for col := 0; col <= last; col++ {
		ref := NewCellRef(sheet, l.headerRow, col)
		if bound[col] {
			continue
		}
		if cd := s.grid.GetCellData(ref); !cd.IsBlank() {
			issues = append(issues, ValidationIssue{
				Severity: SeverityWarning,
				Ref:      ref,
				Message:  fmt.Sprintf("header %q binds no field", cd.StringValue()),
			})
		}
	}
	for _, fi := range ti.fields {
		if fields[fi.name] || !isBindableType(fi.typ) {
			continue
		}
		if b := s.reg.Binding(FieldKey{Type: ti.typ, Name: fi.name}); b.IsIgnored() {
			continue
		}
		issues = append(issues, ValidationIssue{
			Severity: SeverityWarning,
			Field:    FieldKey{Type: ti.typ, Name: fi.name}.String(),
			Message:  fmt.Sprintf("no column of sheet %q binds this field", sheet),
		})
	}
	return issues, nil
}
