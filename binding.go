package xlbind

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldKey identifies one field of one target type.
type FieldKey struct {
	Type reflect.Type
	Name string
}

// String formats the key as "Type.Field".
func (k FieldKey) String() string {
	if k.Type == nil {
		return k.Name
	}
	return k.Type.Name() + "." + k.Name
}

// Binding is the declared association between a field and a column.
// Unset attributes: Name "", Index < 0, nil tri-states, Resolver "",
// Format "", BuiltinFormat 0, Display "".
type Binding struct {
	Field           FieldKey
	Name            string // explicit column name
	Index           int    // explicit column index
	Ignored         *bool
	UseLastNonBlank *bool
	Resolver        string // resolver factory identifier
	Format          string // custom display format, write only
	BuiltinFormat   int    // built-in display format id, write only; 0 means unset
	Display         string // display name for naming-convention matches
}

// NewBinding creates a binding for a field with every attribute unset.
func NewBinding(key FieldKey) *Binding {
	return &Binding{Field: key, Index: -1}
}

// IsIgnored reports whether the field is explicitly excluded.
func (b *Binding) IsIgnored() bool {
	return b != nil && b.Ignored != nil && *b.Ignored
}

// LastNonBlank reports whether blank cells inherit the previous non-blank value.
func (b *Binding) LastNonBlank() bool {
	return b != nil && b.UseLastNonBlank != nil && *b.UseLastNonBlank
}

// DisplayFormat returns the declared write format.
func (b *Binding) DisplayFormat() Format {
	if b == nil {
		return Format{}
	}
	return Format{Custom: b.Format, Builtin: b.BuiltinFormat}
}

func (b *Binding) clone() *Binding {
	c := *b
	if b.Ignored != nil {
		v := *b.Ignored
		c.Ignored = &v
	}
	if b.UseLastNonBlank != nil {
		v := *b.UseLastNonBlank
		c.UseLastNonBlank = &v
	}
	return &c
}

// overlay copies every attribute set on newer onto b.
func (b *Binding) overlay(newer *Binding) {
	if newer.Name != "" {
		b.Name = newer.Name
	}
	if newer.Index >= 0 {
		b.Index = newer.Index
	}
	if newer.Ignored != nil {
		v := *newer.Ignored
		b.Ignored = &v
	}
	if newer.UseLastNonBlank != nil {
		v := *newer.UseLastNonBlank
		b.UseLastNonBlank = &v
	}
	if newer.Resolver != "" {
		b.Resolver = newer.Resolver
	}
	if newer.Format != "" {
		b.Format = newer.Format
	}
	if newer.BuiltinFormat > 0 {
		b.BuiltinFormat = newer.BuiltinFormat
	}
	if newer.Display != "" {
		b.Display = newer.Display
	}
}

// typeInfo describes the bindable fields of a struct type.
type typeInfo struct {
	typ    reflect.Type
	fields []*fieldInfo
	byName map[string]*fieldInfo
}

// fieldInfo describes one exported top-level field.
type fieldInfo struct {
	name  string
	index int
	typ   reflect.Type
}

// Registry stores bindings per target type and field. Struct tags of a type
// are scanned the first time the type is seen, so every explicit binding
// merged afterwards overlays the declared one.
type Registry struct {
	bindings map[FieldKey]*Binding
	types    map[reflect.Type]*typeInfo
	enums    map[reflect.Type]*enumInfo
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[FieldKey]*Binding),
		types:    make(map[reflect.Type]*typeInfo),
		enums:    make(map[reflect.Type]*enumInfo),
	}
}

// Merge inserts a binding or overlays its set attributes onto the existing
// binding for the same field. With overwrite the binding replaces the
// existing one outright.
func (r *Registry) Merge(b *Binding, overwrite bool) error {
	if b == nil {
		return fmt.Errorf("merge binding: nil binding")
	}
	ti, err := r.typeInfo(b.Field.Type)
	if err != nil {
		return fmt.Errorf("merge binding %s: %w", b.Field, err)
	}
	if _, ok := ti.byName[b.Field.Name]; !ok {
		return fmt.Errorf("merge binding: type %s has no exported field %q", ti.typ, b.Field.Name)
	}
	b = b.clone()
	b.Field.Type = ti.typ
	r.merge(b, overwrite)
	return nil
}

func (r *Registry) merge(b *Binding, overwrite bool) {
	existing, ok := r.bindings[b.Field]
	if !ok || overwrite {
		r.bindings[b.Field] = b
		return
	}
	existing.overlay(b)
}

// BindingsFor returns the bindings of a type in field declaration order.
func (r *Registry) BindingsFor(t reflect.Type) ([]*Binding, error) {
	ti, err := r.typeInfo(t)
	if err != nil {
		return nil, err
	}
	var out []*Binding
	for _, fi := range ti.fields {
		if b, ok := r.bindings[FieldKey{Type: ti.typ, Name: fi.name}]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Binding returns the binding of a single field, or nil.
func (r *Registry) Binding(key FieldKey) *Binding {
	if key.Type != nil && key.Type.Kind() == reflect.Pointer {
		key.Type = key.Type.Elem()
	}
	return r.bindings[key]
}

// typeInfo returns the field layout of a struct type, scanning its tags on first use.
func (r *Registry) typeInfo(t reflect.Type) (*typeInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if ti, ok := r.types[t]; ok {
		return ti, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", t)
	}

	ti := &typeInfo{typ: t, byName: make(map[string]*fieldInfo)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		fi := &fieldInfo{name: sf.Name, index: i, typ: sf.Type}
		ti.fields = append(ti.fields, fi)
		ti.byName[sf.Name] = fi
	}

	declared, err := scanTags(t)
	if err != nil {
		return nil, err
	}
	r.types[t] = ti
	for _, b := range declared {
		r.merge(b, false)
	}
	return ti, nil
}

// field resolves a field selector of a type.
func (r *Registry) field(t reflect.Type, name string) (*typeInfo, *fieldInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("empty field selector")
	}
	ti, err := r.typeInfo(t)
	if err != nil {
		return nil, nil, err
	}
	fi, ok := ti.byName[name]
	if !ok {
		return nil, nil, fmt.Errorf("type %s has no exported field %q", ti.typ, name)
	}
	return ti, fi, nil
}
