package xlbind

import (
	"fmt"
	"reflect"
)

// BindOption sets one attribute of a fluent binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	b         *Binding
	overwrite bool
}

// Header binds the field to the column with this header.
func Header(name string) BindOption {
	return func(c *bindConfig) { c.b.Name = name }
}

// Index binds the field to the column at this 0-based index.
func Index(index int) BindOption {
	return func(c *bindConfig) { c.b.Index = index }
}

// Ignore excludes the field from binding.
func Ignore() BindOption {
	return func(c *bindConfig) {
		v := true
		c.b.Ignored = &v
	}
}

// LastNonBlank makes blank cells inherit the previous non-blank value of the column.
func LastNonBlank() BindOption {
	return func(c *bindConfig) {
		v := true
		c.b.UseLastNonBlank = &v
	}
}

// WithResolver binds the field through the named resolver.
func WithResolver(name string) BindOption {
	return func(c *bindConfig) { c.b.Resolver = name }
}

// NumberFormat sets a custom number format used on write.
func NumberFormat(code string) BindOption {
	return func(c *bindConfig) { c.b.Format = code }
}

// BuiltinFormat sets a built-in number format id used on write. Id 0 is the
// unset value, so it cannot override a session type format; declare the
// custom format "General" instead.
func BuiltinFormat(id int) BindOption {
	return func(c *bindConfig) { c.b.BuiltinFormat = id }
}

// Display sets the display name matched by the naming convention.
func Display(name string) BindOption {
	return func(c *bindConfig) { c.b.Display = name }
}

// Overwrite replaces the field's binding instead of overlaying it.
func Overwrite() BindOption {
	return func(c *bindConfig) { c.overwrite = true }
}

// Map declares a binding for a field of T. It takes precedence over the
// field's struct tag and over earlier declarations.
//
//	xlbind.Map[Order](reg, "Total", xlbind.Header("Amount"), xlbind.NumberFormat("#,##0.00"))
func Map[T any](r *Registry, field string, opts ...BindOption) error {
	if r == nil {
		return fmt.Errorf("map %q: nil registry", field)
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	ti, fi, err := r.field(t, field)
	if err != nil {
		return fmt.Errorf("map %q: %w", field, err)
	}
	cfg := &bindConfig{b: NewBinding(FieldKey{Type: ti.typ, Name: fi.name})}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.b.Index < -1 {
		return fmt.Errorf("map %q: invalid index %d", field, cfg.b.Index)
	}
	r.merge(cfg.b, cfg.overwrite)
	return nil
}
