package xlbind

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ExprResolverPrefix marks an inline resolver identifier: the rest of the
// identifier is the match expression of an ExprResolver.
//
//	Qty int `xl:",resolver='expr:header startsWith \"Qty\"'"`
const ExprResolverPrefix = "expr:"

// Resolver decides whether a column binds to a record and moves values
// between the column and the record. A resolver instance serves one column
// of one sheet.
type Resolver interface {
	// MapColumn reports whether the resolver claims the header at index. It
	// returns the effective header value, which may differ from the input.
	MapColumn(header any, index int) (any, bool)

	// Take stores a decoded cell value into the record. Returning false
	// rejects the row.
	Take(col *Column, value any, record reflect.Value) bool

	// Put returns the value to write for the column. Returning false leaves
	// the cell untouched.
	Put(col *Column, record reflect.Value) (any, bool)
}

// ResolverFactory creates a fresh Resolver instance.
type ResolverFactory func() Resolver

// ResolverRegistry maps stable resolver identifiers to their factories.
type ResolverRegistry struct {
	factories map[string]ResolverFactory
}

// NewResolverRegistry creates a registry with the built-in resolvers.
func NewResolverRegistry() *ResolverRegistry {
	r := &ResolverRegistry{
		factories: make(map[string]ResolverFactory),
	}
	r.Register("field", func() Resolver { return FieldResolver{} })
	return r
}

// Register adds a resolver factory.
func (r *ResolverRegistry) Register(name string, factory ResolverFactory) {
	r.factories[name] = factory
}

// Has reports whether name identifies a resolver.
func (r *ResolverRegistry) Has(name string) bool {
	_, err := r.factory(name)
	return err == nil
}

// factory looks up a factory, compiling inline expression resolvers on first use.
func (r *ResolverRegistry) factory(name string) (ResolverFactory, error) {
	if factory, ok := r.factories[name]; ok {
		return factory, nil
	}
	if match, ok := strings.CutPrefix(name, ExprResolverPrefix); ok {
		factory, err := NewExprResolver(match, "")
		if err != nil {
			return nil, err
		}
		r.factories[name] = factory
		return factory, nil
	}
	return nil, fmt.Errorf("unknown resolver %q", name)
}

// Names returns the registered identifiers in sorted order.
func (r *ResolverRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates the resolver registered under name.
func (r *ResolverRegistry) Create(name string) (Resolver, error) {
	factory, err := r.factory(name)
	if err != nil {
		return nil, err
	}
	res := factory()
	if res == nil {
		return nil, fmt.Errorf("resolver factory %q returned nil", name)
	}
	return res, nil
}

// FieldResolver claims every header and copies values to and from the
// column's bound field. It is the building block for custom resolvers that
// only need to customize one of the three steps.
type FieldResolver struct{}

// MapColumn claims the header unchanged.
func (FieldResolver) MapColumn(header any, index int) (any, bool) {
	return header, true
}

// Take assigns the value to the bound field. Columns without a field, such
// as those claimed as the default resolver, are skipped.
func (FieldResolver) Take(col *Column, value any, record reflect.Value) bool {
	if col.FieldName() == "" {
		return true
	}
	return col.Assign(record, value) == nil
}

// Put reads the bound field. Columns without a field are left untouched.
func (FieldResolver) Put(col *Column, record reflect.Value) (any, bool) {
	if col.FieldName() == "" {
		return nil, false
	}
	v, err := col.Value(record)
	return v, err == nil
}

// CollectResolver gathers every column it claims into a map[string]any
// field of the record, keyed by header text. Use it as the default resolver
// to keep unmatched columns.
type CollectResolver struct {
	Field string
}

// CollectInto returns a factory for a CollectResolver writing into field.
func CollectInto(field string) ResolverFactory {
	return func() Resolver { return &CollectResolver{Field: field} }
}

// MapColumn claims every header that carries a value.
func (c *CollectResolver) MapColumn(header any, index int) (any, bool) {
	if header == nil {
		return nil, false
	}
	return header, true
}

// Take stores the value under the column header.
func (c *CollectResolver) Take(col *Column, value any, record reflect.Value) bool {
	m, ok := c.target(record)
	if !ok {
		return false
	}
	if m.IsNil() {
		m.Set(reflect.MakeMap(m.Type()))
	}
	key := col.HeaderText()
	if value == nil {
		m.SetMapIndex(reflect.ValueOf(key), reflect.Zero(m.Type().Elem()))
		return true
	}
	m.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(value))
	return true
}

// Put returns the value stored under the column header.
func (c *CollectResolver) Put(col *Column, record reflect.Value) (any, bool) {
	m, ok := c.target(record)
	if !ok || m.IsNil() {
		return nil, false
	}
	v := m.MapIndex(reflect.ValueOf(col.HeaderText()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func (c *CollectResolver) target(record reflect.Value) (reflect.Value, bool) {
	record = reflect.Indirect(record)
	if record.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	m := record.FieldByName(c.Field)
	if !m.IsValid() || m.Kind() != reflect.Map || m.Type().Key().Kind() != reflect.String ||
		m.Type().Elem().Kind() != reflect.Interface {
		return reflect.Value{}, false
	}
	return m, true
}
