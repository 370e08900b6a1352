package xlbind

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclSchemaFile is the top-level structure of a binding schema file:
//
//	type "Order" {
//	  field "Total" {
//	    column = "Amount"
//	    format = "#,##0.00"
//	  }
//	  field "Notes" {
//	    ignore = true
//	  }
//	}
type hclSchemaFile struct {
	Types []*hclSchemaType `hcl:"type,block"`
}

type hclSchemaType struct {
	Name   string            `hcl:"name,label"`
	Fields []*hclSchemaField `hcl:"field,block"`
}

type hclSchemaField struct {
	Name          string  `hcl:"name,label"`
	Column        *string `hcl:"column,optional"`
	Index         *int    `hcl:"index,optional"`
	Ignore        *bool   `hcl:"ignore,optional"`
	LastNonBlank  *bool   `hcl:"last_non_blank,optional"`
	Resolver      *string `hcl:"resolver,optional"`
	Format        *string `hcl:"format,optional"`
	BuiltinFormat *int    `hcl:"builtin_format,optional"`
	Display       *string `hcl:"display,optional"`
}

// LoadSchema reads bindings from an HCL schema file. Type labels are matched
// against the names of the sample values' types, e.g. Order{} for "Order".
// Schema bindings overlay struct tags; later Map calls overlay both.
func (r *Registry) LoadSchema(path string, samples ...any) error {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse schema %s: %w", path, diags)
	}
	return r.applySchema(file, path, samples)
}

// ParseSchema reads bindings from HCL source. filename is used in diagnostics.
func (r *Registry) ParseSchema(src []byte, filename string, samples ...any) error {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("parse schema %s: %w", filename, diags)
	}
	return r.applySchema(file, filename, samples)
}

func (r *Registry) applySchema(file *hcl.File, filename string, samples []any) error {
	var parsed hclSchemaFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("decode schema %s: %w", filename, diags)
	}

	types := make(map[string]reflect.Type, len(samples))
	for _, sample := range samples {
		t := baseType(reflect.TypeOf(sample))
		if t == nil {
			return fmt.Errorf("schema %s: nil sample", filename)
		}
		types[t.Name()] = t
	}

	var bindings []*Binding
	for _, st := range parsed.Types {
		t, ok := types[st.Name]
		if !ok {
			return fmt.Errorf("schema %s: no sample for type %q", filename, st.Name)
		}
		for _, sf := range st.Fields {
			ti, fi, err := r.field(t, sf.Name)
			if err != nil {
				return fmt.Errorf("schema %s: type %q: %w", filename, st.Name, err)
			}
			b, err := sf.binding(FieldKey{Type: ti.typ, Name: fi.name})
			if err != nil {
				return fmt.Errorf("schema %s: %s.%s: %w", filename, st.Name, sf.Name, err)
			}
			bindings = append(bindings, b)
		}
	}
	for _, b := range bindings {
		r.merge(b, false)
	}
	return nil
}

func (sf *hclSchemaField) binding(key FieldKey) (*Binding, error) {
	b := NewBinding(key)
	if sf.Column != nil {
		b.Name = *sf.Column
	}
	if sf.Index != nil {
		if *sf.Index < 0 {
			return nil, fmt.Errorf("invalid index %d", *sf.Index)
		}
		b.Index = *sf.Index
	}
	if sf.Ignore != nil {
		v := *sf.Ignore
		b.Ignored = &v
	}
	if sf.LastNonBlank != nil {
		v := *sf.LastNonBlank
		b.UseLastNonBlank = &v
	}
	if sf.Resolver != nil {
		b.Resolver = *sf.Resolver
	}
	if sf.Format != nil {
		b.Format = *sf.Format
	}
	if sf.BuiltinFormat != nil {
		if *sf.BuiltinFormat < 0 {
			return nil, fmt.Errorf("invalid builtin_format %d", *sf.BuiltinFormat)
		}
		b.BuiltinFormat = *sf.BuiltinFormat
	}
	if sf.Display != nil {
		b.Display = *sf.Display
	}
	return b, nil
}
