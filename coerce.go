package xlbind

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// baseType strips pointer indirections from a field type.
func baseType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isBindableType reports whether a field type can hold a single cell value.
func isBindableType(t reflect.Type) bool {
	t = baseType(t)
	if t == timeType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Interface:
		return t.NumMethod() == 0
	}
	return false
}

// decodeCell converts a cell into a Go value suited to the field type ft.
// A nil result means the cell holds no value. ft may be nil when the column
// is not bound to a field.
func (r *Registry) decodeCell(cd *CellData, ft reflect.Type, trim bool) (any, error) {
	if cd == nil {
		return nil, nil
	}
	ft = baseType(ft)
	var enum *enumInfo
	if ft != nil {
		enum = r.enum(ft)
	}

	switch kind := cd.ResultType(); kind {
	case CellBlank, CellError, CellUnknown:
		return nil, nil
	case CellString:
		s, _ := cd.Value.(string)
		if trim {
			s = strings.TrimSpace(s)
		}
		if s == "" {
			return nil, nil
		}
		if enum != nil {
			m, ok := enum.byName(s)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a member of %s", ErrUnsupportedValue, s, ft)
			}
			return m.Interface(), nil
		}
		return s, nil
	case CellNumber:
		f, err := cd.NumberValue()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		if enum != nil {
			ordinal := strconv.FormatFloat(f, 'f', -1, 64)
			n, err := strconv.ParseInt(ordinal, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s is not an ordinal of %s", ErrUnsupportedValue, ordinal, ft)
			}
			m, ok := enum.byOrdinal(n)
			if !ok {
				return nil, fmt.Errorf("%w: %d is not a member of %s", ErrUnsupportedValue, n, ft)
			}
			return m.Interface(), nil
		}
		if cd.IsDate || ft == timeType {
			t, err := cd.TimeValue()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
			}
			return t, nil
		}
		return f, nil
	case CellBoolean:
		b, err := cd.BoolValue()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCellType, kind)
	}
}

// assignValue stores a decoded value into a field, converting between
// compatible representations. A nil value leaves the field untouched.
func assignValue(field reflect.Value, v any) error {
	if v == nil {
		return nil
	}
	ft := field.Type()
	if ft.Kind() == reflect.Pointer {
		elem := reflect.New(ft.Elem())
		if err := assignValue(elem.Elem(), v); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(ft) {
		field.Set(rv)
		return nil
	}
	if ft != timeType && field.CanAddr() {
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(formatText(v))); err != nil {
				return fmt.Errorf("%w: %q into %s: %v", ErrUnsupportedValue, formatText(v), ft, err)
			}
			return nil
		}
	}

	switch ft.Kind() {
	case reflect.String:
		field.SetString(formatText(v))
		return nil
	case reflect.Bool:
		switch x := v.(type) {
		case float64:
			field.SetBool(x != 0)
			return nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return unsupported(v, ft)
			}
			field.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return unsupported(v, ft)
		}
		if f < -(1<<63) || f >= 1<<63 {
			return fmt.Errorf("%w: %v overflows %s", ErrUnsupportedValue, v, ft)
		}
		n := int64(f)
		if field.OverflowInt(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrUnsupportedValue, v, ft)
		}
		field.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || f < 0 {
			return unsupported(v, ft)
		}
		if f >= 1<<64 {
			return fmt.Errorf("%w: %v overflows %s", ErrUnsupportedValue, v, ft)
		}
		n := uint64(f)
		if field.OverflowUint(n) {
			return fmt.Errorf("%w: %v overflows %s", ErrUnsupportedValue, v, ft)
		}
		field.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(v)
		if !ok {
			return unsupported(v, ft)
		}
		if field.OverflowFloat(f) {
			return fmt.Errorf("%w: %v overflows %s", ErrUnsupportedValue, v, ft)
		}
		field.SetFloat(f)
		return nil
	case reflect.Struct:
		if ft == timeType {
			switch x := v.(type) {
			case float64:
				cd := &CellData{Value: x, Type: CellNumber}
				t, err := cd.TimeValue()
				if err != nil {
					return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
				}
				field.Set(reflect.ValueOf(t))
				return nil
			case string:
				t, ok := parseISODate(strings.TrimSpace(x))
				if !ok {
					return unsupported(v, ft)
				}
				field.Set(reflect.ValueOf(t))
				return nil
			}
		}
	}
	if rv.Type().ConvertibleTo(ft) && rv.Kind() == ft.Kind() {
		field.Set(rv.Convert(ft))
		return nil
	}
	return unsupported(v, ft)
}

func unsupported(v any, ft reflect.Type) error {
	return fmt.Errorf("%w: cannot assign %T %q to %s", ErrUnsupportedValue, v, formatText(v), ft)
}

// toFloat converts a decoded number, bool or numeric string to float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// formatText returns the text form of a decoded value.
func formatText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// encodeValue converts a field value into a value accepted by
// Grid.SetCellValue. A nil result clears the cell.
func (r *Registry) encodeValue(v reflect.Value) (any, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	t := v.Type()
	if t == timeType {
		tm := v.Interface().(time.Time)
		if tm.IsZero() {
			return nil, nil
		}
		return tm, nil
	}
	if e := r.enum(t); e != nil {
		return e.nameOf(v), nil
	}

	var m encoding.TextMarshaler
	if t.Implements(textMarshalerType) {
		m = v.Interface().(encoding.TextMarshaler)
	} else if v.CanAddr() && reflect.PointerTo(t).Implements(textMarshalerType) {
		m = v.Addr().Interface().(encoding.TextMarshaler)
	}
	if m != nil {
		text, err := m.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", t, err)
		}
		return string(text), nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return nil, nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}

	if v.Kind() == reflect.String {
		return v.String(), nil
	}
	return fmt.Sprint(v.Interface()), nil
}
