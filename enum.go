package xlbind

import (
	"fmt"
	"reflect"
	"strings"
)

// Enum is an integer-backed named type whose members print their names.
type Enum interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
	fmt.Stringer
}

// enumInfo lists the members of a registered enum type.
type enumInfo struct {
	typ     reflect.Type
	members []reflect.Value
	names   []string
}

// RegisterEnum registers the members of an enum type. Cells bound to fields
// of that type decode from member names (case-insensitive) or from member
// values, and are written as member names.
func RegisterEnum[E Enum](r *Registry, members ...E) error {
	if len(members) == 0 {
		return fmt.Errorf("register enum: no members")
	}
	info := &enumInfo{typ: reflect.TypeOf(members[0])}
	for _, m := range members {
		info.members = append(info.members, reflect.ValueOf(m))
		info.names = append(info.names, m.String())
	}
	r.enums[info.typ] = info
	return nil
}

func (r *Registry) enum(t reflect.Type) *enumInfo {
	return r.enums[t]
}

// byName returns the member whose name equals s, ignoring case.
func (e *enumInfo) byName(s string) (reflect.Value, bool) {
	s = strings.TrimSpace(s)
	for i, name := range e.names {
		if strings.EqualFold(name, s) {
			return e.members[i], true
		}
	}
	return reflect.Value{}, false
}

// byOrdinal returns the member whose underlying value is n.
func (e *enumInfo) byOrdinal(n int64) (reflect.Value, bool) {
	for _, m := range e.members {
		switch m.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if n >= 0 && m.Uint() == uint64(n) {
				return m, true
			}
		default:
			if m.Int() == n {
				return m, true
			}
		}
	}
	return reflect.Value{}, false
}

// nameOf returns the member name of an enum value.
func (e *enumInfo) nameOf(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v.Interface())
}
