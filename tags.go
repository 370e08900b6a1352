package xlbind

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagKey = "xl"

// scanTags builds the declared bindings of a struct type from its `xl` tags.
//
//	Name string    `xl:"Customer Name"`
//	Total float64  `xl:"Total,index=4,format='#,##0.00'"`
//	Day time.Time  `xl:",numfmt=14,lastnonblank"`
//	Secret string  `xl:"-"`
func scanTags(t reflect.Type) ([]*Binding, error) {
	var out []*Binding
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		tag, ok := sf.Tag.Lookup(tagKey)
		if !ok {
			continue
		}
		b, err := parseTag(tag, FieldKey{Type: t, Name: sf.Name})
		if err != nil {
			return nil, fmt.Errorf("parse tag of %s.%s: %w", t.Name(), sf.Name, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// parseTag parses one `xl` tag value into a binding.
func parseTag(tag string, key FieldKey) (*Binding, error) {
	b := NewBinding(key)
	if strings.TrimSpace(tag) == "-" {
		ignored := true
		b.Ignored = &ignored
		return b, nil
	}

	items, err := splitTagItems(tag)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		k, v, hasValue := strings.Cut(item, "=")
		k = strings.TrimSpace(k)
		if !hasValue {
			switch strings.ToLower(k) {
			case "ignore":
				ignored := true
				b.Ignored = &ignored
				continue
			case "lastnonblank":
				last := true
				b.UseLastNonBlank = &last
				continue
			}
			if i == 0 {
				b.Name = unquote(strings.TrimSpace(item))
				continue
			}
			return nil, fmt.Errorf("unknown flag %q", k)
		}

		v = unquote(strings.TrimSpace(v))
		switch strings.ToLower(k) {
		case "name":
			b.Name = v
		case "index":
			idx, err := strconv.Atoi(v)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid index %q", v)
			}
			b.Index = idx
		case "format":
			b.Format = v
		case "numfmt":
			id, err := strconv.Atoi(v)
			if err != nil || id < 0 {
				return nil, fmt.Errorf("invalid numfmt %q", v)
			}
			b.BuiltinFormat = id
		case "resolver":
			b.Resolver = v
		case "display":
			b.Display = v
		case "ignore", "lastnonblank":
			flag, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value %q", k, v)
			}
			if strings.EqualFold(k, "ignore") {
				b.Ignored = &flag
			} else {
				b.UseLastNonBlank = &flag
			}
		default:
			return nil, fmt.Errorf("unknown attribute %q", k)
		}
	}
	return b, nil
}

// splitTagItems splits a tag on commas outside quotes.
func splitTagItems(tag string) ([]string, error) {
	var items []string
	var cur strings.Builder
	var quote rune
	for _, r := range tag {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case isQuote(r):
			quote = r
			cur.WriteRune(r)
		case r == ',':
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in %q", tag)
	}
	return append(items, cur.String()), nil
}

// isQuote checks if a rune is a recognized quote character.
func isQuote(r rune) bool {
	return r == '"' || r == '\''
}

func unquote(s string) string {
	if len(s) >= 2 && isQuote(rune(s[0])) && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
