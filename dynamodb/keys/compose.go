// Package keys renders attribute values into composite key strings.
//
// A composite key is a sequence of segments joined by attr.Delimiter, one
// per template attribute, each of the form "<name>_<encoded value>".
package keys

import (
	"fmt"
	"strings"

	"github.com/acksell/colldb/dynamodb/attr"
)

// Template is the ordered list of attribute names forming a key.
type Template []string

// Values maps attribute names to Go values.
type Values map[string]any

// Has reports whether name is present with a non-nil value.
func (v Values) Has(name string) bool {
	x, ok := v[name]
	return ok && x != nil
}

// Merge returns a copy of v overlaid with other.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	for k, x := range v {
		out[k] = x
	}
	for k, x := range other {
		out[k] = x
	}
	return out
}

// Validate checks every template attribute is defined in c and appears once.
func (t Template) Validate(c *attr.Catalog) error {
	seen := make(map[string]struct{}, len(t))
	for _, name := range t {
		if !c.Has(name) {
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("attribute %q repeated in template", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Contains reports whether name is part of the template.
func (t Template) Contains(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

// Compose renders every attribute of t. All attributes are required; the
// error lists each missing one.
func Compose(c *attr.Catalog, t Template, v Values) (string, error) {
	if err := missing(t, v); err != nil {
		return "", err
	}
	s, _, err := ComposePrefix(c, t, v)
	return s, err
}

// ComposePrefix renders the leading contiguous attributes of t present in v
// and returns how many were rendered. Attributes after the first gap are
// ignored even if supplied.
func ComposePrefix(c *attr.Catalog, t Template, v Values) (string, int, error) {
	return composePrefix(c, t, v, false)
}

// ComposeSort renders every attribute of t as a sort key. Each value but the
// last must sort above the delimiter byte by byte; see ComposeSortPrefix.
func ComposeSort(c *attr.Catalog, t Template, v Values) (string, error) {
	if err := missing(t, v); err != nil {
		return "", err
	}
	s, _, err := composePrefix(c, t, v, true)
	return s, err
}

// ComposeSortPrefix is ComposePrefix for sort keys. A value followed by
// another segment may not contain bytes below the delimiter, so a range
// bound ending in "<value>#" orders every key extending that value.
func ComposeSortPrefix(c *attr.Catalog, t Template, v Values) (string, int, error) {
	return composePrefix(c, t, v, true)
}

func missing(t Template, v Values) error {
	var names []string
	for _, name := range t {
		if !v.Has(name) {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return &MissingError{Attributes: names}
	}
	return nil
}

func composePrefix(c *attr.Catalog, t Template, v Values, sorted bool) (string, int, error) {
	var b strings.Builder
	n := 0
	for i, name := range t {
		if !v.Has(name) {
			break
		}
		a, ok := c.Get(name)
		if !ok {
			return "", 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
		}
		enc, err := Encode(a, v[name])
		if err != nil {
			return "", 0, err
		}
		if sorted && i < len(t)-1 {
			if err := checkSortable(a, v[name], enc); err != nil {
				return "", 0, err
			}
		}
		if n > 0 {
			b.WriteString(attr.Delimiter)
		}
		b.WriteString(segment(name, enc))
		n++
	}
	return b.String(), n, nil
}

func checkSortable(a attr.Attribute, v any, enc string) error {
	for i := 0; i < len(enc); i++ {
		if enc[i] < attr.Delimiter[0] {
			return attrErr(a.Name, v, ErrSortsBelowDelimiter,
				fmt.Sprintf("byte %q at offset %d sorts below %q", enc[i], i, attr.Delimiter))
		}
	}
	return nil
}

func segment(name, value string) string {
	return name + "_" + value
}

// Decompose splits a key composed from t back into its encoded values.
// Casing applied after composition is not reversed.
func Decompose(t Template, key string) (map[string]string, error) {
	if len(t) == 0 {
		if key != "" {
			return nil, fmt.Errorf("key %q has segments but template is empty", key)
		}
		return map[string]string{}, nil
	}
	parts := strings.Split(key, attr.Delimiter)
	if len(parts) != len(t) {
		return nil, fmt.Errorf("key %q has %d segments, template has %d", key, len(parts), len(t))
	}
	out := make(map[string]string, len(t))
	for i, name := range t {
		value, ok := strings.CutPrefix(parts[i], name+"_")
		if !ok {
			return nil, fmt.Errorf("segment %q does not belong to attribute %q", parts[i], name)
		}
		out[name] = value
	}
	return out, nil
}
