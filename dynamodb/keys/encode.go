package keys

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/constraints"

	"github.com/acksell/colldb/dynamodb/attr"
)

// Encode renders v as the key segment value of a.
// The result never contains the delimiter and respects the attribute's padding.
// Padded numbers must be non-negative integers; a float with no fraction is
// accepted.
func Encode(a attr.Attribute, v any) (string, error) {
	s, negative, err := stringify(a, v)
	if err != nil {
		return "", err
	}
	if strings.Contains(s, attr.Delimiter) {
		return "", attrErr(a.Name, v, ErrDelimiterCollision, fmt.Sprintf("value contains %q", attr.Delimiter))
	}
	if a.Padding == nil {
		return s, nil
	}
	if negative {
		return "", attrErr(a.Name, v, ErrInvalidAttributeValue, "negative numbers cannot be padded")
	}
	if a.Type == attr.TypeNumber && strings.Contains(s, ".") {
		return "", attrErr(a.Name, v, ErrInvalidAttributeValue, "padded numbers must be integers")
	}
	n := utf8.RuneCountInString(s)
	if n > a.Padding.Length {
		return "", attrErr(a.Name, v, ErrValueOverflow,
			fmt.Sprintf("%d characters exceeds padding length %d", n, a.Padding.Length))
	}
	return strings.Repeat(a.Padding.Char, a.Padding.Length-n) + s, nil
}

func stringify(a attr.Attribute, v any) (s string, negative bool, err error) {
	switch a.Type {
	case attr.TypeString:
		s, ok := v.(string)
		if !ok {
			return "", false, attrErr(a.Name, v, ErrInvalidAttributeValue, fmt.Sprintf("expected string, got %T", v))
		}
		return s, false, nil
	case attr.TypeEnum:
		s, ok := v.(string)
		if !ok {
			return "", false, attrErr(a.Name, v, ErrInvalidAttributeValue, fmt.Sprintf("expected string, got %T", v))
		}
		if !slices.Contains(a.Enum, s) {
			return "", false, attrErr(a.Name, v, ErrInvalidAttributeValue, fmt.Sprintf("%q is not one of %v", s, a.Enum))
		}
		return s, false, nil
	case attr.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", false, attrErr(a.Name, v, ErrInvalidAttributeValue, fmt.Sprintf("expected bool, got %T", v))
		}
		return strconv.FormatBool(b), false, nil
	case attr.TypeNumber:
		return stringifyNumber(a.Name, v)
	}
	return "", false, attrErr(a.Name, v, ErrInvalidAttributeValue, fmt.Sprintf("unknown attribute type %q", a.Type))
}

func stringifyNumber(name string, v any) (string, bool, error) {
	switch n := v.(type) {
	case int:
		return formatSigned(n)
	case int8:
		return formatSigned(n)
	case int16:
		return formatSigned(n)
	case int32:
		return formatSigned(n)
	case int64:
		return formatSigned(n)
	case uint:
		return formatUnsigned(n)
	case uint8:
		return formatUnsigned(n)
	case uint16:
		return formatUnsigned(n)
	case uint32:
		return formatUnsigned(n)
	case uint64:
		return formatUnsigned(n)
	case float32:
		return formatFloat(name, n, 32)
	case float64:
		return formatFloat(name, n, 64)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return formatSigned(i)
		}
		f, err := n.Float64()
		if err != nil {
			return "", false, attrErr(name, v, ErrInvalidAttributeValue, "not a number")
		}
		return formatFloat(name, f, 64)
	}
	return "", false, attrErr(name, v, ErrInvalidAttributeValue, fmt.Sprintf("expected number, got %T", v))
}

func formatSigned[T constraints.Signed](v T) (string, bool, error) {
	return strconv.FormatInt(int64(v), 10), v < 0, nil
}

func formatUnsigned[T constraints.Unsigned](v T) (string, bool, error) {
	return strconv.FormatUint(uint64(v), 10), false, nil
}

func formatFloat[T constraints.Float](name string, v T, bits int) (string, bool, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false, attrErr(name, v, ErrInvalidAttributeValue, "number must be finite")
	}
	return strconv.FormatFloat(f, 'f', -1, bits), f < 0, nil
}

// ParseValue converts the textual form s into the Go value Encode expects for a.
// It is used where values arrive untyped, such as command line flags.
func ParseValue(a attr.Attribute, s string) (any, error) {
	switch a.Type {
	case attr.TypeNumber:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, attrErr(a.Name, s, ErrInvalidAttributeValue, "not a number")
		}
		return f, nil
	case attr.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, attrErr(a.Name, s, ErrInvalidAttributeValue, "not a boolean")
		}
		return b, nil
	}
	return s, nil
}
