// Package attr defines the attributes an entity may use to form keys.
//
// An attribute's Type and Padding decide how its values are rendered inside
// a composite key, so two entities that share a key must agree on them.
package attr

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Delimiter separates segments of a composite key. It may not appear inside
// attribute names or encoded values.
const Delimiter = "#"

// Type is the scalar type of an attribute value.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeEnum    Type = "enum"
)

// Valid reports whether t is a known attribute type.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeEnum:
		return true
	}
	return false
}

// Padding left-pads an encoded value with Char up to Length characters.
//
// Padding numbers makes their string form sort numerically:
// with Length 2, 5 renders as "05" and sorts before "12". Only non-negative
// integers can be padded.
type Padding struct {
	Char   string
	Length int
}

func (p Padding) validate() error {
	if p.Length <= 0 {
		return fmt.Errorf("padding length must be positive, got %d", p.Length)
	}
	if utf8.RuneCountInString(p.Char) != 1 {
		return fmt.Errorf("padding char must be a single character, got %q", p.Char)
	}
	if p.Char == Delimiter {
		return fmt.Errorf("padding char cannot be the key delimiter %q", Delimiter)
	}
	return nil
}

// Attribute is a single named, typed value an entity stores.
type Attribute struct {
	Name    string
	Type    Type
	Padding *Padding
	// Enum lists the allowed values when Type is TypeEnum.
	Enum []string
}

// ErrInvalidAttribute is returned for malformed attribute definitions.
var ErrInvalidAttribute = errors.New("invalid attribute definition")

// Validate checks the attribute definition itself, independent of any entity.
func (a Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAttribute)
	}
	if strings.Contains(a.Name, Delimiter) {
		return fmt.Errorf("%w: name %q contains the key delimiter %q", ErrInvalidAttribute, a.Name, Delimiter)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: attribute %q has unknown type %q", ErrInvalidAttribute, a.Name, a.Type)
	}
	if a.Padding != nil {
		if err := a.Padding.validate(); err != nil {
			return fmt.Errorf("%w: attribute %q: %v", ErrInvalidAttribute, a.Name, err)
		}
	}
	if a.Type == TypeEnum {
		if len(a.Enum) == 0 {
			return fmt.Errorf("%w: enum attribute %q has no values", ErrInvalidAttribute, a.Name)
		}
		for _, v := range a.Enum {
			if strings.Contains(v, Delimiter) {
				return fmt.Errorf("%w: enum attribute %q value %q contains the key delimiter", ErrInvalidAttribute, a.Name, v)
			}
		}
	} else if len(a.Enum) > 0 {
		return fmt.Errorf("%w: attribute %q lists enum values but has type %q", ErrInvalidAttribute, a.Name, a.Type)
	}
	return nil
}

// Mismatch names one way two attribute definitions disagree on key formation.
type Mismatch string

const (
	MismatchType            Mismatch = "type"
	MismatchPaddingPresence Mismatch = "padding present/absent"
	MismatchPaddingChar     Mismatch = "padding char"
	MismatchPaddingLength   Mismatch = "padding length"
)

// Compare returns every way a and b would render the same value differently.
// A nil result means both produce identical key segments.
func Compare(a, b Attribute) []Mismatch {
	var out []Mismatch
	if a.Type != b.Type {
		out = append(out, MismatchType)
	}
	switch {
	case (a.Padding == nil) != (b.Padding == nil):
		out = append(out, MismatchPaddingPresence)
	case a.Padding != nil:
		if a.Padding.Char != b.Padding.Char {
			out = append(out, MismatchPaddingChar)
		}
		if a.Padding.Length != b.Padding.Length {
			out = append(out, MismatchPaddingLength)
		}
	}
	return out
}
