package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSchema wraps every structural problem in a definition file.
var ErrInvalidSchema = errors.New("invalid schema")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates the definition file at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a definition. Unknown fields are errors.
func Parse(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidSchema)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks struct tags, then that entities and GSIs are unique and
// every index refers to a GSI of the table.
func (s *Schema) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("field %s failed rule %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return s.validateSemantics()
}

func (s *Schema) validateSemantics() error {
	gsis := make(map[string]bool, len(s.Table.GSIs))
	for _, gsi := range s.Table.GSIs {
		if gsis[gsi.Name] {
			return fmt.Errorf("%w: GSI %q defined more than once", ErrInvalidSchema, gsi.Name)
		}
		gsis[gsi.Name] = true
	}
	entities := make(map[string]bool, len(s.Entities))
	for _, e := range s.Entities {
		if entities[e.Name] {
			return fmt.Errorf("%w: entity %q defined more than once", ErrInvalidSchema, e.Name)
		}
		entities[e.Name] = true
		for _, idx := range e.Indexes {
			if idx.Index != "" && !gsis[idx.Index] {
				return fmt.Errorf("%w: entity %q index %q uses GSI %q, which table %q does not define",
					ErrInvalidSchema, e.Name, idx.Name, idx.Index, s.Table.Name)
			}
		}
	}
	return nil
}
