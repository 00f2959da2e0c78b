package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acksell/colldb/dynamodb/attr"
)

var (
	ErrInvalidEntity                   = errors.New("invalid entity")
	ErrInconsistentAttributeDefinition = errors.New("inconsistent attribute definition")
	ErrInconsistentIndexDefinition     = errors.New("inconsistent index definition")
	ErrUnknownIndex                    = errors.New("unknown index")
	ErrUnknownCollection               = errors.New("unknown collection")
	ErrDuplicateEntity                 = errors.New("duplicate entity")
	ErrServiceMismatch                 = errors.New("entity belongs to another service")
	ErrUnknownEntity                   = errors.New("item does not belong to a known entity")
	ErrTooManyPages                    = errors.New("query exceeded page limit")
	ErrTableMismatch                   = errors.New("index does not match table definition")
)

// AttributeMismatch is one attribute whose key formation differs from the
// first collection member that defined it.
type AttributeMismatch struct {
	Attribute  string
	Collection string
	// Reference is the entity whose definition was taken as authoritative.
	Reference string
	Kinds     []attr.Mismatch
}

func (m AttributeMismatch) String() string {
	kinds := make([]string, len(m.Kinds))
	for i, k := range m.Kinds {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("attribute %q in collection %q differs from entity %q (%s)",
		m.Attribute, m.Collection, m.Reference, strings.Join(kinds, ", "))
}

// InconsistentAttributeError names the first entity whose partition key
// attributes would render differently from another member of a shared
// collection, with every mismatch found for it.
type InconsistentAttributeError struct {
	Entity     string
	Mismatches []AttributeMismatch
}

func (e *InconsistentAttributeError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("%v on entity %q: %s", ErrInconsistentAttributeDefinition, e.Entity, strings.Join(parts, "; "))
}

func (e *InconsistentAttributeError) Is(target error) bool {
	return target == ErrInconsistentAttributeDefinition
}
