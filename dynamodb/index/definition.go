// Package index describes how an entity maps its attributes onto the
// physical partition and sort key fields of a table or GSI.
package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/keys"
)

// Kind decides how member entities of a collection lay out their sort keys.
type Kind string

const (
	// KindIsolated gives every entity its own contiguous sort key sub-range
	// inside the collection. It is the default.
	KindIsolated Kind = "isolated"
	// KindClustered interleaves all members in one sort key space ordered by
	// the sort key attributes, so a range spans every member.
	KindClustered Kind = "clustered"
)

func (k Kind) Validate() error {
	switch k {
	case "", KindIsolated, KindClustered:
		return nil
	}
	return fmt.Errorf("unknown index kind %q", k)
}

// Normalize maps the zero Kind to KindIsolated.
func (k Kind) Normalize() Kind {
	if k == "" {
		return KindIsolated
	}
	return k
}

// Key binds a physical key field to the attributes composing its value.
type Key struct {
	// Field is the physical attribute name, e.g. "pk" or "gsi1sk".
	Field string
	// Composite lists the attributes rendered into the key, in order.
	Composite keys.Template
}

// Definition is one access pattern of an entity.
//
// Example:
//
//	index.Definition{
//	    Name:       "byOffice",
//	    Index:      "gsi1",
//	    PK:         index.Key{Field: "gsi1pk", Composite: keys.Template{"office"}},
//	    SK:         index.Key{Field: "gsi1sk", Composite: keys.Template{"team", "title"}},
//	    Kind:       index.KindClustered,
//	    Collection: "workplaces",
//	}
type Definition struct {
	// Name is the logical access pattern name, unique within an entity.
	Name string
	// Index is the GSI name. Empty selects the table's primary key.
	Index string
	PK    Key
	// SK is optional for indexes without a collection.
	SK   Key
	Kind Kind
	// Collection groups this index with other entities' indexes sharing the
	// same physical identity. Empty means the index is never interleaved.
	Collection string
	Casing     keys.Casing
}

// ErrInvalidDefinition is returned for malformed index definitions.
var ErrInvalidDefinition = errors.New("invalid index definition")

// Validate checks d against the attributes c of the owning entity.
func (d Definition) Validate(c *attr.Catalog) error {
	if err := d.validate(c); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidDefinition, d.Name, err)
	}
	return nil
}

func (d Definition) validate(c *attr.Catalog) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.PK.Field == "" {
		return fmt.Errorf("partition key field is required")
	}
	if len(d.PK.Composite) == 0 {
		return fmt.Errorf("partition key composite must list at least one attribute")
	}
	if err := d.PK.Composite.Validate(c); err != nil {
		return fmt.Errorf("partition key: %w", err)
	}
	if d.SK.Field == "" {
		if len(d.SK.Composite) > 0 {
			return fmt.Errorf("sort key composite given without a sort key field")
		}
		if d.Collection != "" {
			return fmt.Errorf("collection %q requires a sort key field", d.Collection)
		}
	} else {
		if strings.ContainsAny(d.Collection, attr.Delimiter+VersionSeparator) {
			return fmt.Errorf("collection %q may not contain %q or %q", d.Collection, attr.Delimiter, VersionSeparator)
		}
		if d.SK.Field == d.PK.Field {
			return fmt.Errorf("partition and sort key share field %q", d.PK.Field)
		}
		if err := d.SK.Composite.Validate(c); err != nil {
			return fmt.Errorf("sort key: %w", err)
		}
	}
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	return d.Casing.Validate()
}

// HasSortKey reports whether the index has a sort key field.
func (d Definition) HasSortKey() bool {
	return d.SK.Field != ""
}

// Identity is the physical identity of an index. Two definitions with equal
// identities read and write the same key fields.
type Identity struct {
	Index   string
	PKField string
	SKField string
}

func (id Identity) String() string {
	name := id.Index
	if name == "" {
		name = "table"
	}
	return fmt.Sprintf("%s(%s,%s)", name, id.PKField, id.SKField)
}

func (d Definition) Identity() Identity {
	return Identity{Index: d.Index, PKField: d.PK.Field, SKField: d.SK.Field}
}
