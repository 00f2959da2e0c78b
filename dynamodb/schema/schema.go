// Package schema reads service definitions from YAML. A definition names one
// table, its GSIs and the entities sharing it; Build turns it into a
// model.Service.
package schema

// Schema is the root of a definition file.
type Schema struct {
	Service string `yaml:"service" validate:"required"`
	Table   Table  `yaml:"table"`
	// Consistency is "partition" (default) or "partitionAndSort".
	Consistency string   `yaml:"consistency,omitempty" validate:"omitempty,oneof=partition partitionAndSort"`
	Entities    []Entity `yaml:"entities" validate:"required,min=1,dive"`
}

// Table describes the physical table the service lives in.
type Table struct {
	Name         string  `yaml:"name" validate:"required"`
	PartitionKey KeyDef  `yaml:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty"`
	GSIs         []GSI   `yaml:"gsis,omitempty" validate:"dive"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind,omitempty" validate:"omitempty,oneof=S N B"` // defaults to "S"
}

// GSI describes a Global Secondary Index.
type GSI struct {
	Name         string  `yaml:"name" validate:"required"`
	PartitionKey KeyDef  `yaml:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty"`
}

// Entity describes an entity type stored in the table.
type Entity struct {
	Name       string      `yaml:"name" validate:"required"`
	Version    string      `yaml:"version,omitempty"`
	Attributes []Attribute `yaml:"attributes" validate:"required,min=1,dive"`
	Indexes    []Index     `yaml:"indexes" validate:"required,min=1,dive"`
}

type Attribute struct {
	Name    string   `yaml:"name" validate:"required"`
	Type    string   `yaml:"type" validate:"required,oneof=string number boolean enum"`
	Padding *Padding `yaml:"padding,omitempty"`
	Enum    []string `yaml:"enum,omitempty" validate:"required_if=Type enum"`
}

type Padding struct {
	Char   string `yaml:"char" validate:"required"`
	Length int    `yaml:"length" validate:"required,gt=0"`
}

// Index maps an entity onto the table or one of its GSIs.
type Index struct {
	Name string `yaml:"name" validate:"required"`
	// Index is the GSI name; empty for the table.
	Index        string    `yaml:"index,omitempty"`
	Collection   string    `yaml:"collection,omitempty"`
	Kind         string    `yaml:"kind,omitempty" validate:"omitempty,oneof=isolated clustered"`
	Casing       string    `yaml:"casing,omitempty" validate:"omitempty,oneof=lower upper none"`
	PartitionKey IndexKey  `yaml:"partitionKey"`
	SortKey      *IndexKey `yaml:"sortKey,omitempty"`
}

// IndexKey names the stored key field and the attributes composed into it.
type IndexKey struct {
	Field     string   `yaml:"field" validate:"required"`
	Composite []string `yaml:"composite,omitempty"`
}
