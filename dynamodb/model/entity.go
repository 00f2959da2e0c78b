package model

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
)

const (
	// TypeField holds the owning entity's name on every written item.
	TypeField = "_type"
	// VersionField holds the owning entity's version on every written item.
	VersionField = "_version"

	defaultVersion = "1"
)

// EntityDefinition declares an entity. Indexes are kept in the given order.
//
// Example:
//
//	model.EntityDefinition{
//	    Service: "taskapp",
//	    Name:    "employee",
//	    Table:   "electro",
//	    Attributes: []attr.Attribute{
//	        {Name: "office", Type: attr.TypeString},
//	        {Name: "team", Type: attr.TypeString},
//	    },
//	    Indexes: []index.Definition{{
//	        Name:       "workplaces",
//	        PK:         index.Key{Field: "pk", Composite: keys.Template{"office"}},
//	        SK:         index.Key{Field: "sk", Composite: keys.Template{"team"}},
//	        Collection: "office",
//	    }},
//	}
type EntityDefinition struct {
	Service string
	Name    string
	// Version defaults to "1".
	Version    string
	Table      string
	Attributes []attr.Attribute
	Indexes    []index.Definition
}

// Entity is an immutable, validated entity definition.
type Entity struct {
	service string
	name    string
	version string
	table   string
	catalog *attr.Catalog
	indexes map[string]index.Definition
	order   []string
	// keyAttrs are the attributes rendered into at least one key.
	keyAttrs map[string]struct{}
	s        settings
}

// DefineEntity validates def and returns the entity.
func DefineEntity(def EntityDefinition, opts ...Option) (*Entity, error) {
	e, err := defineEntity(def, opts)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidEntity, def.Name, err)
	}
	return e, nil
}

func defineEntity(def EntityDefinition, opts []Option) (*Entity, error) {
	if def.Version == "" {
		def.Version = defaultVersion
	}
	for _, f := range [][2]string{{"service", def.Service}, {"name", def.Name}, {"version", def.Version}} {
		if f[1] == "" {
			return nil, fmt.Errorf("%s is required", f[0])
		}
		if strings.Contains(f[1], attr.Delimiter) {
			return nil, fmt.Errorf("%s %q contains the key delimiter %q", f[0], f[1], attr.Delimiter)
		}
	}
	if strings.Contains(def.Version, index.VersionSeparator) {
		return nil, fmt.Errorf("version %q contains %q", def.Version, index.VersionSeparator)
	}
	if len(def.Indexes) == 0 {
		return nil, fmt.Errorf("at least one index is required")
	}

	catalog, err := attr.NewCatalog(def.Attributes...)
	if err != nil {
		return nil, err
	}

	e := &Entity{
		service:  def.Service,
		name:     def.Name,
		version:  def.Version,
		table:    def.Table,
		catalog:  catalog,
		indexes:  make(map[string]index.Definition, len(def.Indexes)),
		keyAttrs: make(map[string]struct{}),
		s:        newSettings(opts),
	}
	identities := make(map[index.Identity]string, len(def.Indexes))
	hasTableIndex := false
	for _, d := range def.Indexes {
		if err := d.Validate(catalog); err != nil {
			return nil, err
		}
		if _, dup := e.indexes[d.Name]; dup {
			return nil, fmt.Errorf("index %q defined more than once", d.Name)
		}
		if other, dup := identities[d.Identity()]; dup {
			return nil, fmt.Errorf("indexes %q and %q both use %s", other, d.Name, d.Identity())
		}
		identities[d.Identity()] = d.Name
		hasTableIndex = hasTableIndex || d.Index == ""
		d.PK.Composite = append(keys.Template(nil), d.PK.Composite...)
		d.SK.Composite = append(keys.Template(nil), d.SK.Composite...)
		for _, name := range d.PK.Composite {
			e.keyAttrs[name] = struct{}{}
		}
		for _, name := range d.SK.Composite {
			e.keyAttrs[name] = struct{}{}
		}
		e.indexes[d.Name] = d
		e.order = append(e.order, d.Name)
	}
	if !hasTableIndex {
		return nil, fmt.Errorf("an index on the table's primary key is required")
	}
	return e, nil
}

func (e *Entity) Name() string           { return e.name }
func (e *Entity) Service() string        { return e.service }
func (e *Entity) Version() string        { return e.version }
func (e *Entity) Table() string          { return e.table }
func (e *Entity) Catalog() *attr.Catalog { return e.catalog }

// Owner returns the key prefixes identifying this entity.
func (e *Entity) Owner() index.Owner {
	return index.Owner{Service: e.service, Entity: e.name, Version: e.version}
}

// Index returns the named index definition.
func (e *Entity) Index(name string) (index.Definition, error) {
	d, ok := e.indexes[name]
	if !ok {
		return index.Definition{}, fmt.Errorf("%w %q on entity %q", ErrUnknownIndex, name, e.name)
	}
	return d, nil
}

// Indexes returns the entity's index definitions in declaration order.
func (e *Entity) Indexes() []index.Definition {
	out := make([]index.Definition, len(e.order))
	for i, name := range e.order {
		out[i] = e.indexes[name]
	}
	return out
}

// Keys composes the key fields of every index the values populate.
//
// The table index must be fully populated. A GSI whose attributes are not all
// present is skipped, leaving the item out of that index.
func (e *Entity) Keys(v keys.Values) (map[string]string, error) {
	out := make(map[string]string)
	for _, d := range e.Indexes() {
		if d.Index != "" && !populates(d, v) {
			continue
		}
		pk, err := d.PartitionKey(e.catalog, e.Owner(), v)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.name, err)
		}
		out[d.PK.Field] = pk
		if !d.HasSortKey() {
			continue
		}
		sk, err := d.SortKey(e.catalog, e.Owner(), v)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.name, err)
		}
		out[d.SK.Field] = sk
	}
	return out, nil
}

func populates(d index.Definition, v keys.Values) bool {
	for _, name := range d.PK.Composite {
		if !v.Has(name) {
			return false
		}
	}
	for _, name := range d.SK.Composite {
		if !v.Has(name) {
			return false
		}
	}
	return true
}

// Item renders v as a storable item: attribute values, composed key fields
// and the identity tags read back by IdentifyByTag.
func (e *Entity) Item(v keys.Values) (Item, error) {
	attrs := make(map[string]any, len(v))
	for name, x := range v {
		if x == nil {
			continue
		}
		a, ok := e.catalog.Get(name)
		if !ok {
			return nil, fmt.Errorf("entity %q: %w: %q", e.name, keys.ErrUnknownAttribute, name)
		}
		if _, isKey := e.keyAttrs[name]; isKey {
			if _, err := keys.Encode(a, x); err != nil {
				return nil, fmt.Errorf("entity %q: %w", e.name, err)
			}
		}
		attrs[name] = x
	}
	item, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		return nil, fmt.Errorf("entity %q: marshal item: %w", e.name, err)
	}
	ks, err := e.Keys(v)
	if err != nil {
		return nil, err
	}
	for field, key := range ks {
		if _, clash := item[field]; clash {
			return nil, fmt.Errorf("entity %q: key field %q collides with an attribute", e.name, field)
		}
		item[field] = &types.AttributeValueMemberS{Value: key}
	}
	item[TypeField] = &types.AttributeValueMemberS{Value: e.name}
	item[VersionField] = &types.AttributeValueMemberS{Value: e.version}
	return item, nil
}

// Query starts a read of one of the entity's indexes. The values must cover
// the index's partition key and may lead into its sort key.
func (e *Entity) Query(indexName string, v keys.Values) *EntityQuery {
	return newEntityQuery(e, indexName, v)
}
