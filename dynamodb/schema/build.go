package schema

import (
	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/table"
)

// TableDefinition is the physical table the schema describes.
func (s *Schema) TableDefinition() table.TableDefinition {
	def := table.TableDefinition{
		Name: s.Table.Name,
		KeyDefinitions: table.PrimaryKeyDefinition{
			PartitionKey: s.Table.PartitionKey.definition(),
			SortKey:      s.Table.SortKey.definitionOrZero(),
		},
	}
	for _, gsi := range s.Table.GSIs {
		def.GSIs = append(def.GSIs, table.GSIDefinition{
			Name: gsi.Name,
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: gsi.PartitionKey.definition(),
				SortKey:      gsi.SortKey.definitionOrZero(),
			},
		})
	}
	return def
}

func (k KeyDef) definition() table.KeyDef {
	kind := table.KeyKind(k.Kind)
	if kind == "" {
		kind = table.KeyKindS
	}
	return table.KeyDef{Name: k.Name, Kind: kind}
}

func (k *KeyDef) definitionOrZero() table.KeyDef {
	if k == nil {
		return table.KeyDef{}
	}
	return k.definition()
}

// Scope is the consistency scope the schema asks for.
func (s *Schema) Scope() model.ConsistencyScope {
	if s.Consistency == "partitionAndSort" {
		return model.PartitionAndSortKey
	}
	return model.PartitionKeyOnly
}

// Build defines every entity, assembles the service and checks the entities
// against the table definition. opts apply to entities and the service.
func (s *Schema) Build(opts ...model.Option) (*model.Service, error) {
	entities := make([]*model.Entity, 0, len(s.Entities))
	for _, e := range s.Entities {
		entity, err := model.DefineEntity(e.definition(s.Service, s.Table.Name), opts...)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := model.CheckTable(s.TableDefinition(), entities...); err != nil {
		return nil, err
	}
	svcOpts := append([]model.Option{model.WithConsistencyScope(s.Scope())}, opts...)
	return model.DefineService(s.Service, entities, svcOpts...)
}

func (e Entity) definition(service, tableName string) model.EntityDefinition {
	def := model.EntityDefinition{
		Service: service,
		Name:    e.Name,
		Version: e.Version,
		Table:   tableName,
	}
	for _, a := range e.Attributes {
		at := attr.Attribute{
			Name: a.Name,
			Type: attr.Type(a.Type),
			Enum: a.Enum,
		}
		if a.Padding != nil {
			at.Padding = &attr.Padding{Char: a.Padding.Char, Length: a.Padding.Length}
		}
		def.Attributes = append(def.Attributes, at)
	}
	for _, idx := range e.Indexes {
		d := index.Definition{
			Name:       idx.Name,
			Index:      idx.Index,
			Collection: idx.Collection,
			Kind:       index.Kind(idx.Kind),
			Casing:     keys.Casing(idx.Casing),
			PK:         index.Key{Field: idx.PartitionKey.Field, Composite: keys.Template(idx.PartitionKey.Composite)},
		}
		if idx.SortKey != nil {
			d.SK = index.Key{Field: idx.SortKey.Field, Composite: keys.Template(idx.SortKey.Composite)}
		}
		def.Indexes = append(def.Indexes, d)
	}
	return def
}
