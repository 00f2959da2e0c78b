// Package ddbstore is a local sorted key-value store backed by BadgerDB that
// serves the physical range reads of model.Store.
package ddbstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/colldb/dynamodb/table"
)

var (
	// ErrUnknownTable is returned for a table the store was not opened with.
	ErrUnknownTable = errors.New("unknown table")
	// ErrMissingKey is returned when an item or cursor lacks a key attribute.
	ErrMissingKey = errors.New("missing key attribute")
)

// Store keeps every table and GSI in one badger keyspace, ordered by
// partition key then sort key.
type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema
}

type tableSchema struct {
	definition table.TableDefinition
	encoder    *keyEncoder
	gsis       map[string]*keyEncoder
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens a store holding the given tables. Composite keys are strings, so
// every key field must be of kind S.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	tables := make(map[string]*tableSchema, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := tables[def.Name]; dup {
			return nil, fmt.Errorf("table %q defined more than once", def.Name)
		}
		if err := stringKeys(def.Name, def.KeyDefinitions); err != nil {
			return nil, err
		}
		schema := &tableSchema{
			definition: def,
			encoder:    newKeyEncoder(def.Name, "", def.KeyDefinitions, nil),
			gsis:       make(map[string]*keyEncoder, len(def.GSIs)),
		}
		for _, gsi := range def.GSIs {
			if err := stringKeys(def.Name+"/"+gsi.Name, gsi.KeyDefinitions); err != nil {
				return nil, err
			}
			base := def.KeyDefinitions
			schema.gsis[gsi.Name] = newKeyEncoder(def.Name, gsi.Name, gsi.KeyDefinitions, &base)
		}
		tables[def.Name] = schema
	}

	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db, tables: tables}, nil
}

func stringKeys(name string, kd table.PrimaryKeyDefinition) error {
	if kd.PartitionKey.Kind != table.KeyKindS {
		return fmt.Errorf("%s: partition key %q must be of kind S", name, kd.PartitionKey.Name)
	}
	if kd.SortKey.Name != "" && kd.SortKey.Kind != table.KeyKindS {
		return fmt.Errorf("%s: sort key %q must be of kind S", name, kd.SortKey.Name)
	}
	return nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(name string) (*tableSchema, error) {
	schema, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}
	return schema, nil
}

// getKeyEncoder picks the encoder of the table, or of one of its GSIs when
// index is set.
func (s *Store) getKeyEncoder(tableName, index string) (*keyEncoder, error) {
	schema, err := s.getTable(tableName)
	if err != nil {
		return nil, err
	}
	if index == "" {
		return schema.encoder, nil
	}
	enc, ok := schema.gsis[index]
	if !ok {
		return nil, fmt.Errorf("%w %q on table %q", table.ErrUnknownIndex, index, tableName)
	}
	return enc, nil
}
