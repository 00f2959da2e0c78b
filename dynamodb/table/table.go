// Package table describes the physical layout of a table: its primary key
// fields and the key fields of its GSIs.
package table

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrUnknownIndex is returned when a GSI name is not defined on a table.
var ErrUnknownIndex = errors.New("unknown index")

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	TimeToLiveKey  string
	GSIs           []GSIDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
}

// Validate checks names are set and GSI names are unique.
func (t TableDefinition) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if err := t.KeyDefinitions.validate(); err != nil {
		return fmt.Errorf("table %q: %w", t.Name, err)
	}
	seen := make(map[string]struct{}, len(t.GSIs))
	for _, gsi := range t.GSIs {
		if gsi.Name == "" {
			return fmt.Errorf("table %q: GSI name is required", t.Name)
		}
		if _, dup := seen[gsi.Name]; dup {
			return fmt.Errorf("table %q: GSI %q defined more than once", t.Name, gsi.Name)
		}
		seen[gsi.Name] = struct{}{}
		if err := gsi.KeyDefinitions.validate(); err != nil {
			return fmt.Errorf("table %q GSI %q: %w", t.Name, gsi.Name, err)
		}
	}
	return nil
}

// Keys returns the key definition of the named GSI, or of the table itself
// when name is empty.
func (t TableDefinition) Keys(name string) (PrimaryKeyDefinition, error) {
	if name == "" {
		return t.KeyDefinitions, nil
	}
	for _, gsi := range t.GSIs {
		if gsi.Name == name {
			return gsi.KeyDefinitions, nil
		}
	}
	return PrimaryKeyDefinition{}, fmt.Errorf("%w %q on table %q", ErrUnknownIndex, name, t.Name)
}

// ExtractPrimaryKey extracts the primary key values from a document.
func (g GSIDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return g.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (k PrimaryKeyDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	part, ok := doc[k.PartitionKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("partition key %q not found", k.PartitionKey.Name)
	}
	if err := attributeMatchesDefinition(k.PartitionKey.Kind, part); err != nil {
		return PrimaryKey{}, fmt.Errorf("document key %q kind does not match definition: %w", k.PartitionKey.Name, err)
	}
	pk := PrimaryKey{
		Definition: k,
		Values: PrimaryKeyValues{
			PartitionKey: keyValueFromAV(part),
		},
	}
	if k.SortKey.Name == "" {
		return pk, nil
	}
	sort, ok := doc[k.SortKey.Name]
	if !ok {
		return PrimaryKey{}, fmt.Errorf("sort key %q not found on document", k.SortKey.Name)
	}
	if err := attributeMatchesDefinition(k.SortKey.Kind, sort); err != nil {
		return PrimaryKey{}, fmt.Errorf("sort key %q kind does not match definition: %w", k.SortKey.Name, err)
	}
	pk.Values.SortKey = keyValueFromAV(sort)
	return pk, nil
}

// keyValueFromAV assumes av already passed attributeMatchesDefinition.
func keyValueFromAV(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return v.Value
	}
	return nil
}
