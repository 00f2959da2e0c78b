package model

import (
	"fmt"

	"github.com/acksell/colldb/dynamodb/table"
)

// CheckTable verifies every index of entities reads key fields that def
// actually defines, as string keys.
func CheckTable(def table.TableDefinition, entities ...*Entity) error {
	if err := def.Validate(); err != nil {
		return err
	}
	for _, e := range entities {
		if e.Table() != "" && e.Table() != def.Name {
			return fmt.Errorf("%w: entity %q targets table %q, not %q", ErrTableMismatch, e.Name(), e.Table(), def.Name)
		}
		for _, d := range e.Indexes() {
			kd, err := def.Keys(d.Index)
			if err != nil {
				return fmt.Errorf("%w: entity %q index %q: %w", ErrTableMismatch, e.Name(), d.Name, err)
			}
			if err := checkKey("partition", d.PK.Field, kd.PartitionKey); err != nil {
				return fmt.Errorf("%w: entity %q index %q: %w", ErrTableMismatch, e.Name(), d.Name, err)
			}
			if d.SK.Field == "" && kd.SortKey.Name == "" {
				continue
			}
			if err := checkKey("sort", d.SK.Field, kd.SortKey); err != nil {
				return fmt.Errorf("%w: entity %q index %q: %w", ErrTableMismatch, e.Name(), d.Name, err)
			}
		}
	}
	return nil
}

func checkKey(role, field string, kd table.KeyDef) error {
	if field != kd.Name {
		return fmt.Errorf("%s key field %q, table defines %q", role, field, kd.Name)
	}
	if kd.Kind != table.KeyKindS {
		return fmt.Errorf("%s key %q has kind %q, composite keys need %q", role, kd.Name, kd.Kind, table.KeyKindS)
	}
	return nil
}
