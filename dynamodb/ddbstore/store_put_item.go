package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/colldb/dynamodb/model"
)

// PutItem creates or replaces an item, keeping every GSI of the table in
// step. GSIs are sparse: an item is only written to a GSI when it carries
// all of that GSI's key attributes.
func (s *Store) PutItem(ctx context.Context, tableName string, item model.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item is required")
	}
	tabl, err := s.getTable(tableName)
	if err != nil {
		return err
	}
	key, err := tabl.encoder.encodeKey(item)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	itemBytes, err := SerializeItem(item)
	if err != nil {
		return fmt.Errorf("serialize item: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var oldItem model.Item
		existing, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := existing.Value(func(val []byte) error {
				oldItem, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}
		}

		if err := txn.Set(key, itemBytes); err != nil {
			return err
		}
		for name, gsi := range tabl.gsis {
			if err := updateGSI(txn, gsi, item, oldItem, itemBytes); err != nil {
				return fmt.Errorf("update GSI %s: %w", name, err)
			}
		}
		return nil
	})
}

// updateGSI replaces the GSI entry of oldItem with the one of newItem.
func updateGSI(txn *badger.Txn, gsi *keyEncoder, newItem, oldItem model.Item, itemBytes []byte) error {
	if oldItem != nil && gsi.hasKeys(oldItem) {
		oldKey, err := gsi.encodeKey(oldItem)
		if err != nil {
			return fmt.Errorf("encode old key: %w", err)
		}
		if err := txn.Delete(oldKey); err != nil {
			return err
		}
	}
	if !gsi.hasKeys(newItem) {
		return nil
	}
	newKey, err := gsi.encodeKey(newItem)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	// GSIs store the full item
	return txn.Set(newKey, itemBytes)
}
