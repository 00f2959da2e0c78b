package ddbstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/acksell/colldb/dynamodb/model"
)

// Query reads one partition of a table or GSI in sort key order. The
// returned cursor is the key of the last item and is only set when at least
// one more matching item exists.
func (s *Store) Query(ctx context.Context, q *model.StoreQuery) (*model.StorePage, error) {
	if q == nil {
		return nil, fmt.Errorf("query is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := s.getKeyEncoder(q.Table, q.Index)
	if err != nil {
		return nil, err
	}
	if q.PartitionKeyField != enc.keys.PartitionKey.Name {
		return nil, fmt.Errorf("partition key field %q, index defines %q", q.PartitionKeyField, enc.keys.PartitionKey.Name)
	}
	if q.SortKey != nil && q.SortKeyField != enc.keys.SortKey.Name {
		return nil, fmt.Errorf("sort key field %q, index defines %q", q.SortKeyField, enc.keys.SortKey.Name)
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", q.Limit)
	}

	prefix := enc.partitionPrefix(q.PartitionKey)
	start := seekStart(prefix, q.SortKey, q.Descending)
	var after []byte
	if q.Cursor != nil {
		after, err = enc.encodeKey(q.Cursor)
		if err != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
		start = after
	}

	page := &model.StorePage{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = q.Descending
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		var last model.Item
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()
			if after != nil && bytes.Equal(key, after) {
				continue
			}
			if q.SortKey != nil {
				sk, err := decodeSortKey(key[len(prefix):])
				if err != nil {
					return err
				}
				if exhausted(q.SortKey, sk, q.Descending) {
					break
				}
				if !q.SortKey.Match(sk) {
					continue
				}
			}
			if q.Limit > 0 && len(page.Items) == int(q.Limit) {
				cursor, err := enc.cursor(last)
				if err != nil {
					return fmt.Errorf("build cursor: %w", err)
				}
				page.Cursor = cursor
				break
			}

			var item model.Item
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = DeserializeItem(val)
				return err
			}); err != nil {
				return err
			}
			page.Items = append(page.Items, item)
			last = item
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
