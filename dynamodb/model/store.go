package model

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/acksell/colldb/dynamodb/query"
)

// Item is a raw stored item.
type Item = map[string]types.AttributeValue

// Cursor is the store's last evaluated key. It is opaque to callers; a nil
// cursor means the result set is complete.
type Cursor = map[string]types.AttributeValue

// StoreQuery is one physical range read on a partition.
type StoreQuery struct {
	Table string
	// Index is the GSI name, empty for the table itself.
	Index             string
	PartitionKeyField string
	PartitionKey      string
	SortKeyField      string
	// SortKey is nil to read the whole partition.
	SortKey    *query.SortKeyCondition
	Limit      int32
	Cursor     Cursor
	Descending bool
}

// StorePage is one page of results in sort key order.
type StorePage struct {
	Items  []Item
	Cursor Cursor
}

// Store executes physical range reads. Implementations must return items in
// sort key order and a nil cursor once the range is exhausted.
type Store interface {
	Query(ctx context.Context, q *StoreQuery) (*StorePage, error)
}
