package ddbstore

import (
	"strings"

	"github.com/acksell/colldb/dynamodb/query"
)

// seekStart is the first key an iterator over prefix needs to visit for cond.
func seekStart(prefix []byte, cond *query.SortKeyCondition, descending bool) []byte {
	end := append(append([]byte(nil), prefix...), keyCeiling)
	if cond == nil {
		if descending {
			return end
		}
		return prefix
	}
	if !descending {
		switch cond.Op {
		case query.SortLt, query.SortLte:
			return prefix
		}
		return sortBound(prefix, cond.Value)
	}
	switch cond.Op {
	case query.SortGt, query.SortGte:
		return end
	case query.SortBetween:
		return append(sortBound(prefix, cond.Upper), keyCeiling)
	}
	return append(sortBound(prefix, cond.Value), keyCeiling)
}

// exhausted reports whether no sort key after sk, in iteration order, can
// match cond.
func exhausted(cond *query.SortKeyCondition, sk string, descending bool) bool {
	if !descending {
		switch cond.Op {
		case query.SortEqual, query.SortLte:
			return sk > cond.Value
		case query.SortLt:
			return sk >= cond.Value
		case query.SortBetween:
			return sk > cond.Upper
		case query.SortBeginsWith:
			return sk > cond.Value && !strings.HasPrefix(sk, cond.Value)
		}
		return false
	}
	switch cond.Op {
	case query.SortEqual, query.SortGte, query.SortBetween, query.SortBeginsWith:
		return sk < cond.Value
	case query.SortGt:
		return sk <= cond.Value
	}
	return false
}
