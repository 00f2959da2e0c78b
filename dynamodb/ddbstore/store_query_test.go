package ddbstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/query"
)

// seedPartition writes sort keys $e#n_0..$e#n_9 plus neighbours that share
// their prefix under pk "p" and an unrelated partition "q".
func seedPartition(t *testing.T) *Store {
	t.Helper()
	store := newTestStore(t, singleTableDesign)
	for i := 0; i < 10; i++ {
		put(t, store, singleTableDesign.Name, model.Item{"pk": s("p"), "sk": s(fmt.Sprintf("$e#n_%d", i))})
	}
	put(t, store, singleTableDesign.Name,
		model.Item{"pk": s("p"), "sk": s("$d")},
		model.Item{"pk": s("p"), "sk": s("$f")},
		model.Item{"pk": s("p"), "sk": s("$e#n_5#x_1")},
		model.Item{"pk": s("q"), "sk": s("$e#n_5")},
	)
	return store
}

func tableQuery(cond *query.SortKeyCondition) *model.StoreQuery {
	return &model.StoreQuery{
		Table:             singleTableDesign.Name,
		PartitionKeyField: "pk",
		PartitionKey:      "p",
		SortKeyField:      "sk",
		SortKey:           cond,
	}
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func TestStore_Query(t *testing.T) {
	store := seedPartition(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cond *query.SortKeyCondition
		want []string
	}{
		{"whole partition", nil, []string{
			"$d", "$e#n_0", "$e#n_1", "$e#n_2", "$e#n_3", "$e#n_4", "$e#n_5", "$e#n_5#x_1",
			"$e#n_6", "$e#n_7", "$e#n_8", "$e#n_9", "$f",
		}},
		{"equal", &query.SortKeyCondition{Op: query.SortEqual, Value: "$e#n_5"}, []string{"$e#n_5"}},
		{"begins_with", &query.SortKeyCondition{Op: query.SortBeginsWith, Value: "$e#n_5"}, []string{"$e#n_5", "$e#n_5#x_1"}},
		{"gt", &query.SortKeyCondition{Op: query.SortGt, Value: "$e#n_8"}, []string{"$e#n_9", "$f"}},
		{"gte", &query.SortKeyCondition{Op: query.SortGte, Value: "$e#n_8"}, []string{"$e#n_8", "$e#n_9", "$f"}},
		{"lt", &query.SortKeyCondition{Op: query.SortLt, Value: "$e#n_1"}, []string{"$d", "$e#n_0"}},
		{"lte", &query.SortKeyCondition{Op: query.SortLte, Value: "$e#n_1"}, []string{"$d", "$e#n_0", "$e#n_1"}},
		{"between", &query.SortKeyCondition{Op: query.SortBetween, Value: "$e#n_4", Upper: "$e#n_6"},
			[]string{"$e#n_4", "$e#n_5", "$e#n_5#x_1", "$e#n_6"}},
		{"no match", &query.SortKeyCondition{Op: query.SortBeginsWith, Value: "$z"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.Query(ctx, tableQuery(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, tt.want, sortKeys(page.Items, "sk"))
			assert.Nil(t, page.Cursor)

			q := tableQuery(tt.cond)
			q.Descending = true
			page, err = store.Query(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, reversed(tt.want), sortKeys(page.Items, "sk"))
		})
	}
}

func TestStore_Query_Paging(t *testing.T) {
	store := seedPartition(t)
	ctx := context.Background()
	cond := &query.SortKeyCondition{Op: query.SortBeginsWith, Value: "$e#"}

	collect := func(t *testing.T, descending bool) []string {
		var (
			got    []string
			cursor model.Cursor
			pages  int
		)
		for {
			q := tableQuery(cond)
			q.Limit = 3
			q.Cursor = cursor
			q.Descending = descending
			page, err := store.Query(ctx, q)
			require.NoError(t, err)
			require.LessOrEqual(t, len(page.Items), 3)
			got = append(got, sortKeys(page.Items, "sk")...)
			pages++
			if page.Cursor == nil {
				break
			}
			cursor = page.Cursor
		}
		assert.Equal(t, 4, pages)
		return got
	}

	all, err := store.Query(ctx, tableQuery(cond))
	require.NoError(t, err)
	want := sortKeys(all.Items, "sk")
	require.Len(t, want, 11)

	t.Run("forward", func(t *testing.T) {
		assert.Equal(t, want, collect(t, false))
	})
	t.Run("descending", func(t *testing.T) {
		assert.Equal(t, reversed(want), collect(t, true))
	})

	t.Run("exact page leaves no cursor", func(t *testing.T) {
		q := tableQuery(&query.SortKeyCondition{Op: query.SortBeginsWith, Value: "$e#n_5"})
		q.Limit = 2
		page, err := store.Query(ctx, q)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Nil(t, page.Cursor)
	})
}

func TestStore_Query_GSIPaging(t *testing.T) {
	store := newTestStore(t, singleTableDesign)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		put(t, store, singleTableDesign.Name, model.Item{
			"pk": s(fmt.Sprintf("p%d", i)), "sk": s("x"),
			"gsi1pk": s("g"), "gsi1sk": s("same"),
		})
	}

	var got []string
	q := gsiQuery("g")
	q.Limit = 2
	for {
		page, err := store.Query(ctx, q)
		require.NoError(t, err)
		got = append(got, sortKeys(page.Items, "pk")...)
		if page.Cursor == nil {
			break
		}
		assert.Contains(t, page.Cursor, "pk")
		assert.Contains(t, page.Cursor, "gsi1sk")
		q.Cursor = page.Cursor
	}
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4"}, got)
}

func TestStore_Query_Errors(t *testing.T) {
	store := seedPartition(t)
	ctx := context.Background()

	t.Run("unknown table", func(t *testing.T) {
		q := tableQuery(nil)
		q.Table = "nope"
		_, err := store.Query(ctx, q)
		require.ErrorIs(t, err, ErrUnknownTable)
	})

	t.Run("wrong partition key field", func(t *testing.T) {
		q := tableQuery(nil)
		q.PartitionKeyField = "gsi1pk"
		_, err := store.Query(ctx, q)
		require.Error(t, err)
	})

	t.Run("wrong sort key field", func(t *testing.T) {
		q := tableQuery(&query.SortKeyCondition{Op: query.SortEqual, Value: "$d"})
		q.SortKeyField = "other"
		_, err := store.Query(ctx, q)
		require.Error(t, err)
	})

	t.Run("cursor without keys", func(t *testing.T) {
		q := tableQuery(nil)
		q.Cursor = model.Cursor{"pk": s("p")}
		_, err := store.Query(ctx, q)
		require.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Query(cancelled, tableQuery(nil))
		require.ErrorIs(t, err, context.Canceled)
	})
}
