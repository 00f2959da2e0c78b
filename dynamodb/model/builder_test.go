package model

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
	"github.com/acksell/colldb/dynamodb/query"
)

// pagedStore serves canned pages in order and records every request.
type pagedStore struct {
	pages    []*StorePage
	requests []StoreQuery
	err      error
}

func (s *pagedStore) Query(_ context.Context, q *StoreQuery) (*StorePage, error) {
	s.requests = append(s.requests, *q)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pages) == 0 {
		return &StorePage{}, nil
	}
	p := s.pages[0]
	s.pages = s.pages[1:]
	return p, nil
}

func tagged(entity, id string) Item {
	return Item{
		TypeField: &types.AttributeValueMemberS{Value: entity},
		"id":      &types.AttributeValueMemberS{Value: id},
	}
}

func cursorAt(id string) Cursor {
	return Cursor{"pk": &types.AttributeValueMemberS{Value: id}}
}

func officeService(t *testing.T, kind index.Kind, opts ...Option) *Service {
	t.Helper()
	define := func(name string) *Entity {
		return mustEntity(t, EntityDefinition{
			Service: "TaskApp",
			Name:    name,
			Table:   "electro",
			Attributes: []attr.Attribute{
				{Name: "id", Type: attr.TypeString},
				{Name: "office", Type: attr.TypeString},
				{Name: "level", Type: attr.TypeNumber, Padding: padded("0", 2)},
			},
			Indexes: []index.Definition{
				{
					Name: "primary",
					PK:   index.Key{Field: "pk", Composite: keys.Template{"id"}},
					SK:   index.Key{Field: "sk"},
				},
				{
					Name:       "byOffice",
					Index:      "gsi1",
					PK:         index.Key{Field: "gsi1pk", Composite: keys.Template{"office"}},
					SK:         index.Key{Field: "gsi1sk", Composite: keys.Template{"level"}},
					Kind:       kind,
					Collection: "workplaces",
				},
			},
		}, opts...)
	}
	svc, err := DefineService("TaskApp", []*Entity{define("employee"), define("office")}, opts...)
	require.NoError(t, err)
	return svc
}

func TestCollectionQuery_Plan(t *testing.T) {
	t.Run("clustered range", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		p, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).
			Between(keys.Values{"level": 3}, keys.Values{"level": 7}).
			Plan()
		require.NoError(t, err)
		assert.Equal(t, "gsi1", p.Index)
		assert.Equal(t, "gsi1pk", p.PartitionKeyField)
		assert.Equal(t, "$taskapp#office_gw", p.PartitionKey)
		assert.Equal(t, query.SortBetween, p.SortKey.Op)
		assert.Equal(t, "$workplaces#level_03", p.SortKey.Value)
	})

	t.Run("isolated range rejected before any store call", func(t *testing.T) {
		svc := officeService(t, index.KindIsolated)
		store := &pagedStore{}
		_, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).
			Gt(keys.Values{"level": 3}).
			Go(context.Background(), store)
		require.ErrorIs(t, err, query.ErrUnsupportedOperationForIndexKind)
		assert.Empty(t, store.requests)
	})

	t.Run("unknown collection", func(t *testing.T) {
		svc := officeService(t, index.KindIsolated)
		_, err := svc.Collection("nope", keys.Values{"office": "gw"}).Plan()
		require.ErrorIs(t, err, ErrUnknownCollection)
	})

	t.Run("second operator is rejected", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		_, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).
			Gt(keys.Values{"level": 1}).
			Lt(keys.Values{"level": 5}).
			Plan()
		require.ErrorIs(t, err, query.ErrInvalidCondition)
	})

	t.Run("missing partition attribute", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		_, err := svc.Collection("workplaces", keys.Values{}).Plan()
		require.ErrorIs(t, err, query.ErrIncompletePartitionKey)
	})
}

func TestCollectionQuery_Go(t *testing.T) {
	svc := officeService(t, index.KindIsolated)
	store := &pagedStore{pages: []*StorePage{{
		Items: []Item{
			tagged("employee", "e1"),
			tagged("stranger", "s1"),
			tagged("employee", "e2"),
		},
		Cursor: cursorAt("e2"),
	}}}

	res, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).
		WithLimit(3).
		WithCursor(cursorAt("e0")).
		Go(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, store.requests, 1)

	req := store.requests[0]
	assert.Equal(t, "electro", req.Table)
	assert.Equal(t, int32(3), req.Limit)
	assert.Equal(t, cursorAt("e0"), req.Cursor)
	assert.Equal(t, &query.SortKeyCondition{Op: query.SortBeginsWith, Value: "$workplaces#"}, req.SortKey)

	assert.Len(t, res.Data["employee"], 2)
	assert.NotNil(t, res.Data["office"])
	assert.Empty(t, res.Data["office"])
	assert.NotContains(t, res.Data, "stranger")
	assert.Equal(t, cursorAt("e2"), res.Cursor)
}

func TestCollectionQuery_All(t *testing.T) {
	t.Run("follows cursors", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		store := &pagedStore{pages: []*StorePage{
			{Items: []Item{tagged("employee", "e1")}, Cursor: cursorAt("e1")},
			{Items: []Item{tagged("office", "o1")}, Cursor: cursorAt("o1")},
			{Items: []Item{tagged("employee", "e2")}},
		}}
		res, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).All(context.Background(), store)
		require.NoError(t, err)
		assert.Nil(t, res.Cursor)
		assert.Len(t, res.Data["employee"], 2)
		assert.Len(t, res.Data["office"], 1)

		require.Len(t, store.requests, 3)
		assert.Nil(t, store.requests[0].Cursor)
		assert.Equal(t, cursorAt("e1"), store.requests[1].Cursor)
		assert.Equal(t, cursorAt("o1"), store.requests[2].Cursor)
	})

	t.Run("page cap", func(t *testing.T) {
		svc := officeService(t, index.KindClustered, WithMaxPages(2))
		store := &pagedStore{pages: []*StorePage{
			{Items: []Item{tagged("employee", "e1")}, Cursor: cursorAt("e1")},
			{Items: []Item{tagged("employee", "e2")}, Cursor: cursorAt("e2")},
			{Items: []Item{tagged("employee", "e3")}},
		}}
		_, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).All(context.Background(), store)
		require.ErrorIs(t, err, ErrTooManyPages)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		boom := errors.New("boom")
		_, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).All(context.Background(), &pagedStore{err: boom})
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc := officeService(t, index.KindClustered)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := &pagedStore{}
		_, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).All(ctx, store)
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.requests)
	})
}

func TestEntityQuery(t *testing.T) {
	svc := officeService(t, index.KindClustered)
	employee, err := svc.Entity("employee")
	require.NoError(t, err)

	t.Run("fences other entities", func(t *testing.T) {
		store := &pagedStore{pages: []*StorePage{{Items: []Item{
			tagged("employee", "e1"),
			tagged("office", "o1"),
			tagged("employee", "e2"),
		}}}}
		res, err := employee.Query("byOffice", keys.Values{"office": "gw"}).
			Gte(keys.Values{"level": 2}).
			WithDescending().
			Go(context.Background(), store)
		require.NoError(t, err)
		require.Len(t, res.Data, 2)
		assert.Nil(t, res.Cursor)

		req := store.requests[0]
		assert.True(t, req.Descending)
		assert.Equal(t, "gsi1", req.Index)
		assert.Equal(t, &query.SortKeyCondition{Op: query.SortGte, Value: "$workplaces#level_02"}, req.SortKey)
	})

	t.Run("fences other versions", func(t *testing.T) {
		store := &pagedStore{pages: []*StorePage{{Items: []Item{
			versioned("employee", "0", "old"),
			versioned("employee", employee.Version(), "e1"),
		}}}}
		res, err := employee.Query("byOffice", keys.Values{"office": "gw"}).Go(context.Background(), store)
		require.NoError(t, err)
		require.Len(t, res.Data, 1)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "e1"}, res.Data[0]["id"])
	})

	t.Run("untagged item", func(t *testing.T) {
		store := &pagedStore{pages: []*StorePage{{Items: []Item{{"id": &types.AttributeValueMemberS{Value: "x"}}}}}}
		_, err := employee.Query("byOffice", keys.Values{"office": "gw"}).Go(context.Background(), store)
		require.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("custom identify", func(t *testing.T) {
		e := mustEntity(t, EntityDefinition{
			Service:    "TaskApp",
			Name:       "employee",
			Attributes: []attr.Attribute{{Name: "id", Type: attr.TypeString}},
			Indexes: []index.Definition{{
				Name: "primary",
				PK:   index.Key{Field: "pk", Composite: keys.Template{"id"}},
				SK:   index.Key{Field: "sk"},
			}},
		}, WithIdentify(func(Item) (ItemOwner, error) { return ItemOwner{Entity: "employee"}, nil }))
		store := &pagedStore{pages: []*StorePage{{Items: []Item{{"id": &types.AttributeValueMemberS{Value: "x"}}}}}}
		res, err := e.Query("primary", keys.Values{"id": "x"}).Go(context.Background(), store)
		require.NoError(t, err)
		assert.Len(t, res.Data, 1)
		assert.Equal(t, &query.SortKeyCondition{Op: query.SortEqual, Value: "$employee_1"}, store.requests[0].SortKey)
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := employee.Query("nope", keys.Values{}).Plan()
		require.ErrorIs(t, err, ErrUnknownIndex)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := employee.Query("byOffice", keys.Values{"office": "gw"}).WithLimit(-1).Plan()
		require.Error(t, err)
	})
}

func TestSplit(t *testing.T) {
	items := []Item{tagged("a", "1"), tagged("b", "2"), tagged("a", "3"), tagged("c", "4")}
	members := []*Entity{namedEntity(t, "a", "1"), namedEntity(t, "b", "1"), namedEntity(t, "d", "1")}

	got, err := Split(items, members, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []Item{items[0], items[2]}, got["a"])
	assert.Equal(t, []Item{items[1]}, got["b"])
	assert.Equal(t, []Item{}, got["d"])
	assert.NotContains(t, got, "c")

	_, err = Split([]Item{{}}, members, IdentifyByTag, zerolog.Nop())
	require.ErrorIs(t, err, ErrUnknownEntity)

	t.Run("other versions are dropped", func(t *testing.T) {
		items := []Item{versioned("a", "1", "x"), versioned("a", "2", "y")}
		got, err := Split(items, []*Entity{namedEntity(t, "a", "2")}, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, []Item{items[1]}, got["a"])
	})
}

func namedEntity(t *testing.T, name, version string) *Entity {
	t.Helper()
	return mustEntity(t, EntityDefinition{
		Service:    "TaskApp",
		Name:       name,
		Version:    version,
		Attributes: []attr.Attribute{{Name: "id", Type: attr.TypeString}},
		Indexes: []index.Definition{{
			Name: "primary",
			PK:   index.Key{Field: "pk", Composite: keys.Template{"id"}},
			SK:   index.Key{Field: "sk"},
		}},
	})
}

func versioned(entity, version, id string) Item {
	item := tagged(entity, id)
	item[VersionField] = &types.AttributeValueMemberS{Value: version}
	return item
}

func TestItemOwner_Owns(t *testing.T) {
	e := namedEntity(t, "a", "2")

	assert.True(t, ItemOwner{Entity: "a", Version: "2"}.Owns(e))
	assert.True(t, ItemOwner{Entity: "a"}.Owns(e))
	assert.False(t, ItemOwner{Entity: "a", Version: "1"}.Owns(e))
	assert.False(t, ItemOwner{Entity: "b", Version: "2"}.Owns(e))
}
