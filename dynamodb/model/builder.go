package model

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/acksell/colldb/dynamodb/keys"
	"github.com/acksell/colldb/dynamodb/query"
)

// request carries the options shared by entity and collection reads.
// Builder misuse is recorded in err and reported by Plan, Go or All.
type request struct {
	values     keys.Values
	cond       query.Condition
	limit      int32
	cursor     Cursor
	descending bool
	err        error
}

func (r *request) setCondition(op query.Operator, bounds ...keys.Values) {
	if r.err != nil {
		return
	}
	if r.cond.Op != query.OpNone {
		r.err = fmt.Errorf("%w: sort key operator already set to %s", query.ErrInvalidCondition, r.cond.Op)
		return
	}
	r.cond = query.Condition{Op: op, Bounds: bounds}
}

func (r *request) setLimit(n int32) {
	if r.err == nil && n < 0 {
		r.err = fmt.Errorf("limit must not be negative, got %d", n)
		return
	}
	r.limit = n
}

func (r *request) storeQuery(table string, p *query.Plan) *StoreQuery {
	return &StoreQuery{
		Table:             table,
		Index:             p.Index,
		PartitionKeyField: p.PartitionKeyField,
		PartitionKey:      p.PartitionKey,
		SortKeyField:      p.SortKeyField,
		SortKey:           p.SortKey,
		Limit:             r.limit,
		Cursor:            r.cursor,
		Descending:        r.descending,
	}
}

// pages runs q against store, calling fn with each page. It stops after one
// page unless all is set, in which case it follows cursors until the range is
// exhausted or maxPages is reached.
func pages(ctx context.Context, store Store, q *StoreQuery, all bool, maxPages int, log zerolog.Logger, fn func(*StorePage)) (Cursor, error) {
	logged := log.Debug().
		Str("table", q.Table).
		Str("index", q.Index).
		Str("pk", q.PartitionKey)
	if q.SortKey != nil {
		logged = logged.Stringer("sk", q.SortKey)
	}
	logged.Msg("planned query")

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := store.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("store query on %q: %w", q.PartitionKey, err)
		}
		fn(page)
		log.Debug().Int("page", n).Int("items", len(page.Items)).Bool("more", page.Cursor != nil).Msg("query page")
		if !all || page.Cursor == nil {
			return page.Cursor, nil
		}
		if maxPages > 0 && n >= maxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages", ErrTooManyPages, n)
		}
		next := *q
		next.Cursor = page.Cursor
		q = &next
	}
}

// EntityQuery reads one entity's items from one of its indexes.
type EntityQuery struct {
	entity    *Entity
	indexName string
	req       request
}

func newEntityQuery(e *Entity, indexName string, v keys.Values) *EntityQuery {
	return &EntityQuery{entity: e, indexName: indexName, req: request{values: v}}
}

func (q *EntityQuery) Gt(v keys.Values) *EntityQuery         { q.req.setCondition(query.OpGt, v); return q }
func (q *EntityQuery) Gte(v keys.Values) *EntityQuery        { q.req.setCondition(query.OpGte, v); return q }
func (q *EntityQuery) Lt(v keys.Values) *EntityQuery         { q.req.setCondition(query.OpLt, v); return q }
func (q *EntityQuery) Lte(v keys.Values) *EntityQuery        { q.req.setCondition(query.OpLte, v); return q }
func (q *EntityQuery) BeginsWith(v keys.Values) *EntityQuery { q.req.setCondition(query.OpBeginsWith, v); return q }

// Between selects sort keys from lower through upper inclusive.
func (q *EntityQuery) Between(lower, upper keys.Values) *EntityQuery {
	q.req.setCondition(query.OpBetween, lower, upper)
	return q
}

// Where applies an operator chosen at runtime.
func (q *EntityQuery) Where(op query.Operator, bounds ...keys.Values) *EntityQuery {
	q.req.setCondition(op, bounds...)
	return q
}

// WithLimit caps the number of items the store reads per request. Items of
// other entities sharing the index count towards the limit.
func (q *EntityQuery) WithLimit(n int32) *EntityQuery { q.req.setLimit(n); return q }

// WithCursor resumes from the cursor of a previous result.
func (q *EntityQuery) WithCursor(c Cursor) *EntityQuery { q.req.cursor = c; return q }

func (q *EntityQuery) WithDescending() *EntityQuery { q.req.descending = true; return q }

// Plan compiles the request without contacting a store.
func (q *EntityQuery) Plan() (*query.Plan, error) {
	if q.req.err != nil {
		return nil, fmt.Errorf("entity %q: %w", q.entity.Name(), q.req.err)
	}
	d, err := q.entity.Index(q.indexName)
	if err != nil {
		return nil, err
	}
	p, err := query.Compile(query.Target{
		Definition: d,
		Catalog:    q.entity.Catalog(),
		Owner:      q.entity.Owner(),
		Scope:      query.ScopeEntity,
	}, q.req.values, q.req.cond)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", q.entity.Name(), err)
	}
	return p, nil
}

// EntityResult holds one entity's items in sort key order.
type EntityResult struct {
	Data   []Item
	Cursor Cursor
}

// Go makes a single store request.
func (q *EntityQuery) Go(ctx context.Context, store Store) (*EntityResult, error) {
	return q.run(ctx, store, false)
}

// All follows cursors until every matching item is read.
func (q *EntityQuery) All(ctx context.Context, store Store) (*EntityResult, error) {
	return q.run(ctx, store, true)
}

func (q *EntityQuery) run(ctx context.Context, store Store, all bool) (*EntityResult, error) {
	p, err := q.Plan()
	if err != nil {
		return nil, err
	}
	e := q.entity
	log := e.s.log.With().Str("entity", e.Name()).Str("index", q.indexName).Logger()
	res := &EntityResult{Data: []Item{}}
	var fenceErr error
	res.Cursor, err = pages(ctx, store, q.req.storeQuery(e.Table(), p), all, e.s.maxPages, log, func(page *StorePage) {
		for _, item := range page.Items {
			if fenceErr != nil {
				return
			}
			owner, err := e.s.identify(item)
			if err != nil {
				fenceErr = err
				return
			}
			if !owner.Owns(e) {
				continue
			}
			res.Data = append(res.Data, item)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", e.Name(), err)
	}
	if fenceErr != nil {
		return nil, fmt.Errorf("entity %q: %w", e.Name(), fenceErr)
	}
	return res, nil
}

// CollectionQuery reads every member of a collection in one range.
type CollectionQuery struct {
	svc  *Service
	name string
	req  request
}

func newCollectionQuery(s *Service, name string, v keys.Values) *CollectionQuery {
	return &CollectionQuery{svc: s, name: name, req: request{values: v}}
}

func (q *CollectionQuery) Gt(v keys.Values) *CollectionQuery  { q.req.setCondition(query.OpGt, v); return q }
func (q *CollectionQuery) Gte(v keys.Values) *CollectionQuery { q.req.setCondition(query.OpGte, v); return q }
func (q *CollectionQuery) Lt(v keys.Values) *CollectionQuery  { q.req.setCondition(query.OpLt, v); return q }
func (q *CollectionQuery) Lte(v keys.Values) *CollectionQuery { q.req.setCondition(query.OpLte, v); return q }
func (q *CollectionQuery) BeginsWith(v keys.Values) *CollectionQuery {
	q.req.setCondition(query.OpBeginsWith, v)
	return q
}

// Between selects sort keys from lower through upper inclusive. Only
// clustered collections support range operators.
func (q *CollectionQuery) Between(lower, upper keys.Values) *CollectionQuery {
	q.req.setCondition(query.OpBetween, lower, upper)
	return q
}

// Where applies an operator chosen at runtime.
func (q *CollectionQuery) Where(op query.Operator, bounds ...keys.Values) *CollectionQuery {
	q.req.setCondition(op, bounds...)
	return q
}

func (q *CollectionQuery) WithLimit(n int32) *CollectionQuery  { q.req.setLimit(n); return q }
func (q *CollectionQuery) WithCursor(c Cursor) *CollectionQuery { q.req.cursor = c; return q }
func (q *CollectionQuery) WithDescending() *CollectionQuery     { q.req.descending = true; return q }

// Plan compiles the request without contacting a store.
func (q *CollectionQuery) Plan() (*query.Plan, error) {
	_, p, err := q.plan()
	return p, err
}

func (q *CollectionQuery) plan() (*Collection, *query.Plan, error) {
	if q.req.err != nil {
		return nil, nil, fmt.Errorf("collection %q: %w", q.name, q.req.err)
	}
	c, err := q.svc.registry.Collection(q.name)
	if err != nil {
		return nil, nil, fmt.Errorf("service %q: %w", q.svc.name, err)
	}
	ref := c.Members[0]
	p, err := query.Compile(query.Target{
		Definition: ref.Definition,
		Catalog:    ref.Entity.Catalog(),
		Owner:      ref.Entity.Owner(),
		Scope:      query.ScopeCollection,
	}, q.req.values, q.req.cond)
	if err != nil {
		return nil, nil, fmt.Errorf("collection %q: %w", q.name, err)
	}
	return c, p, nil
}

// CollectionResult holds items grouped by member entity name. Every member
// has an entry.
type CollectionResult struct {
	Data   map[string][]Item
	Cursor Cursor
}

// Go makes a single store request.
func (q *CollectionQuery) Go(ctx context.Context, store Store) (*CollectionResult, error) {
	return q.run(ctx, store, false)
}

// All follows cursors until every matching item is read.
func (q *CollectionQuery) All(ctx context.Context, store Store) (*CollectionResult, error) {
	return q.run(ctx, store, true)
}

func (q *CollectionQuery) run(ctx context.Context, store Store, all bool) (*CollectionResult, error) {
	c, p, err := q.plan()
	if err != nil {
		return nil, err
	}
	log := q.svc.s.log.With().Str("collection", q.name).Logger()
	var items []Item
	cursor, err := pages(ctx, store, q.req.storeQuery(q.svc.table, p), all, q.svc.s.maxPages, log, func(page *StorePage) {
		items = append(items, page.Items...)
	})
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", q.name, err)
	}
	data, err := Split(items, c.entities(), q.svc.s.identify, log)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", q.name, err)
	}
	return &CollectionResult{Data: data, Cursor: cursor}, nil
}
