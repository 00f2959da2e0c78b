package query

import (
	"fmt"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
)

// Scope selects whether a plan reads one entity or a whole collection.
type Scope int

const (
	ScopeEntity Scope = iota
	ScopeCollection
)

func (s Scope) String() string {
	if s == ScopeCollection {
		return "collection"
	}
	return "entity"
}

// Target is the index a plan reads and the catalog its keys are rendered with.
//
// For collection scope any member's catalog and owner may be used: members
// agree on partition key attributes, and the collection prefix does not
// depend on the owner.
type Target struct {
	Definition index.Definition
	Catalog    *attr.Catalog
	Owner      index.Owner
	Scope      Scope
}

// Plan is a compiled store request. SortKey is nil when the request reads the
// whole partition.
type Plan struct {
	Index             string
	PartitionKeyField string
	PartitionKey      string
	SortKeyField      string
	SortKey           *SortKeyCondition
}

// ceiling sorts after every continuation of a key prefix. Sort key values
// followed by another segment hold no bytes below the delimiter.
const ceiling = attr.Delimiter + "\U0010FFFF"

// Compile plans a read of t for the provided attribute values and sort key
// condition. Errors are returned before any store is involved.
//
// Bounds rendered from fewer than all sort key attributes cover every key
// that continues them: gt, lte and the upper bound of between are extended
// past all continuations, so gt(prop2=5) skips "prop2_05#..." and
// lte(prop2=5) includes it. Bounds naming every sort key attribute are used
// as rendered.
func Compile(t Target, provided keys.Values, cond Condition) (*Plan, error) {
	d := t.Definition
	if err := cond.validate(); err != nil {
		return nil, fmt.Errorf("index %q: %w", d.Name, err)
	}

	var missing []string
	for _, name := range d.PK.Composite {
		if !provided.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: index %q is missing %q", ErrIncompletePartitionKey, d.Name, missing)
	}
	pk, err := d.PartitionKey(t.Catalog, t.Owner, provided)
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Index:             d.Index,
		PartitionKeyField: d.PK.Field,
		PartitionKey:      pk,
		SortKeyField:      d.SK.Field,
	}
	if !d.HasSortKey() {
		if cond.Op != OpNone {
			return nil, fmt.Errorf("%w: index %q has no sort key", ErrInvalidCondition, d.Name)
		}
		return p, nil
	}

	if t.Scope == ScopeCollection {
		if d.Collection == "" {
			return nil, fmt.Errorf("index %q does not belong to a collection", d.Name)
		}
		if d.Kind.Normalize() == index.KindIsolated {
			p.SortKey, err = isolatedCollection(d, provided, cond)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}

	prefix := d.SortPrefix(t.Owner)
	if t.Scope == ScopeCollection {
		prefix = d.CollectionPrefix()
	}
	p.SortKey, err = sortKey(t, prefix, provided, cond)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// isolatedCollection plans a read over every member's sub-range of an
// isolated collection. Members occupy disjoint sub-ranges, so only the whole
// collection prefix can be selected.
func isolatedCollection(d index.Definition, provided keys.Values, cond Condition) (*SortKeyCondition, error) {
	if cond.Op != OpNone {
		return nil, fmt.Errorf("%w: %s on isolated collection %q spans disjoint entity sub-ranges",
			ErrUnsupportedOperationForIndexKind, cond.Op.name(), d.Collection)
	}
	for _, name := range d.SK.Composite {
		if provided.Has(name) {
			return nil, fmt.Errorf("%w: isolated collection %q cannot be narrowed by sort key attribute %q",
				ErrUnsupportedOperationForIndexKind, d.Collection, name)
		}
	}
	return &SortKeyCondition{
		Op:    SortBeginsWith,
		Value: d.Casing.Apply(d.CollectionPrefix() + attr.Delimiter),
	}, nil
}

func sortKey(t Target, prefix string, provided keys.Values, cond Condition) (*SortKeyCondition, error) {
	d := t.Definition
	render := func(v keys.Values) (string, int, error) {
		segs, n, err := keys.ComposeSortPrefix(t.Catalog, d.SK.Composite, v)
		if err != nil {
			return "", 0, fmt.Errorf("index %q sort key: %w", d.Name, err)
		}
		return d.Casing.Apply(index.Join(prefix, segs)), n, nil
	}
	// bound renders a range bound. A bound naming fewer than all sort key
	// attributes is partial: keys continuing it share its prefix.
	bound := func(v keys.Values) (key string, partial bool, err error) {
		key, n, err := render(provided.Merge(v))
		if err != nil {
			return "", false, err
		}
		if n == 0 {
			return "", false, fmt.Errorf("%w: index %q: %s bound supplies no sort key attributes",
				ErrInvalidRange, d.Name, cond.Op.name())
		}
		return key, n < len(d.SK.Composite), nil
	}
	// extended moves a partial bound past every key continuing it.
	extended := func(v keys.Values) (string, error) {
		key, partial, err := bound(v)
		if partial {
			key += ceiling
		}
		return key, err
	}

	switch cond.Op {
	case OpNone:
		key, n, err := render(provided)
		if err != nil {
			return nil, err
		}
		if n == len(d.SK.Composite) {
			return &SortKeyCondition{Op: SortEqual, Value: key}, nil
		}
		return &SortKeyCondition{Op: SortBeginsWith, Value: key + attr.Delimiter}, nil
	case OpBeginsWith:
		key, _, err := render(provided.Merge(cond.Bounds[0]))
		if err != nil {
			return nil, err
		}
		return &SortKeyCondition{Op: SortBeginsWith, Value: key}, nil
	case OpGt, OpLte:
		key, err := extended(cond.Bounds[0])
		if err != nil {
			return nil, err
		}
		if cond.Op == OpGt {
			return &SortKeyCondition{Op: SortGt, Value: key}, nil
		}
		return &SortKeyCondition{Op: SortLte, Value: key}, nil
	case OpGte, OpLt:
		key, _, err := bound(cond.Bounds[0])
		if err != nil {
			return nil, err
		}
		if cond.Op == OpGte {
			return &SortKeyCondition{Op: SortGte, Value: key}, nil
		}
		return &SortKeyCondition{Op: SortLt, Value: key}, nil
	case OpBetween:
		lower, _, err := bound(cond.Bounds[0])
		if err != nil {
			return nil, err
		}
		hi, err := extended(cond.Bounds[1])
		if err != nil {
			return nil, err
		}
		if lower > hi {
			return nil, fmt.Errorf("%w: index %q: lower bound %q sorts after upper bound %q",
				ErrInvalidRange, d.Name, lower, hi)
		}
		return &SortKeyCondition{Op: SortBetween, Value: lower, Upper: hi}, nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, cond.Op)
}
