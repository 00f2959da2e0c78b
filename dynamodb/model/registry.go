package model

import (
	"fmt"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
)

// Member is one entity's index participating in a collection.
type Member struct {
	Entity     *Entity
	Definition index.Definition
}

// Collection is every entity index sharing a physical index and a label.
type Collection struct {
	Name     string
	Identity index.Identity
	Kind     index.Kind
	Casing   keys.Casing
	// Members are in entity registration order.
	Members []Member
}

// Entities returns member entity names in registration order.
func (c *Collection) Entities() []string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Entity.Name()
	}
	return out
}

func (c *Collection) entities() []*Entity {
	out := make([]*Entity, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Entity
	}
	return out
}

// Member returns the member for the named entity.
func (c *Collection) Member(entity string) (Member, bool) {
	for _, m := range c.Members {
		if m.Entity.Name() == entity {
			return m, true
		}
	}
	return Member{}, false
}

// Registry holds the validated collections of a set of entities.
type Registry struct {
	collections map[string]*Collection
	order       []string
}

// BuildRegistry groups labeled indexes into collections and checks that
// members agree on how shared keys are formed. Indexes without a collection
// label are never compared with anything.
func BuildRegistry(entities []*Entity, scope ConsistencyScope) (*Registry, error) {
	r := &Registry{collections: make(map[string]*Collection)}
	for _, e := range entities {
		for _, d := range e.Indexes() {
			if d.Collection == "" {
				continue
			}
			c, ok := r.collections[d.Collection]
			if !ok {
				c = &Collection{
					Name:     d.Collection,
					Identity: d.Identity(),
					Kind:     d.Kind.Normalize(),
					Casing:   d.Casing.Normalize(),
				}
				r.collections[d.Collection] = c
				r.order = append(r.order, d.Collection)
			}
			if err := c.admit(e, d); err != nil {
				return nil, err
			}
			c.Members = append(c.Members, Member{Entity: e, Definition: d})
		}
	}
	if err := r.checkAttributes(entities, scope); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Collection) admit(e *Entity, d index.Definition) error {
	ref := "its first member"
	if len(c.Members) > 0 {
		ref = fmt.Sprintf("entity %q", c.Members[0].Entity.Name())
	}
	switch {
	case d.Identity() != c.Identity:
		return fmt.Errorf("%w: entity %q index %q binds collection %q to %s, %s uses %s",
			ErrInconsistentIndexDefinition, e.Name(), d.Name, c.Name, d.Identity(), ref, c.Identity)
	case d.Kind.Normalize() != c.Kind:
		return fmt.Errorf("%w: entity %q index %q declares collection %q %s, %s declares it %s",
			ErrInconsistentIndexDefinition, e.Name(), d.Name, c.Name, d.Kind.Normalize(), ref, c.Kind)
	case d.Casing.Normalize() != c.Casing:
		return fmt.Errorf("%w: entity %q index %q cases collection %q keys %s, %s uses %s",
			ErrInconsistentIndexDefinition, e.Name(), d.Name, c.Name, d.Casing.Normalize(), ref, c.Casing)
	}
	return nil
}

// checkAttributes compares every key attribute of every collection with the
// first member defining it, and reports the first entity, in registration
// order, with any difference.
func (r *Registry) checkAttributes(entities []*Entity, scope ConsistencyScope) error {
	type definer struct {
		entity string
		attr   attr.Attribute
	}
	type found struct {
		entity     *Entity
		mismatches []AttributeMismatch
	}
	var problems []found
	byEntity := make(map[*Entity]int)

	for _, name := range r.order {
		c := r.collections[name]
		if len(c.Members) < 2 {
			continue
		}
		checked := checkedAttributes(c, scope)
		refs := make(map[string]definer, len(checked))
		for _, m := range c.Members {
			for _, attrName := range checked {
				a, ok := m.Entity.Catalog().Get(attrName)
				if !ok {
					continue
				}
				ref, seen := refs[attrName]
				if !seen {
					refs[attrName] = definer{entity: m.Entity.Name(), attr: a}
					continue
				}
				kinds := attr.Compare(ref.attr, a)
				if len(kinds) == 0 {
					continue
				}
				i, ok := byEntity[m.Entity]
				if !ok {
					i = len(problems)
					byEntity[m.Entity] = i
					problems = append(problems, found{entity: m.Entity})
				}
				problems[i].mismatches = append(problems[i].mismatches, AttributeMismatch{
					Attribute:  attrName,
					Collection: c.Name,
					Reference:  ref.entity,
					Kinds:      kinds,
				})
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	for _, e := range entities {
		if i, ok := byEntity[e]; ok {
			return &InconsistentAttributeError{Entity: e.Name(), Mismatches: problems[i].mismatches}
		}
	}
	return nil
}

// checkedAttributes is the ordered union of the template attributes scope
// requires members to agree on.
func checkedAttributes(c *Collection, scope ConsistencyScope) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(t keys.Template) {
		for _, name := range t {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	for _, m := range c.Members {
		add(m.Definition.PK.Composite)
	}
	if scope == PartitionAndSortKey {
		for _, m := range c.Members {
			add(m.Definition.SK.Composite)
		}
	}
	return out
}

// Collection returns the named collection.
func (r *Registry) Collection(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Collections returns every collection in order of first declaration.
func (r *Registry) Collections() []*Collection {
	out := make([]*Collection, len(r.order))
	for i, name := range r.order {
		out[i] = r.collections[name]
	}
	return out
}
