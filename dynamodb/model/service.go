package model

import (
	"fmt"

	"github.com/acksell/colldb/dynamodb/keys"
)

// Service groups the entities sharing a table and owns their collections.
type Service struct {
	name     string
	table    string
	entities map[string]*Entity
	order    []string
	registry *Registry
	s        settings
}

// DefineService validates that entities belong to the named service and form
// consistent collections. All checks run here, once.
func DefineService(name string, entities []*Entity, opts ...Option) (*Service, error) {
	if name == "" {
		return nil, fmt.Errorf("service name is required")
	}
	svc := &Service{
		name:     name,
		entities: make(map[string]*Entity, len(entities)),
		s:        newSettings(opts),
	}
	for _, e := range entities {
		if e.Service() != name {
			return nil, fmt.Errorf("%w: entity %q belongs to service %q, not %q", ErrServiceMismatch, e.Name(), e.Service(), name)
		}
		if _, dup := svc.entities[e.Name()]; dup {
			return nil, fmt.Errorf("%w: %q registered more than once in service %q", ErrDuplicateEntity, e.Name(), name)
		}
		if e.Table() != "" {
			if svc.table != "" && svc.table != e.Table() {
				return nil, fmt.Errorf("%w: entity %q uses table %q, service %q uses %q",
					ErrServiceMismatch, e.Name(), e.Table(), name, svc.table)
			}
			svc.table = e.Table()
		}
		svc.entities[e.Name()] = e
		svc.order = append(svc.order, e.Name())
	}

	registry, err := BuildRegistry(entities, svc.s.scope)
	if err != nil {
		return nil, fmt.Errorf("service %q: %w", name, err)
	}
	svc.registry = registry
	svc.s.log.Debug().
		Str("service", name).
		Int("entities", len(entities)).
		Int("collections", len(registry.Collections())).
		Str("scope", svc.s.scope.String()).
		Msg("service defined")
	return svc, nil
}

func (s *Service) Name() string        { return s.name }
func (s *Service) Table() string       { return s.table }
func (s *Service) Registry() *Registry { return s.registry }

// Entity returns the named entity.
func (s *Service) Entity(name string) (*Entity, error) {
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not part of service %q", ErrUnknownEntity, name, s.name)
	}
	return e, nil
}

// Entities returns entities in registration order.
func (s *Service) Entities() []*Entity {
	out := make([]*Entity, len(s.order))
	for i, name := range s.order {
		out[i] = s.entities[name]
	}
	return out
}

// Collection starts a read across every member of the named collection.
// The values must cover the collection's partition key.
func (s *Service) Collection(name string, v keys.Values) *CollectionQuery {
	return newCollectionQuery(s, name, v)
}
