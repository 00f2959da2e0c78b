package model

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/rs/zerolog"
)

// ItemOwner is the entity and version that wrote an item.
type ItemOwner struct {
	Entity  string
	Version string
}

// Owns reports whether o names e. An empty Version matches every version.
func (o ItemOwner) Owns(e *Entity) bool {
	return o.Entity == e.Name() && (o.Version == "" || o.Version == e.Version())
}

// IdentifyFunc returns the owner of item.
type IdentifyFunc func(item Item) (ItemOwner, error)

// IdentifyByTag reads the entity name and version written to TypeField and
// VersionField by Entity.Item. TypeField is required.
func IdentifyByTag(item Item) (ItemOwner, error) {
	av, ok := item[TypeField]
	if !ok {
		return ItemOwner{}, fmt.Errorf("%w: item has no %q attribute", ErrUnknownEntity, TypeField)
	}
	var o ItemOwner
	if err := attributevalue.Unmarshal(av, &o.Entity); err != nil {
		return ItemOwner{}, fmt.Errorf("%w: %q attribute: %w", ErrUnknownEntity, TypeField, err)
	}
	if av, ok := item[VersionField]; ok {
		if err := attributevalue.Unmarshal(av, &o.Version); err != nil {
			return ItemOwner{}, fmt.Errorf("%w: %q attribute: %w", ErrUnknownEntity, VersionField, err)
		}
	}
	return o, nil
}

// Split groups items by owning entity name. Every member has an entry,
// possibly empty, and items keep their store order within each group. Items
// owned by other entities, or by other versions of a member, are dropped.
func Split(items []Item, members []*Entity, identify IdentifyFunc, log zerolog.Logger) (map[string][]Item, error) {
	if identify == nil {
		identify = IdentifyByTag
	}
	byName := make(map[string]*Entity, len(members))
	out := make(map[string][]Item, len(members))
	for _, m := range members {
		byName[m.Name()] = m
		out[m.Name()] = []Item{}
	}
	dropped := 0
	for _, item := range items {
		owner, err := identify(item)
		if err != nil {
			return nil, err
		}
		m, ok := byName[owner.Entity]
		if !ok || !owner.Owns(m) {
			dropped++
			log.Debug().Str("entity", owner.Entity).Str("version", owner.Version).Msg("dropping item owned by non-member entity")
			continue
		}
		out[m.Name()] = append(out[m.Name()], item)
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("kept", len(items)-dropped).Msg("split results")
	}
	return out, nil
}
