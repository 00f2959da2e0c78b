package model

import "github.com/rs/zerolog"

// ConsistencyScope selects which key attributes must agree across the
// members of a collection.
type ConsistencyScope int

const (
	// PartitionKeyOnly compares attributes of partition key templates.
	// Sort key attributes may differ: each member's sort keys only need to
	// order correctly among themselves.
	PartitionKeyOnly ConsistencyScope = iota
	// PartitionAndSortKey also compares sort key template attributes.
	PartitionAndSortKey
)

func (s ConsistencyScope) String() string {
	if s == PartitionAndSortKey {
		return "partition+sort"
	}
	return "partition"
}

const defaultMaxPages = 1000

type settings struct {
	log      zerolog.Logger
	identify IdentifyFunc
	scope    ConsistencyScope
	maxPages int
}

func newSettings(opts []Option) settings {
	s := settings{
		log:      zerolog.Nop(),
		identify: IdentifyByTag,
		scope:    PartitionKeyOnly,
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures an Entity or Service.
type Option func(*settings)

func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithIdentify replaces how items are attributed to entities.
func WithIdentify(fn IdentifyFunc) Option {
	return func(s *settings) {
		if fn != nil {
			s.identify = fn
		}
	}
}

func WithConsistencyScope(scope ConsistencyScope) Option {
	return func(s *settings) { s.scope = scope }
}

// WithMaxPages caps the number of store requests All makes. Zero or less
// removes the cap.
func WithMaxPages(n int) Option {
	return func(s *settings) { s.maxPages = n }
}
