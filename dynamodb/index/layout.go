package index

import (
	"fmt"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/keys"
)

// VersionSeparator joins an entity name to its version in sort key prefixes.
// Versions and collection labels may not contain it.
const VersionSeparator = "_"

// Owner identifies the entity a definition belongs to. Its fields become the
// fixed prefixes of every key the definition produces.
type Owner struct {
	Service string
	Entity  string
	Version string
}

// PartitionPrefix is the fixed part of every partition key: "$<service>".
func (d Definition) PartitionPrefix(o Owner) string {
	return "$" + o.Service
}

// SortPrefix is the fixed part of the entity's sort keys on this index:
//
//	no collection:         $<entity>_<version>
//	isolated collection:   $<collection>#<entity>_<version>
//	clustered collection:  $<collection>
func (d Definition) SortPrefix(o Owner) string {
	own := o.Entity + VersionSeparator + o.Version
	switch {
	case d.Collection == "":
		return "$" + own
	case d.Kind.Normalize() == KindClustered:
		return d.CollectionPrefix()
	}
	return d.CollectionPrefix() + attr.Delimiter + own
}

// CollectionPrefix is the sort key prefix shared by every member of the
// definition's collection.
func (d Definition) CollectionPrefix() string {
	return "$" + d.Collection
}

// Join appends composed segments to a fixed key prefix.
func Join(prefix, segments string) string {
	if segments == "" {
		return prefix
	}
	return prefix + attr.Delimiter + segments
}

// PartitionKey renders the full partition key for values v.
func (d Definition) PartitionKey(c *attr.Catalog, o Owner, v keys.Values) (string, error) {
	segs, err := keys.Compose(c, d.PK.Composite, v)
	if err != nil {
		return "", fmt.Errorf("index %q partition key: %w", d.Name, err)
	}
	return d.Casing.Apply(Join(d.PartitionPrefix(o), segs)), nil
}

// SortKey renders the full sort key for values v.
func (d Definition) SortKey(c *attr.Catalog, o Owner, v keys.Values) (string, error) {
	if !d.HasSortKey() {
		return "", fmt.Errorf("index %q has no sort key", d.Name)
	}
	segs, err := keys.ComposeSort(c, d.SK.Composite, v)
	if err != nil {
		return "", fmt.Errorf("index %q sort key: %w", d.Name, err)
	}
	return d.Casing.Apply(Join(d.SortPrefix(o), segs)), nil
}
