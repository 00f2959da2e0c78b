package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
	"github.com/acksell/colldb/dynamodb/model"
	"github.com/acksell/colldb/dynamodb/table"
)

func TestLoad(t *testing.T) {
	s, err := Load("testdata/taskapp.yaml")
	require.NoError(t, err)
	assert.Equal(t, "TaskApp", s.Service)
	assert.Equal(t, model.PartitionKeyOnly, s.Scope())

	def := s.TableDefinition()
	assert.Equal(t, table.KeyDef{Name: "pk", Kind: table.KeyKindS}, def.KeyDefinitions.PartitionKey)
	require.Len(t, def.GSIs, 1)
	assert.Equal(t, table.KeyDef{Name: "gsi1sk", Kind: table.KeyKindS}, def.GSIs[0].KeyDefinitions.SortKey)

	svc, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, "electro", svc.Table())

	c, err := svc.Registry().Collection("workplaces")
	require.NoError(t, err)
	assert.Equal(t, index.KindClustered, c.Kind)
	assert.Equal(t, []string{"employee", "office"}, c.Entities())

	office, err := svc.Entity("office")
	require.NoError(t, err)
	assert.Equal(t, "2", office.Version())

	p, err := svc.Collection("workplaces", keys.Values{"office": "gw"}).Gte(keys.Values{"level": 3}).Plan()
	require.NoError(t, err)
	assert.Equal(t, "$workplaces#level_03", p.SortKey.Value)

	_, err = Load("testdata/missing.yaml")
	require.Error(t, err)
}

const minimal = `
service: svc
table:
  name: t
  partitionKey: {name: pk}
  sortKey: {name: sk}
entities:
  - name: a
    attributes:
      - {name: id, type: string}
    indexes:
      - name: a
        partitionKey: {field: pk, composite: [id]}
        sortKey: {field: sk}
`

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(minimal))
	require.NoError(t, err)

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown field", minimal + "extra: true\n"},
		{"missing service", strings.Replace(minimal, "service: svc", "", 1)},
		{"bad attribute type", strings.Replace(minimal, "type: string", "type: uuid", 1)},
		{"enum without members", strings.Replace(minimal, "type: string", "type: enum", 1)},
		{"bad kind", strings.Replace(minimal, "name: a\n        partitionKey", "name: a\n        kind: mixed\n        partitionKey", 1)},
		{"bad key kind", strings.Replace(minimal, "{name: pk}", "{name: pk, kind: X}", 1)},
		{"unknown gsi", strings.Replace(minimal, "name: a\n        partitionKey", "name: a\n        index: gsi9\n        partitionKey", 1)},
		{"consistency", minimal + "consistency: everything\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Run("entity definition", func(t *testing.T) {
		s, err := Parse([]byte(strings.Replace(minimal, "composite: [id]", "composite: [ghost]", 1)))
		require.NoError(t, err)
		_, err = s.Build()
		require.ErrorIs(t, err, model.ErrInvalidEntity)
	})

	t.Run("table mismatch", func(t *testing.T) {
		s, err := Parse([]byte(strings.Replace(minimal, "sortKey: {field: sk}", "sortKey: {field: range}", 1)))
		require.NoError(t, err)
		_, err = s.Build()
		require.ErrorIs(t, err, model.ErrTableMismatch)
	})

	t.Run("partition and sort scope", func(t *testing.T) {
		s, err := Parse([]byte(minimal + "consistency: partitionAndSort\n"))
		require.NoError(t, err)
		assert.Equal(t, model.PartitionAndSortKey, s.Scope())
		_, err = s.Build()
		require.NoError(t, err)
	})
}
