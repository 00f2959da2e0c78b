package model

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acksell/colldb/dynamodb/attr"
	"github.com/acksell/colldb/dynamodb/index"
	"github.com/acksell/colldb/dynamodb/keys"
)

func employeeDefinition() EntityDefinition {
	return EntityDefinition{
		Service: "TaskApp",
		Name:    "Employee",
		Table:   "electro",
		Attributes: []attr.Attribute{
			{Name: "id", Type: attr.TypeString},
			{Name: "office", Type: attr.TypeString},
			{Name: "team", Type: attr.TypeString},
			{Name: "level", Type: attr.TypeNumber, Padding: padded("0", 3)},
			{Name: "bio", Type: attr.TypeString},
		},
		Indexes: []index.Definition{
			{
				Name: "employee",
				PK:   index.Key{Field: "pk", Composite: keys.Template{"id"}},
				SK:   index.Key{Field: "sk"},
			},
			{
				Name:       "workplaces",
				Index:      "gsi1",
				PK:         index.Key{Field: "gsi1pk", Composite: keys.Template{"office"}},
				SK:         index.Key{Field: "gsi1sk", Composite: keys.Template{"team", "level"}},
				Kind:       index.KindClustered,
				Collection: "office",
			},
		},
	}
}

func TestDefineEntity(t *testing.T) {
	t.Run("defaults version", func(t *testing.T) {
		e := mustEntity(t, employeeDefinition())
		assert.Equal(t, "1", e.Version())
		assert.Equal(t, "TaskApp", e.Service())
		assert.Equal(t, "electro", e.Table())
		assert.Equal(t, index.Owner{Service: "TaskApp", Entity: "Employee", Version: "1"}, e.Owner())

		names := []string{}
		for _, d := range e.Indexes() {
			names = append(names, d.Name)
		}
		assert.Equal(t, []string{"employee", "workplaces"}, names)

		_, err := e.Index("nope")
		require.ErrorIs(t, err, ErrUnknownIndex)
	})

	tests := []struct {
		name   string
		mutate func(d *EntityDefinition)
	}{
		{"missing service", func(d *EntityDefinition) { d.Service = "" }},
		{"delimiter in name", func(d *EntityDefinition) { d.Name = "a#b" }},
		{"separator in version", func(d *EntityDefinition) { d.Version = "1_2" }},
		{"no indexes", func(d *EntityDefinition) { d.Indexes = nil }},
		{"no table index", func(d *EntityDefinition) { d.Indexes = d.Indexes[1:] }},
		{"duplicate index name", func(d *EntityDefinition) {
			dup := d.Indexes[1]
			dup.Index = "gsi2"
			d.Indexes = append(d.Indexes, dup)
		}},
		{"duplicate physical index", func(d *EntityDefinition) {
			dup := d.Indexes[1]
			dup.Name = "again"
			d.Indexes = append(d.Indexes, dup)
		}},
		{"invalid attribute", func(d *EntityDefinition) { d.Attributes[0].Type = "uuid" }},
		{"index on unknown attribute", func(d *EntityDefinition) {
			d.Indexes[0].PK.Composite = keys.Template{"ghost"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := employeeDefinition()
			tt.mutate(&def)
			_, err := DefineEntity(def)
			require.ErrorIs(t, err, ErrInvalidEntity)
		})
	}
}

func TestEntity_Keys(t *testing.T) {
	e := mustEntity(t, employeeDefinition())

	t.Run("all indexes", func(t *testing.T) {
		got, err := e.Keys(keys.Values{"id": "E1", "office": "Gw", "team": "core", "level": 7})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"pk":     "$taskapp#id_e1",
			"sk":     "$employee_1",
			"gsi1pk": "$taskapp#office_gw",
			"gsi1sk": "$office#team_core#level_007",
		}, got)
	})

	t.Run("sparse gsi", func(t *testing.T) {
		got, err := e.Keys(keys.Values{"id": "E1", "office": "Gw"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"pk": "$taskapp#id_e1", "sk": "$employee_1"}, got)
	})

	t.Run("table index is required", func(t *testing.T) {
		_, err := e.Keys(keys.Values{"office": "Gw"})
		require.ErrorIs(t, err, keys.ErrAttributeMissing)
	})
}

func TestEntity_Item(t *testing.T) {
	e := mustEntity(t, employeeDefinition())

	item, err := e.Item(keys.Values{"id": "E1", "office": "Gw", "team": "core", "level": 7, "bio": "likes #go"})
	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Employee"}, item[TypeField])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "1"}, item[VersionField])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "$office#team_core#level_007"}, item["gsi1sk"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, item["level"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "likes #go"}, item["bio"])

	owner, err := IdentifyByTag(item)
	require.NoError(t, err)
	assert.Equal(t, ItemOwner{Entity: "Employee", Version: "1"}, owner)

	t.Run("unknown attribute", func(t *testing.T) {
		_, err := e.Item(keys.Values{"id": "E1", "salary": 1})
		require.ErrorIs(t, err, keys.ErrUnknownAttribute)
	})

	t.Run("key attribute with delimiter", func(t *testing.T) {
		_, err := e.Item(keys.Values{"id": "E#1"})
		require.ErrorIs(t, err, keys.ErrDelimiterCollision)
	})

	t.Run("key attribute overflows padding", func(t *testing.T) {
		_, err := e.Item(keys.Values{"id": "E1", "office": "Gw", "team": "core", "level": 1000})
		require.ErrorIs(t, err, keys.ErrValueOverflow)
	})
}
