package udi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOptions() (*EntityOption, *FieldOption) {
	fks := []ForeignKey{{Fields: FieldList{"donor_id"}, Reference: Reference{Resource: "donors", Fields: FieldList{"id"}}}}
	entity := &EntityOption{
		Entity:         "samples",
		URL:            "./clinic/samples.csv",
		Cardinality:    120,
		HasCardinality: true,
		Fields:         []string{"id", "donor_id", "organ"},
		ForeignKeys:    fks,
	}
	field := &FieldOption{
		Entity:         "samples",
		Name:           "organ",
		DataType:       Nominal,
		Cardinality:    4,
		HasCardinality: true,
		URL:            entity.URL,
		RowCount:       120,
		HasRowCount:    true,
		ColumnCount:    3,
		HasColumnCount: true,
		ForeignKeys:    fks,
		Attrs: map[string]interface{}{
			"name":                   "organ",
			"udi:cardinality":        int64(4),
			"udi:overlapping_fields": "all",
		},
	}
	return entity, field
}

func TestOptionAttrs(t *testing.T) {
	entity, field := sampleOptions()

	tests := []struct {
		opt  Option
		key  string
		want interface{}
	}{
		{entity, "entity", "samples"},
		{entity, "udi:cardinality", int64(120)},
		{entity, "fields", []interface{}{"id", "donor_id", "organ"}},
		{field, "name", "organ"},
		{field, "entity", "samples"},
		{field, "row_count", int64(120)},
		{field, "column_count", int64(3)},
		{field, "udi:data_type", Nominal},
		{field, "udi:overlapping_fields", "all"},
	}
	for _, tt := range tests {
		t.Run(tt.opt.Kind().String()+"/"+tt.key, func(t *testing.T) {
			got, ok := tt.opt.Attr(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := entity.Attr("missing")
	assert.False(t, ok)
	_, ok = field.Attr("missing")
	assert.False(t, ok)

	assert.Equal(t, "samples", entity.Label())
	assert.Equal(t, "organ", field.Label())
}

func TestSolutionClean(t *testing.T) {
	entity, field := sampleOptions()
	sol := Solution{"E1": entity, "E1_F1": field, "E_my_field": field}

	clean := sol.Clean()
	assert.Len(t, clean, 3)
	require.Contains(t, clean, "E1.F1")
	require.Contains(t, clean, "E.my_field")
	assert.NotContains(t, clean["E1.F1"], "foreignKeys")
	assert.Contains(t, clean["E1"], "foreignKeys")
	assert.Equal(t, "organ", clean["E1.F1"]["name"])

	assert.Len(t, field.ForeignKeys, 1)
	assert.Equal(t, []string{"E1", "E1_F1", "E_my_field"}, sol.Names())
}

func TestSolutionLookups(t *testing.T) {
	entity, field := sampleOptions()
	sol := Solution{"E": entity, "E_F": field}

	e, ok := sol.Entity("E")
	require.True(t, ok)
	assert.Equal(t, "samples", e.Entity)
	_, ok = sol.Entity("E_F")
	assert.False(t, ok)

	f, ok := sol.Field("E_F")
	require.True(t, ok)
	assert.Equal(t, "organ", f.Name)

	_, ok = sol.Lookup("E2")
	assert.False(t, ok)

	fk, ok := e.ForeignKeyTo("donors")
	require.True(t, ok)
	assert.Equal(t, FieldList{"donor_id"}, fk.Fields)
}
