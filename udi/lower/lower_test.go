package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/tags"
)

func extract(t *testing.T, template string) *tags.Extraction {
	t.Helper()
	ext, err := tags.Extract(template)
	require.NoError(t, err)
	return ext
}

func strs(cs []Constraint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func TestLowerShorthand(t *testing.T) {
	ext := extract(t, "<E1> <E1.F1:q> <E2> <E2.F2:n>")

	tests := []struct {
		raw  string
		want string
	}{
		{"E1.c > 10", "E1['udi:cardinality'] > 10"},
		{"E1.F1.c <= 4", "E1_F1['udi:cardinality'] <= 4"},
		{"E1_F1.name != E2.F2.name", "E1_F1['name'] != E2_F2['name']"},
		{"E2.F2.name in E2.fields", "E2_F2['name'] in E2['fields']"},
		{"E1.url == E2.url", "E1['url'] == E2['url']"},
		{"E1.F1['udi:overlapping_fields'] == 'all'", "E1_F1['udi:overlapping_fields'] == 'all'"},
		{"E1.r.E2.c.to == 'one'", "E1['foreignKeys'][E2['entity']]['udi:cardinality']['to'] == 'one'"},
		{"E1.r.E2.fields == ['id']", "E1['foreignKeys'][E2['entity']]['fields'] == ['id']"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cs, err := Lower([]string{tt.raw}, ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cs[0].String())
			assert.Equal(t, tt.raw, cs[0].Source)
		})
	}
}

func TestLowerRelationship(t *testing.T) {
	ext := extract(t, "<E1> <E2>")

	cs, err := Lower([]string{"E1.r.E2.c.to == 'one'", "E1.r.E2.c.from == 'many'"}, ext)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"E1['foreignKeys'][E2['entity']]['udi:cardinality']['to'] == 'one'",
		"E1['foreignKeys'][E2['entity']]['udi:cardinality']['from'] == 'many'",
		"E2['entity'] in [fk['reference']['resource'] for fk in E1['foreignKeys']]",
		"E1['entity'] != E2['entity']",
	}, strs(cs))
	assert.Equal(t, []string{"E1", "E2"}, cs[2].Vars)
	assert.Empty(t, cs[2].Source)
}

func TestLowerEndToEndTemplate(t *testing.T) {
	ext := extract(t, "How many <E> are there, grouped by <F:n>?")

	cs, err := Lower([]string{"F.c * 2 < E.c", "F.c > 1", "F.c <= 4"}, ext)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"E_F['udi:cardinality'] * 2 < E['udi:cardinality']",
		"E_F['udi:cardinality'] > 1",
		"E_F['udi:cardinality'] <= 4",
		"E_F['udi:data_type'] in ['nominal']",
		"E_F['entity'] == E['entity']",
	}, strs(cs))
	assert.Equal(t, []string{"E", "E_F"}, cs[0].Vars)
	assert.Equal(t, []string{"E_F"}, cs[1].Vars)
}

func TestSynthesize(t *testing.T) {
	ext := extract(t, "<F1:q> against <F2:q|o> and <F3:n>")

	assert.Equal(t, []string{
		"E_F1['udi:data_type'] in ['quantitative']",
		"E_F2['udi:data_type'] in ['quantitative', 'ordinal']",
		"E_F3['udi:data_type'] in ['nominal']",
		"E_F1['name'] != E_F2['name']",
		"E_F1['name'] != E_F3['name']",
		"E_F2['name'] != E_F3['name']",
		"E_F1['entity'] == E['entity']",
		"E_F2['entity'] == E['entity']",
		"E_F3['entity'] == E['entity']",
	}, strs(Synthesize(ext)))
}

func TestSynthesizeSingleVariables(t *testing.T) {
	ext := extract(t, "How many <E>?")
	assert.Empty(t, Synthesize(ext))

	cs, err := Lower(nil, ext)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestLowerDeduplicates(t *testing.T) {
	ext := extract(t, "<F:n> and again <E.F:n>")

	cs, err := Lower([]string{"F.c > 1", "E.F.c > 1", ""}, ext)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"E_F['udi:cardinality'] > 1",
		"E_F['udi:data_type'] in ['nominal']",
		"E_F['entity'] == E['entity']",
	}, strs(cs))
}

func TestLowerErrors(t *testing.T) {
	ext := extract(t, "<E1> <E1.F1:q> <E2>")

	tests := []struct {
		raw  string
		kind interface{ Is(error) bool }
	}{
		{"E1.F9.c > 1", udi.ErrUnknownVariable},
		{"F1.c > 1", udi.ErrUnknownVariable},
		{"E3.c > 1", udi.ErrUnknownVariable},
		{"E1.r.E3.c.to == 'one'", udi.ErrUnknownVariable},
		{"E1.c >", udi.ErrInvalidConstraint},
		{"E1.c = 3", udi.ErrInvalidConstraint},
		{"len(E1.r) > 0", udi.ErrInvalidConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := Lower([]string{tt.raw}, ext)
			require.Error(t, err)
			assert.True(t, tt.kind.Is(err), "unexpected error: %v", err)
			assert.Contains(t, err.Error(), tt.raw)
		})
	}
}

func TestConstraintHolds(t *testing.T) {
	ext := extract(t, "How many <E> are there, grouped by <F:n>?")
	cs, err := Lower([]string{"F.c <= 4"}, ext)
	require.NoError(t, err)

	entity := &udi.EntityOption{Entity: "cars", Cardinality: 50, HasCardinality: true}
	field := &udi.FieldOption{Entity: "cars", Name: "origin", DataType: udi.Nominal, Cardinality: 3, HasCardinality: true}
	sol := udi.Solution{"E": entity, "E_F": field}

	for _, c := range cs {
		ok, err := c.Holds(sol)
		require.NoError(t, err)
		assert.True(t, ok, c.String())
	}

	field.Cardinality = 40
	ok, err := cs[0].Holds(sol)
	require.NoError(t, err)
	assert.False(t, ok)
}
