package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/tags"
)

func testSolution() udi.Solution {
	samples := &udi.EntityOption{
		Entity: "samples",
		URL:    "./data/samples.csv",
		ForeignKeys: []udi.ForeignKey{
			{
				Fields:    udi.FieldList{"donor_id"},
				Reference: udi.Reference{Resource: "donors", Fields: udi.FieldList{"id"}},
			},
			{
				Fields:    udi.FieldList{"site", "visit"},
				Reference: udi.Reference{Resource: "visits", Fields: udi.FieldList{"site_id", "visit_no"}},
			},
		},
	}
	return udi.Solution{
		"E":     &udi.EntityOption{Entity: "cars", URL: "./cars.csv"},
		"E_F":   &udi.FieldOption{Entity: "cars", Name: "origin"},
		"E1":    samples,
		"E2":    &udi.EntityOption{Entity: "donors", URL: "./data/donors.csv"},
		"E3":    &udi.EntityOption{Entity: "visits", URL: "./data/visits.csv"},
		"E1_F1": &udi.FieldOption{Entity: "samples", Name: "weight_lte_threshold"},
	}
}

func TestQuery(t *testing.T) {
	sol := testSolution()
	ext, err := tags.Extract("How many <E> are there, grouped by <F:n>?")
	require.NoError(t, err)

	got, err := Query("How many <E> are there, grouped by <F:n>?", ext.Tags, sol)
	require.NoError(t, err)
	assert.Equal(t, "How many cars are there, grouped by origin?", got)
}

func TestQueryFirstOccurrence(t *testing.T) {
	sol := testSolution()
	template := "<E1.F1:q> of <E1> and again <E1.F1:q>"
	ext, err := tags.Extract(template)
	require.NoError(t, err)

	got, err := Query(template, ext.Tags, sol)
	require.NoError(t, err)
	assert.Equal(t, "weight_lte_threshold of samples and again weight_lte_threshold", got)

	got, err = Query(template, ext.Tags[:2], sol)
	require.NoError(t, err)
	assert.Equal(t, "weight_lte_threshold of samples and again <E1.F1:q>", got)
}

func TestQueryUnbound(t *testing.T) {
	ext, err := tags.Extract("<E9>")
	require.NoError(t, err)
	_, err = Query("<E9>", ext.Tags, testSolution())
	assert.True(t, udi.ErrUnboundVariable.Is(err))
}

func TestSpec(t *testing.T) {
	sol := testSolution()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "entity and default field",
			template: `{"source": {"name": "<E>", "source": "<E.url>"}, "groupby": "<F>"}`,
			want:     `{"source": {"name": "cars", "source": "./cars.csv"}, "groupby": "origin"}`,
		},
		{
			name:     "scoped field with type filter",
			template: `{"field": "<E1.F1:q>", "entity": "<E1>"}`,
			want:     `{"field": "weight_lte_threshold", "entity": "samples"}`,
		},
		{
			name:     "single field relationship",
			template: `{"in": "<E1>", "on": {"left": "<E1.r.E2.id.from>", "right": "<E1.r.E2.id.to>"}}`,
			want:     `{"in": "samples", "on": {"left": "donor_id", "right": "id"}}`,
		},
		{
			name:     "multi field relationship is a quoted list",
			template: `{"on": {"left": "<E1.r.E3.id.from>", "right": "<E1.r.E3.id.to>"}}`,
			want:     `{"on": {"left": ["site","visit"], "right": ["site_id","visit_no"]}}`,
		},
		{
			name:     "multi field relationship without quotes",
			template: `{"on": <E1.r.E3.id.from>}`,
			want:     `{"on": ["site","visit"]}`,
		},
		{
			name:     "comparison placeholders",
			template: `{"filter": "d['<E1.F1:q>'] {lte} 10 && d['<F>'] {gt} 2 && x {gte} y && a {lt} b"}`,
			want:     `{"filter": "d['weight_lte_threshold'] <= 10 && d['origin'] > 2 && x >= y && a < b"}`,
		},
		{
			name:     "placeholder adjacent to tag",
			template: `<F>{lte}<E1.F1>`,
			want:     `origin<=weight_lte_threshold`,
		},
		{
			name:     "no tags",
			template: `{"mark": "bar"}`,
			want:     `{"mark": "bar"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Spec(tt.template, sol)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecIdempotent(t *testing.T) {
	sol := testSolution()
	template := `{"a": "<E1>", "b": "<E1.r.E3.id.to>", "c": "<F> {lte} 3"}`

	first, err := Spec(template, sol)
	require.NoError(t, err)
	second, err := Spec(template, sol)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	e1, _ := sol.Entity("E1")
	assert.Len(t, e1.ForeignKeys, 2)
	assert.Equal(t, udi.FieldList{"site_id", "visit_no"}, e1.ForeignKeys[1].Reference.Fields)
}

func TestSpecDoesNotRescanValues(t *testing.T) {
	sol := udi.Solution{
		"E":   &udi.EntityOption{Entity: "odd"},
		"E_F": &udi.FieldOption{Entity: "odd", Name: "<E>"},
	}
	got, err := Spec(`"<F>" "<E>"`, sol)
	require.NoError(t, err)
	assert.Equal(t, `"<E>" "odd"`, got)
}

func TestSpecErrors(t *testing.T) {
	sol := testSolution()

	tests := []struct {
		name     string
		template string
		kind     interface{ Is(error) bool }
	}{
		{"three segments", `"<E1.r.E2>"`, udi.ErrMalformedSpecTag},
		{"four segments", `"<E1.r.E2.id>"`, udi.ErrMalformedSpecTag},
		{"bad relationship shape", `"<E1.x.E2.id.from>"`, udi.ErrMalformedSpecTag},
		{"bad direction", `"<E1.r.E2.id.sideways>"`, udi.ErrMalformedSpecTag},
		{"missing foreign key", `"<E2.r.E1.id.from>"`, udi.ErrMissingForeignKey},
		{"unbound entity", `"<E7>"`, udi.ErrUnboundVariable},
		{"unbound field", `"<E1.F9>"`, udi.ErrUnboundVariable},
		{"unbound url entity", `"<E8.url>"`, udi.ErrUnboundVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Spec(tt.template, sol)
			require.Error(t, err)
			assert.True(t, tt.kind.Is(err), "unexpected error: %v", err)
		})
	}
}
