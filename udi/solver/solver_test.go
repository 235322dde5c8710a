package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/expr"
	"github.com/dqvis/udigen/udi/lower"
	"github.com/dqvis/udigen/udi/tags"
)

func field(entity, name, dataType string, card int64) *udi.FieldOption {
	return &udi.FieldOption{
		Entity:         entity,
		Name:           name,
		DataType:       dataType,
		Cardinality:    card,
		HasCardinality: true,
		Attrs:          map[string]interface{}{"name": name, "udi:data_type": dataType, "udi:cardinality": card},
	}
}

func compile(t *testing.T, template string, raw ...string) (*tags.Extraction, []lower.Constraint) {
	t.Helper()
	ext, err := tags.Extract(template)
	require.NoError(t, err)
	cs, err := lower.Lower(raw, ext)
	require.NoError(t, err)
	return ext, cs
}

func carsSchema() ([]*udi.EntityOption, []*udi.FieldOption) {
	entities := []*udi.EntityOption{
		{Entity: "cars", Cardinality: 50, HasCardinality: true, Fields: []string{"origin", "maker", "mpg"}},
	}
	fields := []*udi.FieldOption{
		field("cars", "origin", udi.Nominal, 3),
		field("cars", "maker", udi.Nominal, 40),
		field("cars", "mpg", udi.Quantitative, 45),
	}
	return entities, fields
}

func TestSolveEndToEnd(t *testing.T) {
	entities, fields := carsSchema()
	ext, cs := compile(t, "How many <E> are there, grouped by <F:n>?", "F.c * 2 < E.c", "F.c > 1", "F.c <= 4")

	sols, err := Solve(ext.Entities, ext.Fields, cs, entities, fields)
	require.NoError(t, err)
	require.Len(t, sols, 1)

	e, ok := sols[0].Entity("E")
	require.True(t, ok)
	assert.Equal(t, "cars", e.Entity)
	f, ok := sols[0].Field("E_F")
	require.True(t, ok)
	assert.Equal(t, "origin", f.Name)
	assert.Equal(t, int64(3), f.Cardinality)
}

func TestSolveUniquenessAndTypes(t *testing.T) {
	entities, fields := carsSchema()
	fields = append(fields, field("cars", "cylinders", udi.Ordinal, 5))
	ext, cs := compile(t, "<F1:n|o> versus <F2:n|o>")

	sols, err := Solve(ext.Entities, ext.Fields, cs, entities, fields)
	require.NoError(t, err)
	// three candidate fields, ordered pairs of distinct fields
	require.Len(t, sols, 6)

	allowed := map[string][]string{}
	for _, tag := range ext.FieldTags() {
		allowed[tag.Var()] = tag.AllowedTypes
	}

	seen := map[string]bool{}
	for _, sol := range sols {
		f1, _ := sol.Field("E_F1")
		f2, _ := sol.Field("E_F2")
		assert.NotEqual(t, f1.Name, f2.Name)
		for _, v := range ext.Fields {
			f, ok := sol.Field(v)
			require.True(t, ok)
			assert.Contains(t, allowed[v], f.DataType)
		}
		key := f1.Name + "/" + f2.Name
		assert.False(t, seen[key], "duplicate solution %s", key)
		seen[key] = true
	}

	first, _ := sols[0].Field("E_F1")
	second, _ := sols[0].Field("E_F2")
	assert.Equal(t, "origin", first.Name)
	assert.Equal(t, "maker", second.Name)
}

func TestSolveDistinctEntities(t *testing.T) {
	entities := []*udi.EntityOption{{Entity: "a"}, {Entity: "b"}, {Entity: "c"}}
	ext, cs := compile(t, "<E1> and <E2>")

	sols, err := Solve(ext.Entities, ext.Fields, cs, entities, nil)
	require.NoError(t, err)
	require.Len(t, sols, 6)
	for _, sol := range sols {
		e1, _ := sol.Entity("E1")
		e2, _ := sol.Entity("E2")
		assert.NotEqual(t, e1.Entity, e2.Entity)
	}
}

func TestSolveRelationshipExistence(t *testing.T) {
	link := udi.ForeignKey{
		Fields:    udi.FieldList{"donor_id"},
		Reference: udi.Reference{Resource: "donors", Fields: udi.FieldList{"id"}},
	}
	samples := &udi.EntityOption{Entity: "samples", ForeignKeys: []udi.ForeignKey{link}}
	donors := &udi.EntityOption{Entity: "donors"}
	sites := &udi.EntityOption{Entity: "sites"}
	entities := []*udi.EntityOption{samples, donors, sites}

	ext, cs := compile(t, "<E1> per <E2>", "E1.r.E2.c.to == 'one'")

	t.Run("missing cardinality metadata", func(t *testing.T) {
		sols, err := Solve(ext.Entities, ext.Fields, cs, entities, nil)
		require.NoError(t, err)
		assert.Empty(t, sols)
	})

	t.Run("cardinality present", func(t *testing.T) {
		withCard := *samples
		withCard.ForeignKeys = []udi.ForeignKey{link}
		withCard.ForeignKeys[0].Cardinality = &udi.RelationCardinality{From: udi.Many, To: udi.One}

		sols, err := Solve(ext.Entities, ext.Fields, cs, []*udi.EntityOption{&withCard, donors, sites}, nil)
		require.NoError(t, err)
		require.Len(t, sols, 1)
		e1, _ := sols[0].Entity("E1")
		e2, _ := sols[0].Entity("E2")
		assert.Equal(t, "samples", e1.Entity)
		assert.Equal(t, "donors", e2.Entity)
	})

	t.Run("no relationship between pair", func(t *testing.T) {
		_, cs := compile(t, "<E1> per <E2>", "E1.r.E2.c.to != 'one'")
		sols, err := Solve(ext.Entities, ext.Fields, cs, entities, nil)
		require.NoError(t, err)
		assert.Empty(t, sols)
	})
}

func TestSolveNoSolutions(t *testing.T) {
	entities, fields := carsSchema()
	ext, cs := compile(t, "<F:q>", "F.c > 1000")

	sols, err := Solve(ext.Entities, ext.Fields, cs, entities, fields)
	require.NoError(t, err)
	assert.Empty(t, sols)

	sols, err = Solve(ext.Entities, ext.Fields, cs, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestSolveLimitAndStats(t *testing.T) {
	entities := []*udi.EntityOption{{Entity: "a"}, {Entity: "b"}, {Entity: "c"}}
	ext, cs := compile(t, "<E1> and <E2>")

	p, err := NewProblem(ext.Entities, ext.Fields, cs, entities, nil)
	require.NoError(t, err)

	sols, err := p.Solve(Options{Limit: 2})
	require.NoError(t, err)
	require.Len(t, sols, 2)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Variables)
	assert.Equal(t, 1, stats.Constraints)
	assert.Equal(t, 2, stats.Solutions)
	assert.Greater(t, stats.Checks, 0)

	sols, err = p.Solve(Options{})
	require.NoError(t, err)
	assert.Len(t, sols, 6)
}

func TestSolveGroundAndEmpty(t *testing.T) {
	always, err := expr.Parse("1 < 2")
	require.NoError(t, err)
	never, err := expr.Parse("1 > 2")
	require.NoError(t, err)

	sols, err := Solve(nil, nil, []lower.Constraint{{Expr: always}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []udi.Solution{{}}, sols)

	sols, err = Solve(nil, nil, []lower.Constraint{{Expr: never}}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sols)
}

func TestSolveErrors(t *testing.T) {
	entities, fields := carsSchema()

	t.Run("evaluation error", func(t *testing.T) {
		ext, cs := compile(t, "<F:n>", "F.name < 3")
		_, err := Solve(ext.Entities, ext.Fields, cs, entities, fields)
		require.Error(t, err)
		assert.True(t, udi.ErrConstraintEval.Is(err), "unexpected error: %v", err)
	})

	t.Run("undeclared variable", func(t *testing.T) {
		n, err := expr.Parse("E9['entity'] == 'cars'")
		require.NoError(t, err)
		c := lower.Constraint{Expr: n, Vars: []string{"E9"}}
		_, err = NewProblem([]string{"E"}, nil, []lower.Constraint{c}, entities, fields)
		assert.True(t, udi.ErrUnknownVariable.Is(err))
	})

	t.Run("duplicate variable", func(t *testing.T) {
		_, err := NewProblem([]string{"E", "E"}, nil, nil, entities, fields)
		assert.Error(t, err)
	})
}
