package expand

import (
	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/lower"
	"github.com/dqvis/udigen/udi/resolve"
	"github.com/dqvis/udigen/udi/solver"
	"github.com/dqvis/udigen/udi/tags"
)

// Template is a template row with its tags extracted and constraints
// lowered. Compiling once lets every schema reuse the result.
type Template struct {
	Row         udi.TemplateRow
	Tags        *tags.Extraction
	Constraints []lower.Constraint
}

// Compile extracts the tags of row's query template and lowers its constraints.
func Compile(row udi.TemplateRow) (*Template, error) {
	ext, err := tags.Extract(row.QueryTemplate)
	if err != nil {
		return nil, err
	}
	cs, err := lower.Lower(row.Constraints, ext)
	if err != nil {
		return nil, err
	}
	return &Template{Row: row, Tags: ext, Constraints: cs}, nil
}

// Solve enumerates the bindings of t against a flattened schema.
func (t *Template) Solve(entities []*udi.EntityOption, fields []*udi.FieldOption, opts solver.Options) ([]udi.Solution, solver.Stats, error) {
	p, err := solver.NewProblem(t.Tags.Entities, t.Tags.Fields, t.Constraints, entities, fields)
	if err != nil {
		return nil, solver.Stats{}, err
	}
	sols, err := p.Solve(opts)
	return sols, p.Stats(), err
}

// Resolve renders one expanded row per solution.
func (t *Template) Resolve(schema string, sols []udi.Solution) ([]udi.ExpandedRow, error) {
	rows := make([]udi.ExpandedRow, 0, len(sols))
	for _, sol := range sols {
		query, err := resolve.Query(t.Row.QueryTemplate, t.Tags.Tags, sol)
		if err != nil {
			return nil, err
		}
		spec, err := resolve.Spec(t.Row.SpecTemplate, sol)
		if err != nil {
			return nil, err
		}
		rows = append(rows, udi.NewExpandedRow(t.Row, schema, query, spec, sol))
	}
	return rows, nil
}

// ExpandTemplate compiles row and expands it against a single flattened schema.
func ExpandTemplate(row udi.TemplateRow, schema string, entities []*udi.EntityOption, fields []*udi.FieldOption) ([]udi.ExpandedRow, error) {
	t, err := Compile(row)
	if err != nil {
		return nil, err
	}
	sols, _, err := t.Solve(entities, fields, solver.Options{})
	if err != nil {
		return nil, err
	}
	return t.Resolve(schema, sols)
}
