// Package lower turns the constraint expressions written by template authors
// into solver constraints over the tag variables of a template.
//
// Authors write shorthand paths such as F.c, E1.F1.name or E1.r.E2.c.to.
// Lowering rewrites these into explicit attribute lookups, scopes bare field
// labels to the default entity, and adds the constraints every template
// implies: allowed data types, distinct bindings and field ownership.
package lower

import (
	"strings"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/expr"
	"github.com/dqvis/udigen/udi/tags"
)

// Attribute keys addressed by shorthand segments.
const (
	CardinalityKey = "udi:cardinality"
	ForeignKeysKey = "foreignKeys"
	DataTypeKey    = "udi:data_type"
	EntityKey      = "entity"
	NameKey        = "name"
	FieldsKey      = "fields"
)

var shorthand = map[string]string{
	"c":      CardinalityKey,
	"r":      ForeignKeysKey,
	"to":     "to",
	"from":   "from",
	"fields": FieldsKey,
	"name":   NameKey,
}

// reserved segments are never read as a field label after an entity variable.
var reserved = map[string]bool{
	"c": true, "r": true, "to": true, "from": true, "fields": true,
	"name": true, "url": true, "entity": true, "id": true,
}

// Constraint is a lowered, evaluable constraint.
type Constraint struct {
	// Source is the author-written text, or empty for synthesized constraints.
	Source string
	Expr   expr.Node
	// Vars lists the solver variables the constraint reads, sorted.
	Vars []string
}

// String returns the lowered expression.
func (c Constraint) String() string {
	return c.Expr.String()
}

// Holds evaluates the constraint against env.
func (c Constraint) Holds(env expr.Env) (bool, error) {
	return expr.Holds(c.Expr, env)
}

func newConstraint(source string, n expr.Node) Constraint {
	return Constraint{Source: source, Expr: n, Vars: expr.SortedVars(n)}
}

// Lower parses and rewrites raw constraints against the variables declared by
// ext, then appends inferred relationship checks and the synthesized type,
// distinctness and ownership constraints. Blank raw constraints are skipped.
func Lower(raw []string, ext *tags.Extraction) ([]Constraint, error) {
	var out []Constraint
	seen := map[string]bool{}
	add := func(c Constraint) {
		key := c.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	var relations []expr.Node
	for _, src := range raw {
		if strings.TrimSpace(src) == "" {
			continue
		}
		parsed, err := expr.Parse(src)
		if err != nil {
			return nil, udi.ErrInvalidConstraint.New(src, err.Error())
		}
		l := &lowerer{source: src, ext: ext}
		n, err := l.lower(parsed)
		if err != nil {
			return nil, err
		}
		add(newConstraint(src, n))
		relations = append(relations, l.relations...)
	}

	for _, r := range relations {
		add(newConstraint("", r))
	}
	for _, c := range Synthesize(ext) {
		add(c)
	}
	return out, nil
}

// Synthesize returns the constraints implied by the tags alone.
func Synthesize(ext *tags.Extraction) []Constraint {
	var out []Constraint

	for _, t := range ext.FieldTags() {
		out = append(out, newConstraint("", TypeMembership(t.Var(), t.AllowedTypes)))
	}
	for i := 0; i < len(ext.Fields); i++ {
		for j := i + 1; j < len(ext.Fields); j++ {
			out = append(out, newConstraint("", distinct(ext.Fields[i], ext.Fields[j], NameKey)))
		}
	}
	for i := 0; i < len(ext.Entities); i++ {
		for j := i + 1; j < len(ext.Entities); j++ {
			out = append(out, newConstraint("", distinct(ext.Entities[i], ext.Entities[j], EntityKey)))
		}
	}
	for _, f := range ext.Fields {
		entity, _, _ := tags.SplitFieldVar(f)
		out = append(out, newConstraint("", Ownership(f, entity)))
	}
	return out
}

// TypeMembership builds v['udi:data_type'] in [types...].
func TypeMembership(v string, types []string) expr.Node {
	list := &expr.List{}
	for _, t := range types {
		list.Elems = append(list.Elems, &expr.Literal{Value: t})
	}
	return &expr.Compare{
		Ops:   []string{"in"},
		Terms: []expr.Node{attr(v, DataTypeKey), list},
	}
}

// Ownership builds field['entity'] == entity['entity'].
func Ownership(field, entity string) expr.Node {
	return &expr.Compare{
		Ops:   []string{"=="},
		Terms: []expr.Node{attr(field, EntityKey), attr(entity, EntityKey)},
	}
}

func distinct(a, b, key string) expr.Node {
	return &expr.Compare{
		Ops:   []string{"!="},
		Terms: []expr.Node{attr(a, key), attr(b, key)},
	}
}

func attr(v, key string) expr.Node {
	return &expr.Attr{X: &expr.Var{Name: v}, Key: key}
}

type lowerer struct {
	source    string
	ext       *tags.Extraction
	relations []expr.Node
}

func (l *lowerer) lower(n expr.Node) (expr.Node, error) {
	switch n := n.(type) {
	case *expr.Var:
		return l.variable(n.Name)

	case *expr.Literal:
		return n, nil

	case *expr.List:
		elems, err := l.lowerAll(n.Elems)
		if err != nil {
			return nil, err
		}
		return &expr.List{Elems: elems}, nil

	case *expr.Member:
		return l.member(n)

	case *expr.Attr:
		x, err := l.lower(n.X)
		if err != nil {
			return nil, err
		}
		return &expr.Attr{X: x, Key: n.Key}, nil

	case *expr.Index:
		x, err := l.lower(n.X)
		if err != nil {
			return nil, err
		}
		key, err := l.lower(n.Key)
		if err != nil {
			return nil, err
		}
		return &expr.Index{X: x, Key: key}, nil

	case *expr.Unary:
		x, err := l.lower(n.X)
		if err != nil {
			return nil, err
		}
		return &expr.Unary{Op: n.Op, X: x}, nil

	case *expr.Binary:
		left, right, err := l.lowerPair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: n.Op, Left: left, Right: right}, nil

	case *expr.Logical:
		left, right, err := l.lowerPair(n.Left, n.Right)
		if err != nil {
			return nil, err
		}
		return &expr.Logical{Op: n.Op, Left: left, Right: right}, nil

	case *expr.Compare:
		terms, err := l.lowerAll(n.Terms)
		if err != nil {
			return nil, err
		}
		return &expr.Compare{Ops: append([]string(nil), n.Ops...), Terms: terms}, nil

	case *expr.Related, *expr.RelationExists:
		return n, nil
	}
	return nil, udi.ErrInvalidConstraint.New(l.source, "unsupported expression "+n.String())
}

func (l *lowerer) lowerAll(nodes []expr.Node) ([]expr.Node, error) {
	out := make([]expr.Node, len(nodes))
	for i, n := range nodes {
		ln, err := l.lower(n)
		if err != nil {
			return nil, err
		}
		out[i] = ln
	}
	return out, nil
}

func (l *lowerer) lowerPair(a, b expr.Node) (expr.Node, expr.Node, error) {
	left, err := l.lower(a)
	if err != nil {
		return nil, nil, err
	}
	right, err := l.lower(b)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// variable resolves a bare identifier to a declared solver variable.
func (l *lowerer) variable(name string) (expr.Node, error) {
	v := name
	if !tags.IsEntityVar(name) && !strings.Contains(name, "_") {
		v = tags.FieldVar(tags.DefaultEntity, name)
	}
	if !l.ext.HasEntity(v) && !l.ext.HasField(v) {
		return nil, udi.ErrUnknownVariable.New(l.source, v)
	}
	return &expr.Var{Name: v}, nil
}

// member rewrites one dotted segment. The relationship path X.r.Y with both
// X and Y entity variables becomes a foreign key lookup keyed by Y's entity.
func (l *lowerer) member(m *expr.Member) (expr.Node, error) {
	if head, ok := m.X.(*expr.Var); ok && tags.IsEntityVar(head.Name) {
		field := tags.FieldVar(head.Name, m.Name)
		if l.ext.HasField(field) || !reserved[m.Name] {
			if !l.ext.HasField(field) {
				return nil, udi.ErrUnknownVariable.New(l.source, field)
			}
			return &expr.Var{Name: field}, nil
		}
	}

	if inner, ok := m.X.(*expr.Member); ok && inner.Name == "r" && tags.IsEntityVar(m.Name) {
		if from, ok := inner.X.(*expr.Var); ok && tags.IsEntityVar(from.Name) {
			if !l.ext.HasEntity(from.Name) {
				return nil, udi.ErrUnknownVariable.New(l.source, from.Name)
			}
			if !l.ext.HasEntity(m.Name) {
				return nil, udi.ErrUnknownVariable.New(l.source, m.Name)
			}
			l.relations = append(l.relations, &expr.RelationExists{From: from.Name, To: m.Name})
			return &expr.Related{From: from.Name, To: m.Name}, nil
		}
	}

	x, err := l.lower(m.X)
	if err != nil {
		return nil, err
	}
	key, ok := shorthand[m.Name]
	if !ok {
		key = m.Name
	}
	return &expr.Attr{X: x, Key: key}, nil
}
