// Package solver enumerates every assignment of schema options to tag
// variables that satisfies a set of lowered constraints.
//
// A Problem is an explicit arena: variables with finite domains of option
// indexes, and constraints that know which variables they read. Solving
// applies node consistency to unary constraints and then runs a depth-first
// search with forward checking. Solutions are produced in lexicographic order
// of (variable order, option order), so results are deterministic.
package solver

import (
	"fmt"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/lower"
)

// Options configures a solve.
type Options struct {
	// Limit caps the number of solutions returned. Zero means unlimited.
	Limit int
}

// Stats describes the work done by the last solve.
type Stats struct {
	Variables   int
	Constraints int
	// Nodes counts partial assignments visited by the search.
	Nodes int
	// Checks counts constraint evaluations.
	Checks    int
	Solutions int
}

type variable struct {
	name    string
	options []udi.Option
	domain  []int
}

type constraint struct {
	c    lower.Constraint
	vars []int
	// last is the highest variable index read; the constraint is fully
	// assigned once the search has bound it.
	last int
}

// Problem is a constraint satisfaction problem over tag variables.
type Problem struct {
	vars        []*variable
	index       map[string]int
	constraints []*constraint
	// byVar lists, per variable, the constraints that read it.
	byVar  [][]*constraint
	ground []lower.Constraint
	stats  Stats
}

// NewProblem declares every entity variable over all entity options and
// every field variable over all field options. Constraints may only read
// declared variables.
func NewProblem(entityVars, fieldVars []string, constraints []lower.Constraint, entities []*udi.EntityOption, fields []*udi.FieldOption) (*Problem, error) {
	entityOpts := make([]udi.Option, len(entities))
	for i, e := range entities {
		entityOpts[i] = e
	}
	fieldOpts := make([]udi.Option, len(fields))
	for i, f := range fields {
		fieldOpts[i] = f
	}

	p := &Problem{index: map[string]int{}}
	for _, name := range entityVars {
		if err := p.declare(name, entityOpts); err != nil {
			return nil, err
		}
	}
	for _, name := range fieldVars {
		if err := p.declare(name, fieldOpts); err != nil {
			return nil, err
		}
	}

	p.byVar = make([][]*constraint, len(p.vars))
	for _, c := range constraints {
		if len(c.Vars) == 0 {
			p.ground = append(p.ground, c)
			continue
		}
		pc := &constraint{c: c, last: -1}
		for _, name := range c.Vars {
			i, ok := p.index[name]
			if !ok {
				return nil, udi.ErrUnknownVariable.New(c.String(), name)
			}
			pc.vars = append(pc.vars, i)
			if i > pc.last {
				pc.last = i
			}
			p.byVar[i] = append(p.byVar[i], pc)
		}
		p.constraints = append(p.constraints, pc)
	}
	return p, nil
}

func (p *Problem) declare(name string, options []udi.Option) error {
	if _, dup := p.index[name]; dup {
		return fmt.Errorf("variable %s declared twice", name)
	}
	v := &variable{name: name, options: options, domain: make([]int, len(options))}
	for i := range options {
		v.domain[i] = i
	}
	p.index[name] = len(p.vars)
	p.vars = append(p.vars, v)
	return nil
}

// Stats returns the counters of the last Solve call.
func (p *Problem) Stats() Stats {
	return p.stats
}

// Solve enumerates solutions. An empty result is not an error.
func (p *Problem) Solve(opts Options) ([]udi.Solution, error) {
	p.stats = Stats{Variables: len(p.vars), Constraints: len(p.constraints) + len(p.ground)}

	s := &search{
		p:      p,
		assign: make([]int, len(p.vars)),
		limit:  opts.Limit,
	}
	for i := range s.assign {
		s.assign[i] = unassigned
	}

	for _, c := range p.ground {
		p.stats.Checks++
		ok, err := c.Holds(s)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	domains, err := s.nodeConsistency()
	if err != nil {
		return nil, err
	}
	if len(p.vars) == 0 {
		// A template without tags is satisfied by the empty assignment.
		s.solutions = append(s.solutions, udi.Solution{})
	} else if err := s.dfs(0, domains); err != nil {
		return nil, err
	}
	p.stats.Solutions = len(s.solutions)
	return s.solutions, nil
}

// Solve builds a problem and enumerates all of its solutions.
func Solve(entityVars, fieldVars []string, constraints []lower.Constraint, entities []*udi.EntityOption, fields []*udi.FieldOption) ([]udi.Solution, error) {
	p, err := NewProblem(entityVars, fieldVars, constraints, entities, fields)
	if err != nil {
		return nil, err
	}
	return p.Solve(Options{})
}

const unassigned = -1

// search is the mutable state of one Solve call. It doubles as the
// evaluation environment for constraints.
type search struct {
	p         *Problem
	assign    []int
	limit     int
	solutions []udi.Solution
}

// Lookup implements expr.Env over the current partial assignment.
func (s *search) Lookup(name string) (udi.Option, bool) {
	i, ok := s.p.index[name]
	if !ok || s.assign[i] == unassigned {
		return nil, false
	}
	v := s.p.vars[i]
	return v.options[s.assign[i]], true
}

func (s *search) check(c *constraint) (bool, error) {
	s.p.stats.Checks++
	return c.c.Holds(s)
}

// nodeConsistency filters each domain by the constraints that read only
// that variable.
func (s *search) nodeConsistency() ([][]int, error) {
	domains := make([][]int, len(s.p.vars))
	for i, v := range s.p.vars {
		var unary []*constraint
		for _, c := range s.p.byVar[i] {
			if len(c.vars) == 1 {
				unary = append(unary, c)
			}
		}

		kept := make([]int, 0, len(v.domain))
		for _, opt := range v.domain {
			s.assign[i] = opt
			ok, err := s.all(unary)
			if err != nil {
				s.assign[i] = unassigned
				return nil, err
			}
			if ok {
				kept = append(kept, opt)
			}
		}
		s.assign[i] = unassigned
		domains[i] = kept
	}
	return domains, nil
}

func (s *search) all(cs []*constraint) (bool, error) {
	for _, c := range cs {
		ok, err := s.check(c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// dfs assigns variable i from its current domain. domains holds the
// remaining candidates of every variable at this depth and is never
// modified in place.
func (s *search) dfs(i int, domains [][]int) error {
	for _, opt := range domains[i] {
		if s.done() {
			return nil
		}
		s.p.stats.Nodes++
		s.assign[i] = opt

		ok, err := s.consistent(i)
		if err != nil {
			s.assign[i] = unassigned
			return err
		}
		if !ok {
			continue
		}

		if i == len(s.p.vars)-1 {
			s.solutions = append(s.solutions, s.solution())
			continue
		}

		next, ok, err := s.forwardCheck(i, domains)
		if err != nil {
			s.assign[i] = unassigned
			return err
		}
		if ok {
			if err := s.dfs(i+1, next); err != nil {
				s.assign[i] = unassigned
				return err
			}
		}
	}
	s.assign[i] = unassigned
	return nil
}

// consistent checks the constraints completed by assigning variable i.
func (s *search) consistent(i int) (bool, error) {
	for _, c := range s.p.byVar[i] {
		if c.last != i || len(c.vars) == 1 {
			continue
		}
		ok, err := s.check(c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// forwardCheck prunes the domains of future variables using constraints
// whose only unassigned variable is that future variable. It reports false
// when some domain becomes empty.
func (s *search) forwardCheck(i int, domains [][]int) ([][]int, bool, error) {
	next := make([][]int, len(domains))
	copy(next, domains)

	for j := i + 1; j < len(s.p.vars); j++ {
		var pending []*constraint
		for _, c := range s.p.byVar[j] {
			if c.last == j && len(c.vars) > 1 && s.onlyUnassigned(c, j) {
				pending = append(pending, c)
			}
		}
		if len(pending) == 0 {
			continue
		}

		kept := make([]int, 0, len(domains[j]))
		for _, opt := range domains[j] {
			s.assign[j] = opt
			ok, err := s.all(pending)
			if err != nil {
				s.assign[j] = unassigned
				return nil, false, err
			}
			if ok {
				kept = append(kept, opt)
			}
		}
		s.assign[j] = unassigned
		if len(kept) == 0 {
			return nil, false, nil
		}
		next[j] = kept
	}
	return next, true, nil
}

func (s *search) onlyUnassigned(c *constraint, j int) bool {
	for _, v := range c.vars {
		if v != j && s.assign[v] == unassigned {
			return false
		}
	}
	return true
}

func (s *search) done() bool {
	return s.limit > 0 && len(s.solutions) >= s.limit
}

func (s *search) solution() udi.Solution {
	sol := make(udi.Solution, len(s.assign))
	for i, v := range s.p.vars {
		sol[v.name] = v.options[s.assign[i]]
	}
	return sol
}
