// Package expr implements the constraint expression language evaluated by
// the solver: a small typed AST of variable references, attribute access,
// arithmetic, comparisons, membership and boolean combinators.
package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dqvis/udigen/udi"
)

// Env resolves variable names to bound schema options.
type Env interface {
	Lookup(name string) (udi.Option, bool)
}

// Node is an evaluable constraint expression.
type Node interface {
	// Eval evaluates the expression against the bindings in env
	Eval(env Env) (interface{}, error)

	// Vars returns the variables this expression needs, without duplicates
	Vars() []string

	String() string

	precedence() int
}

// Undefined is the value of an attribute lookup that finds nothing.
// Comparisons and membership tests against it are false.
var Undefined = undefined{}

type undefined struct{}

func (undefined) String() string { return "undefined" }

// IsUndefined reports whether v carries no usable value.
func IsUndefined(v interface{}) bool {
	return v == nil || v == Undefined
}

const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precPostfix
)

// Var references a solver variable such as E or E1_F1.
type Var struct {
	Name string
}

func (v *Var) Eval(env Env) (interface{}, error) {
	opt, ok := env.Lookup(v.Name)
	if !ok {
		return nil, udi.ErrConstraintEval.New(v.Name, "variable is not bound")
	}
	return opt, nil
}

func (v *Var) Vars() []string  { return []string{v.Name} }
func (v *Var) String() string  { return v.Name }
func (v *Var) precedence() int { return precPostfix }

// Literal is a constant value.
type Literal struct {
	Value interface{}
}

func (l *Literal) Eval(env Env) (interface{}, error) { return l.Value, nil }
func (l *Literal) Vars() []string                    { return nil }
func (l *Literal) precedence() int                   { return precPostfix }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// List is a list literal such as ['nominal', 'ordinal'].
type List struct {
	Elems []Node
}

func (l *List) Eval(env Env) (interface{}, error) {
	out := make([]interface{}, len(l.Elems))
	for i, e := range l.Elems {
		v, err := e.Eval(env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l *List) Vars() []string  { return collectVars(l.Elems...) }
func (l *List) precedence() int { return precPostfix }

func (l *List) String() string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Member is a dotted access X.Name as written by template authors. Lowering
// rewrites members into Attr lookups.
type Member struct {
	X    Node
	Name string
}

func (m *Member) Eval(env Env) (interface{}, error) {
	x, err := m.X.Eval(env)
	if err != nil {
		return nil, err
	}
	return lookup(x, m.Name, m)
}

func (m *Member) Vars() []string  { return m.X.Vars() }
func (m *Member) String() string  { return wrap(m.X, precPostfix) + "." + m.Name }
func (m *Member) precedence() int { return precPostfix }

// Attr is a dictionary-style attribute lookup X['key'].
type Attr struct {
	X   Node
	Key string
}

func (a *Attr) Eval(env Env) (interface{}, error) {
	x, err := a.X.Eval(env)
	if err != nil {
		return nil, err
	}
	return lookup(x, a.Key, a)
}

func (a *Attr) Vars() []string  { return a.X.Vars() }
func (a *Attr) String() string  { return wrap(a.X, precPostfix) + "[" + quote(a.Key) + "]" }
func (a *Attr) precedence() int { return precPostfix }

// Index is a subscript with a computed key: X[Key].
type Index struct {
	X   Node
	Key Node
}

func (ix *Index) Eval(env Env) (interface{}, error) {
	x, err := ix.X.Eval(env)
	if err != nil {
		return nil, err
	}
	k, err := ix.Key.Eval(env)
	if err != nil {
		return nil, err
	}
	if IsUndefined(x) || IsUndefined(k) {
		return Undefined, nil
	}
	switch key := k.(type) {
	case string:
		return lookup(x, key, ix)
	case int64:
		list, ok := x.([]interface{})
		if !ok {
			return nil, udi.ErrConstraintEval.New(ix.String(), fmt.Sprintf("%T is not subscriptable by position", x))
		}
		if key < 0 {
			key += int64(len(list))
		}
		if key < 0 || key >= int64(len(list)) {
			return Undefined, nil
		}
		return udi.NormalizeValue(list[key]), nil
	}
	return nil, udi.ErrConstraintEval.New(ix.String(), fmt.Sprintf("invalid subscript %T", k))
}

func (ix *Index) Vars() []string  { return collectVars(ix.X, ix.Key) }
func (ix *Index) String() string  { return wrap(ix.X, precPostfix) + "[" + ix.Key.String() + "]" }
func (ix *Index) precedence() int { return precPostfix }

// Related selects the foreign key of entity From that references the entity
// bound to To. It is Undefined when no such key exists.
type Related struct {
	From string
	To   string
}

func (r *Related) Eval(env Env) (interface{}, error) {
	from, to, err := relatedEntities(env, r.From, r.To)
	if err != nil {
		return nil, err
	}
	fk, ok := from.ForeignKeyTo(to.Entity)
	if !ok {
		return Undefined, nil
	}
	return fk, nil
}

func (r *Related) Vars() []string  { return []string{r.From, r.To} }
func (r *Related) precedence() int { return precPostfix }

func (r *Related) String() string {
	return fmt.Sprintf("%s['foreignKeys'][%s['entity']]", r.From, r.To)
}

// RelationExists holds when some foreign key of From references To's entity.
type RelationExists struct {
	From string
	To   string
}

func (r *RelationExists) Eval(env Env) (interface{}, error) {
	from, to, err := relatedEntities(env, r.From, r.To)
	if err != nil {
		return nil, err
	}
	_, ok := from.ForeignKeyTo(to.Entity)
	return ok, nil
}

func (r *RelationExists) Vars() []string  { return []string{r.From, r.To} }
func (r *RelationExists) precedence() int { return precCompare }

func (r *RelationExists) String() string {
	return fmt.Sprintf("%s['entity'] in [fk['reference']['resource'] for fk in %s['foreignKeys']]", r.To, r.From)
}

// Unary is arithmetic negation or logical not.
type Unary struct {
	Op string
	X  Node
}

func (u *Unary) Eval(env Env) (interface{}, error) {
	x, err := u.X.Eval(env)
	if err != nil {
		return nil, err
	}
	if u.Op == "not" {
		return !Truthy(x), nil
	}
	if IsUndefined(x) {
		return Undefined, nil
	}
	switch v := x.(type) {
	case int64:
		return -v, nil
	case float64:
		return -v, nil
	}
	return nil, udi.ErrConstraintEval.New(u.String(), fmt.Sprintf("bad operand type for unary -: %T", x))
}

func (u *Unary) Vars() []string { return u.X.Vars() }

func (u *Unary) String() string {
	if u.Op == "not" {
		return "not " + wrap(u.X, precNot)
	}
	return "-" + wrap(u.X, precUnary)
}

func (u *Unary) precedence() int {
	if u.Op == "not" {
		return precNot
	}
	return precUnary
}

// Binary is an arithmetic operation.
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

func (b *Binary) Eval(env Env) (interface{}, error) {
	left, err := b.Left.Eval(env)
	if err != nil {
		return nil, err
	}
	right, err := b.Right.Eval(env)
	if err != nil {
		return nil, err
	}
	if IsUndefined(left) || IsUndefined(right) {
		return Undefined, nil
	}
	v, err := arithmetic(b.Op, left, right)
	if err != nil {
		return nil, udi.ErrConstraintEval.New(b.String(), err.Error())
	}
	return v, nil
}

func (b *Binary) Vars() []string { return collectVars(b.Left, b.Right) }

func (b *Binary) String() string {
	p := b.precedence()
	return wrap(b.Left, p) + " " + b.Op + " " + wrap(b.Right, p+1)
}

func (b *Binary) precedence() int {
	if b.Op == "+" || b.Op == "-" {
		return precAdd
	}
	return precMul
}

// Compare is a possibly chained comparison: a < b <= c holds when every
// adjacent pair holds. Ops include "in" and "not in".
type Compare struct {
	Ops   []string
	Terms []Node
}

func (c *Compare) Eval(env Env) (interface{}, error) {
	left, err := c.Terms[0].Eval(env)
	if err != nil {
		return nil, err
	}
	for i, op := range c.Ops {
		right, err := c.Terms[i+1].Eval(env)
		if err != nil {
			return nil, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return nil, udi.ErrConstraintEval.New(c.String(), err.Error())
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func (c *Compare) Vars() []string { return collectVars(c.Terms...) }

func (c *Compare) String() string {
	var sb strings.Builder
	sb.WriteString(wrap(c.Terms[0], precCompare+1))
	for i, op := range c.Ops {
		sb.WriteString(" " + op + " ")
		sb.WriteString(wrap(c.Terms[i+1], precCompare+1))
	}
	return sb.String()
}

func (c *Compare) precedence() int { return precCompare }

// Logical is a short-circuiting "and" or "or".
type Logical struct {
	Op    string
	Left  Node
	Right Node
}

func (l *Logical) Eval(env Env) (interface{}, error) {
	left, err := l.Left.Eval(env)
	if err != nil {
		return nil, err
	}
	if l.Op == "and" && !Truthy(left) {
		return false, nil
	}
	if l.Op == "or" && Truthy(left) {
		return true, nil
	}
	right, err := l.Right.Eval(env)
	if err != nil {
		return nil, err
	}
	return Truthy(right), nil
}

func (l *Logical) Vars() []string { return collectVars(l.Left, l.Right) }

func (l *Logical) String() string {
	p := l.precedence()
	return wrap(l.Left, p) + " " + l.Op + " " + wrap(l.Right, p)
}

func (l *Logical) precedence() int {
	if l.Op == "or" {
		return precOr
	}
	return precAnd
}

// Holds evaluates n as a boolean constraint.
func Holds(n Node, env Env) (bool, error) {
	v, err := n.Eval(env)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy applies Python truthiness to a constraint value.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil, undefined:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	}
	return true
}

func lookup(x interface{}, key string, n Node) (interface{}, error) {
	if IsUndefined(x) {
		return Undefined, nil
	}
	a, ok := x.(udi.Attributed)
	if !ok {
		return nil, udi.ErrConstraintEval.New(n.String(), fmt.Sprintf("%T has no attribute %q", x, key))
	}
	v, ok := a.Attr(key)
	if !ok {
		return Undefined, nil
	}
	return udi.NormalizeValue(v), nil
}

func relatedEntities(env Env, fromVar, toVar string) (*udi.EntityOption, *udi.EntityOption, error) {
	entity := func(name string) (*udi.EntityOption, error) {
		opt, ok := env.Lookup(name)
		if !ok {
			return nil, udi.ErrConstraintEval.New(name, "variable is not bound")
		}
		e, ok := opt.(*udi.EntityOption)
		if !ok {
			return nil, udi.ErrConstraintEval.New(name, "relationships are only defined between entities")
		}
		return e, nil
	}
	from, err := entity(fromVar)
	if err != nil {
		return nil, nil, err
	}
	to, err := entity(toVar)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func collectVars(nodes ...Node) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range nodes {
		for _, v := range n.Vars() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// SortedVars returns the variables of n in sorted order.
func SortedVars(n Node) []string {
	vars := n.Vars()
	sort.Strings(vars)
	return vars
}

func wrap(n Node, min int) string {
	if n.precedence() < min {
		return "(" + n.String() + ")"
	}
	return n.String()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
