package udi

import (
	"sort"
	"strings"
)

// Attributed is implemented by every value a constraint can look into with
// dictionary-style access, e.g. E_F['udi:cardinality'].
type Attributed interface {
	// Attr returns the attribute value and whether it is present.
	Attr(key string) (interface{}, bool)
}

// OptionKind distinguishes entity options from field options.
type OptionKind int

const (
	EntityKind OptionKind = iota
	FieldKind
)

func (k OptionKind) String() string {
	if k == EntityKind {
		return "entity"
	}
	return "field"
}

// Option is one candidate binding for a tag variable.
type Option interface {
	Attributed
	Kind() OptionKind
	// Label is the text substituted for the variable in templates.
	Label() string
	// Map returns a JSON-friendly copy of the option's attributes.
	Map() map[string]interface{}
}

// EntityOption is a candidate binding for an entity variable.
type EntityOption struct {
	Entity string
	URL    string
	// Cardinality is the row count of the resource; HasCardinality is
	// false when the schema does not record one.
	Cardinality    int64
	HasCardinality bool
	Fields         []string
	ForeignKeys    []ForeignKey
}

func (e *EntityOption) Kind() OptionKind { return EntityKind }
func (e *EntityOption) Label() string    { return e.Entity }

// Attr implements Attributed.
func (e *EntityOption) Attr(key string) (interface{}, bool) {
	switch key {
	case "entity":
		return e.Entity, true
	case "url":
		return e.URL, true
	case "udi:cardinality":
		return present(e.Cardinality, e.HasCardinality)
	case "fields":
		return stringsToValues(e.Fields), true
	case "foreignKeys":
		return foreignKeyValues(e.ForeignKeys), true
	}
	return nil, false
}

func (e *EntityOption) Map() map[string]interface{} {
	out := map[string]interface{}{
		"entity":      e.Entity,
		"url":         e.URL,
		"fields":      append([]string(nil), e.Fields...),
		"foreignKeys": append([]ForeignKey(nil), e.ForeignKeys...),
	}
	if e.HasCardinality {
		out["udi:cardinality"] = e.Cardinality
	}
	return out
}

// ForeignKeyTo returns the first foreign key of e that references entity.
func (e *EntityOption) ForeignKeyTo(entity string) (ForeignKey, bool) {
	return FindForeignKey(e.ForeignKeys, entity)
}

// FieldOption is a candidate binding for a field variable. It carries its
// owning entity's context so constraints can cross-reference uniformly.
//
// Numeric metadata the schema does not record is absent: the matching
// Has flag is false and Attr reports the key as missing.
type FieldOption struct {
	Entity         string
	Name           string
	DataType       string
	Cardinality    int64
	HasCardinality bool
	URL            string
	RowCount       int64
	HasRowCount    bool
	ColumnCount    int64
	HasColumnCount bool
	ForeignKeys    []ForeignKey
	// Attrs holds the raw field record.
	Attrs map[string]interface{}
}

func (f *FieldOption) Kind() OptionKind { return FieldKind }
func (f *FieldOption) Label() string    { return f.Name }

// Attr implements Attributed. Typed attributes take precedence over the raw record.
func (f *FieldOption) Attr(key string) (interface{}, bool) {
	switch key {
	case "entity":
		return f.Entity, true
	case "name":
		return f.Name, true
	case "udi:data_type":
		return f.DataType, true
	case "udi:cardinality":
		return present(f.Cardinality, f.HasCardinality)
	case "url":
		return f.URL, true
	case "row_count":
		return present(f.RowCount, f.HasRowCount)
	case "column_count":
		return present(f.ColumnCount, f.HasColumnCount)
	case "foreignKeys":
		return foreignKeyValues(f.ForeignKeys), true
	}
	v, ok := f.Attrs[key]
	return v, ok
}

func (f *FieldOption) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(f.Attrs)+8)
	for k, v := range f.Attrs {
		out[k] = v
	}
	out["entity"] = f.Entity
	out["name"] = f.Name
	out["udi:data_type"] = f.DataType
	out["url"] = f.URL
	delete(out, "udi:cardinality")
	if f.HasCardinality {
		out["udi:cardinality"] = f.Cardinality
	}
	if f.HasRowCount {
		out["row_count"] = f.RowCount
	}
	if f.HasColumnCount {
		out["column_count"] = f.ColumnCount
	}
	out["foreignKeys"] = append([]ForeignKey(nil), f.ForeignKeys...)
	return out
}

func present(v int64, ok bool) (interface{}, bool) {
	if !ok {
		return nil, false
	}
	return v, true
}

// FindForeignKey returns the first key in fks whose reference resource is entity.
func FindForeignKey(fks []ForeignKey, entity string) (ForeignKey, bool) {
	for _, fk := range fks {
		if fk.Reference.Resource == entity {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func foreignKeyValues(fks []ForeignKey) []interface{} {
	out := make([]interface{}, len(fks))
	for i, fk := range fks {
		out[i] = fk
	}
	return out
}

// Solution maps variable names (E, E1, E_F, E1_F1, ...) to bound options.
type Solution map[string]Option

// Names returns the bound variable names in sorted order.
func (s Solution) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the option bound to name.
func (s Solution) Lookup(name string) (Option, bool) {
	opt, ok := s[name]
	return opt, ok
}

// Entity returns the entity option bound to name.
func (s Solution) Entity(name string) (*EntityOption, bool) {
	e, ok := s[name].(*EntityOption)
	return e, ok
}

// Field returns the field option bound to name.
func (s Solution) Field(name string) (*FieldOption, bool) {
	f, ok := s[name].(*FieldOption)
	return f, ok
}

// Clean serializes the solution with dot-separated keys (E_F becomes E.F).
// Field entries drop their transient foreign keys.
func (s Solution) Clean() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(s))
	for name, opt := range s {
		m := opt.Map()
		if opt.Kind() == FieldKind {
			delete(m, "foreignKeys")
		}
		out[strings.Replace(name, "_", ".", 1)] = m
	}
	return out
}
