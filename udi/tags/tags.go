// Package tags extracts the bracketed placeholders of a query template.
//
// A tag is one of
//
//	<E>, <E1>         entity tag
//	<F:n>             field tag scoped to the default entity E
//	<E1.F1:q|n>       field tag scoped to entity variable E1
//
// Every field tag carries a type filter after ':' made of pipe-separated
// short codes (n nominal, o ordinal, q quantitative).
package tags

import (
	"regexp"
	"strings"

	"github.com/dqvis/udigen/udi"
)

// DefaultEntity is the entity variable assumed when a tag omits one.
const DefaultEntity = "E"

// EntityPrefix marks a single-segment tag as an entity variable.
const EntityPrefix = "E"

// Pattern matches a bracketed tag and captures its content.
var Pattern = regexp.MustCompile(`<([^>]+)>`)

var typeCodes = map[string]string{
	"n": udi.Nominal,
	"o": udi.Ordinal,
	"q": udi.Quantitative,
}

// Tag is one parsed placeholder occurrence.
type Tag struct {
	// Original is the text between the angle brackets.
	Original string
	// Entity is the entity variable; empty only before inference.
	Entity string
	// Field is the field label; empty for entity tags.
	Field string
	// AllowedTypes lists the semantic types a field tag accepts.
	AllowedTypes []string
}

// IsField reports whether the tag denotes a field.
func (t Tag) IsField() bool {
	return t.Field != ""
}

// Var returns the solver variable the tag binds: the entity variable for
// entity tags, entityVar_fieldLabel for field tags.
func (t Tag) Var() string {
	if t.IsField() {
		return FieldVar(t.Entity, t.Field)
	}
	return t.Entity
}

// Text returns the tag as written in the template, including brackets.
func (t Tag) Text() string {
	return "<" + t.Original + ">"
}

// Extraction is the result of parsing a template.
type Extraction struct {
	Tags []Tag
	// Entities are the distinct entity variables in order of first appearance.
	Entities []string
	// Fields are the distinct field variables in order of first appearance.
	Fields []string
}

// FieldTags returns the field tags of the extraction.
func (x *Extraction) FieldTags() []Tag {
	var out []Tag
	for _, t := range x.Tags {
		if t.IsField() {
			out = append(out, t)
		}
	}
	return out
}

// HasEntity reports whether name is a declared entity variable.
func (x *Extraction) HasEntity(name string) bool {
	return contains(x.Entities, name)
}

// HasField reports whether name is a declared field variable.
func (x *Extraction) HasField(name string) bool {
	return contains(x.Fields, name)
}

// FieldVar combines an entity variable and a field label.
func FieldVar(entity, field string) string {
	return entity + "_" + field
}

// SplitFieldVar splits a combined field variable into entity and label.
func SplitFieldVar(name string) (entity, field string, ok bool) {
	i := strings.IndexByte(name, '_')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// IsEntityVar reports whether s names an entity variable: the entity prefix
// optionally followed by digits.
func IsEntityVar(s string) bool {
	if !strings.HasPrefix(s, EntityPrefix) {
		return false
	}
	for _, r := range s[len(EntityPrefix):] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Extract parses every tag of text, infers omitted entities and collects the
// distinct entity and field variables.
func Extract(text string) (*Extraction, error) {
	var parsed []Tag
	for _, m := range Pattern.FindAllStringSubmatch(text, -1) {
		tag, err := parseTag(m[1])
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, tag)
	}

	if err := inferEntity(parsed); err != nil {
		return nil, err
	}

	x := &Extraction{Tags: parsed}
	for _, tag := range parsed {
		if !contains(x.Entities, tag.Entity) {
			x.Entities = append(x.Entities, tag.Entity)
		}
		if tag.IsField() && !contains(x.Fields, tag.Var()) {
			x.Fields = append(x.Fields, tag.Var())
		}
	}
	return x, nil
}

func parseTag(content string) (Tag, error) {
	tag := Tag{Original: content}
	parts := strings.Split(content, ".")
	var field string
	switch len(parts) {
	case 1:
		name, _, _ := strings.Cut(parts[0], ":")
		if IsEntityVar(name) {
			tag.Entity = parts[0]
		} else {
			field = parts[0]
		}
	case 2:
		tag.Entity, field = parts[0], parts[1]
		if tag.Entity == "" {
			return Tag{}, udi.ErrMalformedTag.New(content, "entity must not be empty")
		}
		if !strings.Contains(tag.Entity, ":") && !IsEntityVar(tag.Entity) {
			return Tag{}, udi.ErrMalformedTag.New(content, "entity must be "+EntityPrefix+" optionally followed by digits")
		}
	default:
		return Tag{}, udi.ErrMalformedTag.New(content, "there should only be a single '.'")
	}

	if tag.Entity != "" && strings.Contains(tag.Entity, ":") {
		return Tag{}, udi.ErrMalformedTag.New(content, "entity tags take no type filter")
	}
	if field == "" {
		if len(parts) == 2 {
			return Tag{}, udi.ErrMalformedTag.New(content, "field must not be empty")
		}
		return tag, nil
	}

	fieldParts := strings.Split(field, ":")
	if len(fieldParts) != 2 || fieldParts[1] == "" {
		return Tag{}, udi.ErrMissingFieldType.New(content)
	}
	tag.Field = fieldParts[0]
	if tag.Field == "" {
		return Tag{}, udi.ErrMalformedTag.New(content, "field must not be empty")
	}
	for _, code := range strings.Split(fieldParts[1], "|") {
		typ, ok := typeCodes[strings.ToLower(code)]
		if !ok {
			return Tag{}, udi.ErrUnknownFieldType.New(content, code)
		}
		if !contains(tag.AllowedTypes, typ) {
			tag.AllowedTypes = append(tag.AllowedTypes, typ)
		}
	}
	return tag, nil
}

// inferEntity assigns the default entity to tags that omit one. This is only
// legal when at most one distinct entity variable is named.
func inferEntity(parsed []Tag) error {
	var defined []string
	for _, tag := range parsed {
		if tag.Entity != "" && !contains(defined, tag.Entity) {
			defined = append(defined, tag.Entity)
		}
	}
	for i := range parsed {
		if parsed[i].Entity != "" {
			continue
		}
		if len(defined) > 1 {
			return udi.ErrAmbiguousEntity.New(defined, parsed[i].Original)
		}
		parsed[i].Entity = DefaultEntity
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
