// Package resolve substitutes a solution into query and spec templates.
package resolve

import (
	"encoding/json"
	"strings"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/tags"
)

// comparisons replaces the operator placeholders of spec templates. It runs
// after tag resolution so the placeholders never meet the tag pattern.
var comparisons = strings.NewReplacer(
	"{lte}", "<=",
	"{gte}", ">=",
	"{lt}", "<",
	"{gt}", ">",
)

// Query resolves a natural language template. Each tag, in order, replaces
// the first remaining occurrence of its bracketed text with the bound
// entity or field name.
func Query(text string, tagList []tags.Tag, sol udi.Solution) (string, error) {
	for _, t := range tagList {
		opt, ok := sol.Lookup(t.Var())
		if !ok {
			return "", udi.ErrUnboundVariable.New(t.Original, t.Var())
		}
		text = strings.Replace(text, t.Text(), opt.Label(), 1)
	}
	return text, nil
}

// Spec resolves a visualization spec template. Tags are replaced left to
// right; resolved text is never rescanned. Supported tag paths:
//
//	<E>, <F>            entity name, field name under the default entity
//	<E1.url>            entity URL
//	<E1.F1>             field name
//	<E1.r.E2.id.from>   key fields of the foreign key from E1 to E2
//	<E1.r.E2.id.to>     referenced fields of that foreign key
//
// A type filter such as <E.F:n> is ignored. Multi-field keys render as a
// JSON list; when the tag is quoted the quotes are consumed with it.
func Spec(text string, sol udi.Solution) (string, error) {
	var sb strings.Builder
	sb.Grow(len(text))

	rest := text
	for {
		loc := tags.Pattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			sb.WriteString(rest)
			break
		}
		start, end := loc[0], loc[1]
		match := rest[start:end]
		content := rest[loc[2]:loc[3]]

		value, list, err := resolveSpecTag(match, content, sol)
		if err != nil {
			return "", err
		}
		if list && start > 0 && end < len(rest) && rest[start-1] == '"' && rest[end] == '"' {
			start--
			end++
		}

		sb.WriteString(rest[:start])
		sb.WriteString(value)
		rest = rest[end:]
	}

	return comparisons.Replace(sb.String()), nil
}

// resolveSpecTag returns the replacement for one tag and whether it is a
// list literal.
func resolveSpecTag(match, content string, sol udi.Solution) (string, bool, error) {
	if i := strings.Index(content, ":"); i >= 0 {
		content = content[:i]
	}
	segments := strings.Split(content, ".")

	switch len(segments) {
	case 1:
		name := segments[0]
		if tags.IsEntityVar(name) {
			e, err := entity(sol, match, name)
			if err != nil {
				return "", false, err
			}
			return e.Entity, false, nil
		}
		f, err := field(sol, match, tags.FieldVar(tags.DefaultEntity, name))
		if err != nil {
			return "", false, err
		}
		return f.Name, false, nil

	case 2:
		if segments[1] == "url" {
			e, err := entity(sol, match, segments[0])
			if err != nil {
				return "", false, err
			}
			return e.URL, false, nil
		}
		f, err := field(sol, match, tags.FieldVar(segments[0], segments[1]))
		if err != nil {
			return "", false, err
		}
		return f.Name, false, nil

	case 5:
		return relationshipFields(match, segments, sol)
	}

	return "", false, udi.ErrMalformedSpecTag.New(match, "expected 1, 2 or 5 '.' separated segments")
}

func relationshipFields(match string, segments []string, sol udi.Solution) (string, bool, error) {
	if segments[1] != "r" || segments[3] != "id" || (segments[4] != "from" && segments[4] != "to") {
		return "", false, udi.ErrMalformedSpecTag.New(match, "expected relationship path E1.r.E2.id.from or E1.r.E2.id.to")
	}
	from, err := entity(sol, match, segments[0])
	if err != nil {
		return "", false, err
	}
	to, err := entity(sol, match, segments[2])
	if err != nil {
		return "", false, err
	}

	fk, ok := from.ForeignKeyTo(to.Entity)
	if !ok {
		return "", false, udi.ErrMissingForeignKey.New(match, from.Entity, to.Entity)
	}

	fields := []string(fk.Fields)
	if segments[4] == "to" {
		fields = fk.Reference.Fields
	}
	if len(fields) == 1 {
		return fields[0], false, nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func entity(sol udi.Solution, match, name string) (*udi.EntityOption, error) {
	e, ok := sol.Entity(name)
	if !ok {
		return nil, udi.ErrUnboundVariable.New(strings.Trim(match, "<>"), name)
	}
	return e, nil
}

func field(sol udi.Solution, match, name string) (*udi.FieldOption, error) {
	f, ok := sol.Field(name)
	if !ok {
		return nil, udi.ErrUnboundVariable.New(strings.Trim(match, "<>"), name)
	}
	return f, nil
}
