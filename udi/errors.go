package udi

import errors "gopkg.in/src-d/go-errors.v1"

// Authoring errors. These indicate mistakes in templates or schemas and are
// never retried.
var (
	// ErrAmbiguousEntity is returned when a template uses more than one
	// entity variable and at least one tag omits its entity.
	ErrAmbiguousEntity = errors.NewKind("multiple entities defined (%v), cannot infer empty entity in tag <%s>")

	// ErrMissingFieldType is returned when a field tag has no type filter.
	ErrMissingFieldType = errors.NewKind("invalid tag <%s>: field type must be specified")

	// ErrUnknownFieldType is returned for a type code outside the lookup table.
	ErrUnknownFieldType = errors.NewKind("invalid tag <%s>: unknown field type %q")

	// ErrMalformedTag is returned for tags with an unsupported shape.
	ErrMalformedTag = errors.NewKind("invalid tag <%s>: %s")

	// ErrUnknownVariable is returned when a constraint names a variable that
	// no tag declares.
	ErrUnknownVariable = errors.NewKind("constraint %q references unknown variable %s")

	// ErrInvalidConstraint is returned when a constraint cannot be parsed or lowered.
	ErrInvalidConstraint = errors.NewKind("invalid constraint %q: %s")

	// ErrConstraintEval is returned when a constraint cannot be evaluated
	// against a binding, e.g. ordering a string against a number.
	ErrConstraintEval = errors.NewKind("cannot evaluate %s: %s")

	// ErrMalformedSpecTag is returned for spec tags whose path shape is not supported.
	ErrMalformedSpecTag = errors.NewKind("invalid match: %s. %s")

	// ErrMissingForeignKey is returned when a relationship tag names two
	// entities that are not linked by a foreign key.
	ErrMissingForeignKey = errors.NewKind("invalid match: %s. could not find foreign key for %s to %s")

	// ErrUnboundVariable is returned when a template tag refers to a variable
	// that the solution does not bind.
	ErrUnboundVariable = errors.NewKind("tag <%s> refers to unbound variable %s")
)
