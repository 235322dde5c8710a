// Package expand drives template expansion: every template row is expanded
// against every dataset schema and the resulting rows are concatenated in
// (template, schema, solution) order.
package expand

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/annotations"
	"github.com/dqvis/udigen/udi/solver"
)

// Options configures an Expander.
type Options struct {
	// Workers bounds the number of pairs expanded concurrently. Zero or
	// less uses one worker per CPU.
	Workers int
	Solver  solver.Options
	// ContinueOnError skips failing pairs instead of aborting the run. The
	// skipped pairs' errors are returned joined, next to the rows of the
	// pairs that succeeded.
	ContinueOnError bool
	Logger          logrus.FieldLogger
	// Handler receives annotation events. Nil disables them.
	Handler annotations.Handler
}

// PairError reports a failure expanding one template, or one template
// against one schema.
type PairError struct {
	Template int
	Schema   string
	Err      error
}

func (e *PairError) Error() string {
	if e.Schema == "" {
		return fmt.Sprintf("template %d: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("template %d on schema %s: %v", e.Template, e.Schema, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// Expander expands template rows against dataset schemas.
type Expander struct {
	opts        Options
	log         logrus.FieldLogger
	annotations *annotations.Collector
}

// New creates an expander.
func New(opts Options) *Expander {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Expander{
		opts:        opts,
		log:         log,
		annotations: annotations.NewCollector(opts.Handler),
	}
}

// Annotations returns the events collected so far.
func (x *Expander) Annotations() *annotations.Collector {
	return x.annotations
}

type domain struct {
	name     string
	entities []*udi.EntityOption
	fields   []*udi.FieldOption
}

// Expand expands every (template row, schema) pair. A pair without
// solutions contributes no rows.
func (x *Expander) Expand(ctx context.Context, rows []udi.TemplateRow, schemas []udi.DatasetSchema) ([]udi.ExpandedRow, error) {
	start := time.Now()
	x.annotations.Add(annotations.Event{
		Name:  annotations.ExpandBegin,
		Start: start,
		End:   start,
		Data: map[string]interface{}{
			"templates": len(rows),
			"schemas":   len(schemas),
			"workers":   x.opts.Workers,
		},
	})

	domains := make([]domain, len(schemas))
	for j, s := range schemas {
		entities, fields := Flatten(s)
		domains[j] = domain{name: s.Name, entities: entities, fields: fields}
	}

	var failures []error
	templates := make([]*Template, len(rows))
	for i, row := range rows {
		t, err := x.compile(i, row)
		if err != nil {
			if !x.opts.ContinueOnError {
				return nil, err
			}
			failures = append(failures, err)
			continue
		}
		templates[i] = t
	}

	results := make([][]udi.ExpandedRow, len(rows)*len(domains))
	errs := make([]error, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.opts.Workers)
	for k := range results {
		i, j := k/len(domains), k%len(domains)
		if templates[i] == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := x.expandPair(i, templates[i], domains[j])
			if err != nil {
				errs[k] = err
				if !x.opts.ContinueOnError {
					return err
				}
				x.log.WithFields(logrus.Fields{
					"template": i,
					"schema":   domains[j].name,
				}).WithError(err).Warn("skipping template on schema")
				return nil
			}
			results[k] = out
			return nil
		})
	}
	waitErr := g.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		if !x.opts.ContinueOnError {
			return nil, err
		}
		failures = append(failures, err)
	}
	if waitErr != nil && !x.opts.ContinueOnError {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expanded := concat(results, len(domains))
	x.annotations.AddTiming(annotations.ExpandComplete, start, map[string]interface{}{
		"rows":   len(expanded),
		"pairs":  len(results),
		"errors": len(failures),
	})
	return expanded, errors.Join(failures...)
}

func (x *Expander) compile(i int, row udi.TemplateRow) (*Template, error) {
	start := time.Now()
	t, err := Compile(row)
	if err != nil {
		x.annotations.AddTiming(annotations.ErrorTemplate, start, map[string]interface{}{
			"template": i,
			"error":    err,
		})
		x.log.WithField("template", i).WithError(err).Warn("invalid template")
		return nil, &PairError{Template: i, Err: err}
	}
	x.annotations.AddTiming(annotations.TemplateCompiled, start, map[string]interface{}{
		"template":    i,
		"tags":        len(t.Tags.Tags),
		"constraints": len(t.Constraints),
	})
	return t, nil
}

func (x *Expander) expandPair(i int, t *Template, d domain) ([]udi.ExpandedRow, error) {
	start := time.Now()
	fail := func(err error) error {
		x.annotations.AddTiming(annotations.ErrorPair, start, map[string]interface{}{
			"template": i,
			"schema":   d.name,
			"error":    err,
		})
		return &PairError{Template: i, Schema: d.name, Err: err}
	}

	sols, stats, err := t.Solve(d.entities, d.fields, x.opts.Solver)
	if err != nil {
		return nil, fail(err)
	}
	x.annotations.AddTiming(annotations.SolverComplete, start, map[string]interface{}{
		"template":  i,
		"schema":    d.name,
		"solutions": stats.Solutions,
		"nodes":     stats.Nodes,
		"checks":    stats.Checks,
	})

	resolveStart := time.Now()
	rows, err := t.Resolve(d.name, sols)
	if err != nil {
		return nil, fail(err)
	}
	x.annotations.AddTiming(annotations.PairResolved, resolveStart, map[string]interface{}{
		"template": i,
		"schema":   d.name,
		"rows":     len(rows),
	})

	x.log.WithFields(logrus.Fields{
		"template":  i,
		"schema":    d.name,
		"solutions": len(sols),
	}).Debug("expanded template")
	return rows, nil
}

// concat joins per-pair results in pair order and numbers the rows of each
// template across schemas.
func concat(results [][]udi.ExpandedRow, perTemplate int) []udi.ExpandedRow {
	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]udi.ExpandedRow, 0, n)

	expandedID := 0
	for k, r := range results {
		if perTemplate > 0 && k%perTemplate == 0 {
			expandedID = 0
		}
		for _, row := range r {
			row.TemplateID = k / perTemplate
			row.ExpandedID = expandedID
			row.CombinedID = udi.CombinedID(row.TemplateID, row.ExpandedID)
			expandedID++
			out = append(out, row)
		}
	}
	return out
}

// Expand runs a single-worker expansion with default options.
func Expand(rows []udi.TemplateRow, schemas []udi.DatasetSchema) ([]udi.ExpandedRow, error) {
	return New(Options{Workers: 1}).Expand(context.Background(), rows, schemas)
}
