// Package report renders expansion runs as markdown tables.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/storage"
	"github.com/dqvis/udigen/udi/tags"
)

// Formatter renders rows, runs and tags as markdown tables.
type Formatter struct {
	// MaxWidth is the maximum width for a cell; zero disables truncation.
	MaxWidth int
	// TruncateString is appended to truncated cells.
	TruncateString string
}

// NewFormatter creates a formatter with default settings
func NewFormatter() *Formatter {
	return &Formatter{
		MaxWidth:       60,
		TruncateString: "...",
	}
}

// Summary renders one line per template: how many rows it produced and on
// how many schemas. Templates that produced nothing are not listed.
func (f *Formatter) Summary(w io.Writer, rows []udi.ExpandedRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "_No rows_")
		return
	}

	type stat struct {
		template string
		chart    string
		rows     int
		schemas  map[string]bool
	}
	var order []int
	stats := make(map[int]*stat)
	for _, r := range rows {
		s, ok := stats[r.TemplateID]
		if !ok {
			s = &stat{template: r.QueryTemplate, chart: r.ChartType, schemas: make(map[string]bool)}
			stats[r.TemplateID] = s
			order = append(order, r.TemplateID)
		}
		s.rows++
		s.schemas[r.DatasetSchema] = true
	}

	var cells [][]string
	for _, id := range order {
		s := stats[id]
		cells = append(cells, []string{
			fmt.Sprintf("%d", id),
			f.cell(s.template),
			s.chart,
			fmt.Sprintf("%d", len(s.schemas)),
			fmt.Sprintf("%d", s.rows),
		})
	}
	f.render(w, []string{"template", "query_template", "chart_type", "schemas", "rows"}, cells)
	fmt.Fprintf(w, "\n_%d rows from %d templates_\n", len(rows), len(order))
}

// Rows renders each expanded row's id, schema and query.
func (f *Formatter) Rows(w io.Writer, rows []udi.ExpandedRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "_No rows_")
		return
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.CombinedID, r.DatasetSchema, f.cell(r.QueryBase), f.cell(r.Spec)}
	}
	f.render(w, []string{"combined_id", "dataset_schema", "query_base", "spec"}, cells)
	fmt.Fprintf(w, "\n_%d rows_\n", len(rows))
}

// Runs renders stored runs.
func (f *Formatter) Runs(w io.Writer, runs []storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "_No runs_")
		return
	}
	cells := make([][]string, len(runs))
	for i, r := range runs {
		cells[i] = []string{
			r.ID,
			r.CreatedAt.Format(time.DateTime),
			f.cell(r.Templates),
			f.cell(r.Schemas),
			fmt.Sprintf("%d", r.Rows),
			fmt.Sprintf("%d", r.Errors),
		}
	}
	f.render(w, []string{"run", "created", "templates", "schemas", "rows", "errors"}, cells)
}

// Tags renders the tags of a parsed template followed by its variables.
func (f *Formatter) Tags(w io.Writer, ext *tags.Extraction) {
	if len(ext.Tags) == 0 {
		fmt.Fprintln(w, "_No tags_")
		return
	}
	cells := make([][]string, len(ext.Tags))
	for i, t := range ext.Tags {
		cells[i] = []string{t.Text(), t.Var(), t.Entity, t.Field, strings.Join(t.AllowedTypes, ", ")}
	}
	f.render(w, []string{"tag", "variable", "entity", "field", "types"}, cells)
	fmt.Fprintf(w, "\n_Entities: %s_\n", strings.Join(ext.Entities, ", "))
	if len(ext.Fields) > 0 {
		fmt.Fprintf(w, "_Fields: %s_\n", strings.Join(ext.Fields, ", "))
	}
}

func (f *Formatter) render(w io.Writer, headers []string, cells [][]string) {
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range cells {
		table.Append(row)
	}
	table.Render()
}

// cell flattens newlines and truncates long values.
func (f *Formatter) cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if f.MaxWidth <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= f.MaxWidth {
		return s
	}
	keep := f.MaxWidth - len([]rune(f.TruncateString))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + f.TruncateString
}
