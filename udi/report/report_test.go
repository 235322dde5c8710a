package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/storage"
	"github.com/dqvis/udigen/udi/tags"
)

func expandedRows() []udi.ExpandedRow {
	return []udi.ExpandedRow{
		{TemplateID: 0, ExpandedID: 0, CombinedID: "0_0_0", QueryTemplate: "How many <E>?", ChartType: "barchart", DatasetSchema: "cars", QueryBase: "How many cars?"},
		{TemplateID: 0, ExpandedID: 1, CombinedID: "0_1_0", QueryTemplate: "How many <E>?", ChartType: "barchart", DatasetSchema: "clinic", QueryBase: "How many samples?"},
		{TemplateID: 0, ExpandedID: 2, CombinedID: "0_2_0", QueryTemplate: "How many <E>?", ChartType: "barchart", DatasetSchema: "clinic", QueryBase: "How many donors?"},
		{TemplateID: 2, ExpandedID: 0, CombinedID: "2_0_0", QueryTemplate: "Show <E>", DatasetSchema: "cars", QueryBase: "Show cars"},
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter().Summary(&buf, expandedRows())
	out := buf.String()

	assert.Contains(t, out, "query_template")
	assert.Contains(t, out, "How many <E>?")
	assert.Contains(t, out, "barchart")
	assert.Contains(t, out, "_4 rows from 2 templates_")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var first, second int
	for i, line := range lines {
		if strings.Contains(line, "How many <E>?") {
			first = i
		}
		if strings.Contains(line, "Show <E>") {
			second = i
		}
	}
	assert.Less(t, first, second)
}

func TestRows(t *testing.T) {
	var buf bytes.Buffer
	NewFormatter().Rows(&buf, expandedRows())
	out := buf.String()

	for _, r := range expandedRows() {
		assert.Contains(t, out, r.CombinedID)
		assert.Contains(t, out, r.QueryBase)
	}
	assert.Contains(t, out, "_4 rows_")
}

func TestEmpty(t *testing.T) {
	f := NewFormatter()
	var buf bytes.Buffer
	f.Summary(&buf, nil)
	f.Rows(&buf, nil)
	f.Runs(&buf, nil)
	f.Tags(&buf, &tags.Extraction{})
	assert.Equal(t, "_No rows_\n_No rows_\n_No runs_\n_No tags_\n", buf.String())
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	NewFormatter().Runs(&buf, []storage.Run{
		{ID: "01J0000000000000000000000A", CreatedAt: created, Templates: "t.yaml", Rows: 12},
	})
	out := buf.String()
	assert.Contains(t, out, "01J0000000000000000000000A")
	assert.Contains(t, out, "2026-01-02 03:04:05")
	assert.Contains(t, out, "t.yaml")
	assert.Contains(t, out, "12")
}

func TestTags(t *testing.T) {
	ext, err := tags.Extract("How many <E> are there, grouped by <F:n|o>?")
	require.NoError(t, err)

	var buf bytes.Buffer
	NewFormatter().Tags(&buf, ext)
	out := buf.String()
	assert.Contains(t, out, "E_F")
	assert.Contains(t, out, "nominal, ordinal")
	assert.Contains(t, out, "_Entities: E_")
	assert.Contains(t, out, "_Fields: E_F_")
}

func TestCell(t *testing.T) {
	f := &Formatter{MaxWidth: 8, TruncateString: "..."}
	assert.Equal(t, "short", f.cell("short"))
	assert.Equal(t, "exactly8", f.cell("exactly8"))
	assert.Equal(t, "trunc...", f.cell("truncated value"))
	assert.Equal(t, "a b", f.cell("a\nb"))

	unlimited := &Formatter{}
	assert.Equal(t, "truncated value", unlimited.cell("truncated value"))
}
