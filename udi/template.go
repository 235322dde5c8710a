package udi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TemplateRow is one hand-written query/spec template with its constraints.
type TemplateRow struct {
	QueryTemplate   string      `json:"query_template" yaml:"query_template"`
	SpecTemplate    string      `json:"spec_template" yaml:"spec_template"`
	Constraints     Constraints `json:"constraints" yaml:"constraints"`
	QueryType       string      `json:"query_type,omitempty" yaml:"query_type,omitempty"`
	CreationMethod  string      `json:"creation_method,omitempty" yaml:"creation_method,omitempty"`
	ChartType       string      `json:"chart_type,omitempty" yaml:"chart_type,omitempty"`
	ChartComplexity string      `json:"chart_complexity,omitempty" yaml:"chart_complexity,omitempty"`
	SpecKeyCount    int         `json:"spec_key_count,omitempty" yaml:"spec_key_count,omitempty"`
}

// Constraints is the list of raw constraint expressions of a template.
// Catalogues sometimes store an empty string instead of an empty list.
type Constraints []string

func (c *Constraints) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = splitSingle(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("constraints must be a string or list of strings: %w", err)
	}
	*c = many
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (c *Constraints) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*c = splitSingle(single)
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*c = many
	return nil
}

func (c Constraints) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}

func splitSingle(s string) Constraints {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Constraints{s}
}

// ExpandedRow is one concrete training example produced from a template,
// a dataset schema and one solution.
type ExpandedRow struct {
	QueryTemplate   string                            `json:"query_template"`
	Constraints     Constraints                       `json:"constraints"`
	SpecTemplate    string                            `json:"spec_template"`
	QueryType       string                            `json:"query_type"`
	CreationMethod  string                            `json:"creation_method"`
	ChartType       string                            `json:"chart_type,omitempty"`
	ChartComplexity string                            `json:"chart_complexity,omitempty"`
	SpecKeyCount    int                               `json:"spec_key_count,omitempty"`
	DatasetSchema   string                            `json:"dataset_schema"`
	QueryBase       string                            `json:"query_base"`
	Spec            string                            `json:"spec"`
	Solution        map[string]map[string]interface{} `json:"solution"`

	// Row identifiers assigned once a run is complete.
	TemplateID int    `json:"template_id"`
	ExpandedID int    `json:"expanded_id"`
	CombinedID string `json:"combined_id"`
}

// CombinedID identifies an expanded row across a run. The trailing
// component numbers paraphrases of the row; the base question is 0.
func CombinedID(templateID, expandedID int) string {
	return fmt.Sprintf("%d_%d_0", templateID, expandedID)
}

// NewExpandedRow copies the template metadata of row into a fresh expanded row.
func NewExpandedRow(row TemplateRow, schema, queryBase, spec string, solution Solution) ExpandedRow {
	return ExpandedRow{
		QueryTemplate:   row.QueryTemplate,
		Constraints:     append(Constraints(nil), row.Constraints...),
		SpecTemplate:    row.SpecTemplate,
		QueryType:       row.QueryType,
		CreationMethod:  row.CreationMethod,
		ChartType:       row.ChartType,
		ChartComplexity: row.ChartComplexity,
		SpecKeyCount:    row.SpecKeyCount,
		DatasetSchema:   schema,
		QueryBase:       queryBase,
		Spec:            spec,
		Solution:        solution.Clean(),
	}
}
