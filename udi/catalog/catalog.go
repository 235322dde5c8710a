// Package catalog loads template catalogues and dataset-schema catalogues
// from disk and fills in derived template metadata.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dqvis/udigen/udi"
)

// Chart complexity bands, by number of leaf values in the spec.
const (
	Simple       = "simple"
	Medium       = "medium"
	Complex      = "complex"
	ExtraComplex = "extra complex"
)

// LoadTemplates reads a template catalogue. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON. Rows without a spec key
// count get one computed from their spec template.
func LoadTemplates(path string) ([]udi.TemplateRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	rows, err := DecodeTemplates(data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return rows, nil
}

// DecodeTemplates decodes a template catalogue from JSON or YAML and
// fills in missing spec key counts and chart complexities.
func DecodeTemplates(data []byte, asYAML bool) ([]udi.TemplateRow, error) {
	var rows []udi.TemplateRow
	if asYAML {
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	for i := range rows {
		Annotate(&rows[i])
	}
	return rows, nil
}

// Annotate computes the spec key count and chart complexity of row when
// they are missing. Spec templates that are not valid JSON are left alone.
func Annotate(row *udi.TemplateRow) {
	if row.SpecKeyCount == 0 {
		n, err := SpecKeyCount(row.SpecTemplate)
		if err != nil {
			return
		}
		row.SpecKeyCount = n
	}
	if row.ChartComplexity == "" && row.SpecKeyCount > 0 {
		row.ChartComplexity = Complexity(row.SpecKeyCount)
	}
}

// LoadSchemas reads a dataset-schema catalogue: a JSON list of data packages.
func LoadSchemas(path string) ([]udi.DatasetSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}
	var schemas []udi.DatasetSchema
	if err := json.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return schemas, nil
}

// SpecKeyCount counts the leaf values of a JSON spec. Objects and arrays
// contribute the sum of their members; every scalar counts one.
func SpecKeyCount(spec string) (int, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(spec), &v); err != nil {
		return 0, err
	}
	return leaves(v), nil
}

func leaves(v interface{}) int {
	switch v := v.(type) {
	case map[string]interface{}:
		n := 0
		for _, child := range v {
			n += leaves(child)
		}
		return n
	case []interface{}:
		n := 0
		for _, child := range v {
			n += leaves(child)
		}
		return n
	default:
		return 1
	}
}

// Complexity buckets a spec key count.
func Complexity(keyCount int) string {
	switch {
	case keyCount <= 12:
		return Simple
	case keyCount <= 24:
		return Medium
	case keyCount <= 36:
		return Complex
	default:
		return ExtraComplex
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
