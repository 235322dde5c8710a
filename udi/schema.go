package udi

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// Semantic data types assigned to fields by schema augmentation.
const (
	Nominal      = "nominal"
	Ordinal      = "ordinal"
	Quantitative = "quantitative"
	Unknown      = "unknown"
	Other        = "other"
)

// Relationship cardinality directions.
const (
	One  = "one"
	Many = "many"
)

// DatasetSchema is one augmented data package from the schema catalogue.
type DatasetSchema struct {
	Name      string     `json:"udi:name"`
	Path      string     `json:"udi:path"`
	Resources []Resource `json:"resources"`
}

// UnmarshalJSON accepts both the augmented "udi:name"/"udi:path" keys and
// the plain data package "name"/"path" keys.
func (d *DatasetSchema) UnmarshalJSON(data []byte) error {
	var raw struct {
		UDIName   string     `json:"udi:name"`
		UDIPath   string     `json:"udi:path"`
		Name      string     `json:"name"`
		Path      string     `json:"path"`
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Name = firstNonEmpty(raw.UDIName, raw.Name)
	d.Path = firstNonEmpty(raw.UDIPath, raw.Path)
	d.Resources = raw.Resources
	return nil
}

// Resource is a tabular file within a data package. The Has flags record
// whether the counts were present in the document.
type Resource struct {
	Name           string      `json:"name"`
	Path           string      `json:"path"`
	RowCount       int64       `json:"udi:row_count"`
	HasRowCount    bool        `json:"-"`
	ColumnCount    int64       `json:"udi:column_count"`
	HasColumnCount bool        `json:"-"`
	Schema         TableSchema `json:"schema"`
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string      `json:"name"`
		Path        string      `json:"path"`
		RowCount    interface{} `json:"udi:row_count"`
		ColumnCount interface{} `json:"udi:column_count"`
		Schema      TableSchema `json:"schema"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Resource{Name: raw.Name, Path: raw.Path, Schema: raw.Schema}

	var err error
	if r.RowCount, r.HasRowCount, err = optionalInt(raw.RowCount); err != nil {
		return fmt.Errorf("resource %s row count: %w", raw.Name, err)
	}
	if r.ColumnCount, r.HasColumnCount, err = optionalInt(raw.ColumnCount); err != nil {
		return fmt.Errorf("resource %s column count: %w", raw.Name, err)
	}
	return nil
}

// TableSchema lists the fields and foreign keys of a resource.
type TableSchema struct {
	Fields      []FieldRecord `json:"fields"`
	ForeignKeys []ForeignKey  `json:"foreignKeys,omitempty"`
}

// FieldRecord is a single column description. Attrs holds every key of the
// original record, including custom ones, so constraints can address them.
type FieldRecord struct {
	Name           string
	DataType       string
	Cardinality    int64
	HasCardinality bool
	Unique         bool
	Attrs          map[string]interface{}
}

func (f *FieldRecord) UnmarshalJSON(data []byte) error {
	var attrs map[string]interface{}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	name, err := cast.ToStringE(attrs["name"])
	if err != nil {
		return fmt.Errorf("field name: %w", err)
	}
	f.Name = name
	f.DataType = cast.ToString(attrs["udi:data_type"])
	card, ok, err := optionalInt(attrs["udi:cardinality"])
	if err != nil {
		return fmt.Errorf("field %s cardinality: %w", name, err)
	}
	f.Cardinality, f.HasCardinality = card, ok
	if ok {
		attrs["udi:cardinality"] = card
	} else {
		delete(attrs, "udi:cardinality")
	}
	f.Unique = cast.ToBool(attrs["udi:unique"])
	f.Attrs = attrs
	return nil
}

func (f FieldRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(f.Attrs)+4)
	for k, v := range f.Attrs {
		out[k] = v
	}
	out["name"] = f.Name
	out["udi:data_type"] = f.DataType
	delete(out, "udi:cardinality")
	if f.HasCardinality {
		out["udi:cardinality"] = f.Cardinality
	}
	out["udi:unique"] = f.Unique
	return json.Marshal(out)
}

// NewFieldRecord builds a field record from its essential attributes.
func NewFieldRecord(name, dataType string, cardinality int64) FieldRecord {
	return FieldRecord{
		Name:           name,
		DataType:       dataType,
		Cardinality:    cardinality,
		HasCardinality: true,
		Attrs: map[string]interface{}{
			"name":            name,
			"udi:data_type":   dataType,
			"udi:cardinality": cardinality,
		},
	}
}

// ForeignKey is a declared reference from fields of one resource to fields
// of another. Cardinality is inferred by schema augmentation and may be nil.
type ForeignKey struct {
	Fields      FieldList            `json:"fields"`
	Reference   Reference            `json:"reference"`
	Cardinality *RelationCardinality `json:"udi:cardinality,omitempty"`
}

// Reference names the target resource and fields of a foreign key.
type Reference struct {
	Resource string    `json:"resource"`
	Fields   FieldList `json:"fields"`
}

// RelationCardinality records whether each side of a foreign key is unique.
type RelationCardinality struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FieldList is a list of field names. In data packages a single field may
// be written as a bare string.
type FieldList []string

func (l *FieldList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = FieldList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("foreign key fields must be a string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// Attr implements Attributed.
func (fk ForeignKey) Attr(key string) (interface{}, bool) {
	switch key {
	case "fields":
		return stringsToValues(fk.Fields), true
	case "reference":
		return fk.Reference, true
	case "udi:cardinality":
		if fk.Cardinality == nil {
			return nil, false
		}
		return *fk.Cardinality, true
	}
	return nil, false
}

// Attr implements Attributed.
func (r Reference) Attr(key string) (interface{}, bool) {
	switch key {
	case "resource":
		return r.Resource, true
	case "fields":
		return stringsToValues(r.Fields), true
	}
	return nil, false
}

// Attr implements Attributed. Empty directions count as absent.
func (c RelationCardinality) Attr(key string) (interface{}, bool) {
	switch key {
	case "from":
		return c.From, c.From != ""
	case "to":
		return c.To, c.To != ""
	}
	return nil, false
}

// optionalInt coerces a decoded JSON number. Nil means absent.
func optionalInt(v interface{}) (int64, bool, error) {
	if v == nil {
		return 0, false, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringsToValues(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
