package expand

import "github.com/dqvis/udigen/udi"

// Flatten turns a dataset schema into solver domains: one entity option per
// resource and one field option per column. Field options carry their
// entity's URL, row and column counts, and foreign keys. Counts missing
// from the schema stay absent on the options. Resources without fields
// contribute no entity.
func Flatten(schema udi.DatasetSchema) ([]*udi.EntityOption, []*udi.FieldOption) {
	var entities []*udi.EntityOption
	var fields []*udi.FieldOption

	for _, res := range schema.Resources {
		if len(res.Schema.Fields) == 0 {
			continue
		}
		url := schema.Path + res.Path

		entity := &udi.EntityOption{
			Entity:         res.Name,
			URL:            url,
			Cardinality:    res.RowCount,
			HasCardinality: res.HasRowCount,
			ForeignKeys:    res.Schema.ForeignKeys,
		}
		for _, rec := range res.Schema.Fields {
			entity.Fields = append(entity.Fields, rec.Name)
			fields = append(fields, &udi.FieldOption{
				Entity:         res.Name,
				Name:           rec.Name,
				DataType:       rec.DataType,
				Cardinality:    rec.Cardinality,
				HasCardinality: rec.HasCardinality,
				URL:            url,
				RowCount:       res.RowCount,
				HasRowCount:    res.HasRowCount,
				ColumnCount:    res.ColumnCount,
				HasColumnCount: res.HasColumnCount,
				ForeignKeys:    res.Schema.ForeignKeys,
				Attrs:          rec.Attrs,
			})
		}
		entities = append(entities, entity)
	}
	return entities, fields
}
