package bigquery

// Field describes one column of a table or query result schema.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode,omitempty"`
	Description string `json:"description,omitempty"`
}

// Cell is one value in a wire-format row. The API wraps every value in an
// object with a single "v" key; nested records arrive as nested structures.
type Cell struct {
	V any `json:"v"`
}

// Row is the wire representation of a result row: a fixed-order array of
// cells, positionally aligned with the schema fields.
type Row struct {
	F []Cell `json:"f"`
}

type tableSchema struct {
	Fields []Field `json:"fields"`
}

// FormatRows maps wire rows into name-keyed records. Cell i pairs with
// schema field i by position, never by name. Rows shorter than the schema
// null-fill the missing trailing fields. Empty schema or empty input yields
// an empty list, never an error.
func FormatRows(rows []Row, schema []Field) []map[string]any {
	formatted := []map[string]any{}
	if len(rows) == 0 || len(schema) == 0 {
		return formatted
	}
	for _, row := range rows {
		record := make(map[string]any, len(schema))
		for i, field := range schema {
			if field.Name == "" {
				continue
			}
			if i < len(row.F) {
				record[field.Name] = row.F[i].V
			} else {
				record[field.Name] = nil
			}
		}
		formatted = append(formatted, record)
	}
	return formatted
}
