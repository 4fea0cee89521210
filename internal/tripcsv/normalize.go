package tripcsv

import "strings"

// FieldMap maps lowercase canonical field names to trimmed, non-empty values.
type FieldMap map[string]string

// Normalize maps a raw row onto the schema's columns.
//
// Columns with an empty name and empty or missing values are skipped. When
// strict is set, a row with more fields than the schema has columns fails
// with ErrTooManyFields: an unquoted comma would otherwise shift every
// following value into the wrong column.
func Normalize(schema Schema, row []string, strict bool) (FieldMap, error) {
	if strict && len(row) > schema.Width() {
		return nil, tooManyFields(len(row), schema.Width())
	}
	return normalize(schema, row), nil
}

func normalize(schema Schema, row []string) FieldMap {
	fields := make(FieldMap, len(schema.Columns))
	for i, name := range schema.Columns {
		if name == "" || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		fields[strings.ToLower(name)] = value
	}
	return fields
}
