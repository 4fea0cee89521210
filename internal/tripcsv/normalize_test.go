package tripcsv

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	schema := Schema{Format: FormatFurkot, Columns: []string{"name", "", "Address", "notes"}}

	tests := []struct {
		name string
		row  []string
		want FieldMap
	}{
		{
			name: "trims values and skips ignored column",
			row:  []string{"  Duomo ", "ignored", " Piazza ", "nice"},
			want: FieldMap{"name": "Duomo", "address": "Piazza", "notes": "nice"},
		},
		{
			name: "skips blank values",
			row:  []string{"Duomo", "", "   ", ""},
			want: FieldMap{"name": "Duomo"},
		},
		{
			name: "short row",
			row:  []string{"Duomo"},
			want: FieldMap{"name": "Duomo"},
		},
		{
			name: "empty row",
			row:  []string{},
			want: FieldMap{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(schema, tt.row, true)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_Strict(t *testing.T) {
	schema := GarminSchema()
	row := []string{"9.2", "45.1", "Milano", "notes", "unquoted, comma"}

	if _, err := Normalize(schema, row, true); !errors.Is(err, ErrTooManyFields) {
		t.Errorf("strict Normalize() error = %v, want ErrTooManyFields", err)
	}

	got, err := Normalize(schema, row, false)
	if err != nil {
		t.Fatalf("lenient Normalize() error = %v", err)
	}
	if got["notes"] != "notes" {
		t.Errorf("notes = %q, want %q", got["notes"], "notes")
	}
}
