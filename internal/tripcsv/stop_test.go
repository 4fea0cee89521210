package tripcsv

import (
	"encoding/json"
	"math"
	"testing"
)

func TestBuildStop_Coordinates(t *testing.T) {
	stop := BuildStop(FieldMap{"name": "Duomo", "lat": "45.1", "lon": "9.2"})

	if stop.Coordinates == nil {
		t.Fatal("Coordinates = nil")
	}
	if stop.Coordinates.Lat != 45.1 || stop.Coordinates.Lon != 9.2 {
		t.Errorf("Coordinates = %+v, want {45.1 9.2}", *stop.Coordinates)
	}
	if _, ok := stop.Extra["lat"]; ok {
		t.Error("raw lat kept next to coordinates")
	}
	if _, ok := stop.Extra["lon"]; ok {
		t.Error("raw lon kept next to coordinates")
	}
}

func TestBuildStop_SingleCoordinatePassesThrough(t *testing.T) {
	stop := BuildStop(FieldMap{"name": "Duomo", "lat": "45.1"})

	if stop.Coordinates != nil {
		t.Errorf("Coordinates = %+v, want nil", stop.Coordinates)
	}
	if stop.Extra["lat"] != "45.1" {
		t.Errorf("Extra[lat] = %q, want %q", stop.Extra["lat"], "45.1")
	}
}

func TestBuildStop_UnparseableCoordinates(t *testing.T) {
	stop := BuildStop(FieldMap{"lat": "north", "lon": "9.2"})

	if stop.Coordinates == nil {
		t.Fatal("Coordinates = nil")
	}
	if !math.IsNaN(stop.Coordinates.Lat) {
		t.Errorf("Lat = %v, want NaN", stop.Coordinates.Lat)
	}
	if stop.Coordinates.Valid() {
		t.Error("Valid() = true for NaN latitude")
	}
}

func TestBuildStop_Duration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *int64
	}{
		{name: "fractional minutes", input: "2.5", want: ptr(150000)},
		{name: "whole minutes", input: "90", want: ptr(5400000)},
		{name: "zero", input: "0", want: ptr(0)},
		{name: "rounds to nearest millisecond", input: "0.00001", want: ptr(1)},
		{name: "negative dropped", input: "-1", want: nil},
		{name: "text dropped", input: "abc", want: nil},
		{name: "infinity dropped", input: "Inf", want: nil},
		{name: "overflowing milliseconds dropped", input: "1e20", want: nil},
		{name: "huge value dropped", input: "1e300", want: nil},
		{name: "just past int64 dropped", input: "153722867280913", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop := BuildStop(FieldMap{"duration": tt.input})
			switch {
			case tt.want == nil && stop.Duration != nil:
				t.Errorf("Duration = %d, want absent", *stop.Duration)
			case tt.want != nil && stop.Duration == nil:
				t.Errorf("Duration absent, want %d", *tt.want)
			case tt.want != nil && *stop.Duration != *tt.want:
				t.Errorf("Duration = %d, want %d", *stop.Duration, *tt.want)
			}
			if _, ok := stop.Extra["duration"]; ok {
				t.Error("raw duration kept in Extra")
			}
		})
	}
}

func TestBuildStop_PassThrough(t *testing.T) {
	stop := BuildStop(FieldMap{
		"name":    "Duomo",
		"address": "Piazza del Duomo",
		"url":     "https://example.com",
		"notes":   "go early",
		"pin":     "red",
		"phone":   "+39 02",
	})

	if stop.Name != "Duomo" || stop.Address != "Piazza del Duomo" || stop.URL != "https://example.com" ||
		stop.Notes != "go early" || stop.Pin != "red" {
		t.Errorf("typed fields = %+v", stop)
	}
	if stop.Extra["phone"] != "+39 02" {
		t.Errorf("Extra[phone] = %q, want %q", stop.Extra["phone"], "+39 02")
	}
}

func TestStopMarshalJSON(t *testing.T) {
	stop := Stop{
		Name:        "Duomo",
		Coordinates: &Coordinates{Lat: 45.1, Lon: 9.2},
		Duration:    ptr(150000),
		Extra:       map[string]string{"phone": "123"},
	}

	got, err := json.Marshal(stop)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"coordinates":{"lat":45.1,"lon":9.2},"duration":150000,"name":"Duomo","phone":"123"}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestCoordinatesMarshalJSON_NaN(t *testing.T) {
	got, err := json.Marshal(Coordinates{Lat: math.NaN(), Lon: 9.2})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `{"lat":null,"lon":9.2}` {
		t.Errorf("Marshal() = %s", got)
	}
}

func TestTripMarshalJSON_Empty(t *testing.T) {
	got, err := json.Marshal(Trip{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `{}` {
		t.Errorf("Marshal(Trip{}) = %s, want {}", got)
	}
}

func ptr(v int64) *int64 {
	return &v
}
