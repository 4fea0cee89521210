package tripcsv

import (
	"encoding/json"
	"math"
	"strconv"
)

// Coordinates is a WGS84 point. A component that could not be parsed is NaN.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Valid reports whether both components are finite numbers.
func (c Coordinates) Valid() bool {
	return isFiniteFloat(c.Lat) && isFiniteFloat(c.Lon)
}

// MarshalJSON writes NaN or infinite components as null.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}{finiteOrNil(c.Lat), finiteOrNil(c.Lon)})
}

// Stop is one normalized waypoint.
type Stop struct {
	Name    string
	Address string
	URL     string
	Notes   string
	Pin     string

	// Coordinates is set only when both lat and lon were present.
	Coordinates *Coordinates

	// Duration is the dwell time in milliseconds, never negative.
	Duration *int64

	// Extra holds any other column of a Furkot header, keyed by its
	// lowercase name.
	Extra map[string]string
}

// MarshalJSON flattens Extra next to the fixed keys and omits empty ones.
func (s Stop) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+7)
	for k, v := range s.Extra {
		out[k] = v
	}
	setString(out, FieldName, s.Name)
	setString(out, FieldAddress, s.Address)
	setString(out, FieldURL, s.URL)
	setString(out, FieldNotes, s.Notes)
	setString(out, FieldPin, s.Pin)
	if s.Coordinates != nil {
		out["coordinates"] = s.Coordinates
	}
	if s.Duration != nil {
		out[FieldDuration] = *s.Duration
	}
	return json.Marshal(out)
}

func setString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// BuildStop converts a normalized row into a typed stop.
//
// lat and lon are merged into Coordinates only when both are present; a value
// that is not a number becomes NaN rather than an error. duration is read as
// minutes and stored in milliseconds; negative or non-numeric durations are
// dropped.
func BuildStop(fields FieldMap) Stop {
	var stop Stop

	lat, hasLat := fields[FieldLat]
	lon, hasLon := fields[FieldLon]
	if hasLat && hasLon {
		stop.Coordinates = &Coordinates{Lat: parseFloat(lat), Lon: parseFloat(lon)}
	}

	for key, value := range fields {
		switch key {
		case FieldName:
			stop.Name = value
		case FieldAddress:
			stop.Address = value
		case FieldURL:
			stop.URL = value
		case FieldNotes:
			stop.Notes = value
		case FieldPin:
			stop.Pin = value
		case FieldDuration:
			stop.Duration = minutesToMillis(value)
		case FieldLat, FieldLon:
			if stop.Coordinates != nil {
				continue
			}
			stop.setExtra(key, value)
		default:
			stop.setExtra(key, value)
		}
	}
	return stop
}

func (s *Stop) setExtra(key, value string) {
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[key] = value
}

// takeExtra removes and returns an Extra value.
func (s *Stop) takeExtra(key string) string {
	v := s.Extra[key]
	delete(s.Extra, key)
	if len(s.Extra) == 0 {
		s.Extra = nil
	}
	return v
}

// parseFloat returns NaN for values that are not numbers.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func minutesToMillis(s string) *int64 {
	minutes := parseFloat(s)
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
		return nil
	}
	// Counts past int64 would wrap negative.
	rounded := math.Round(minutes * 60 * 1000)
	if rounded >= math.MaxInt64 {
		return nil
	}
	ms := int64(rounded)
	return &ms
}

func isFiniteFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrNil(f float64) *float64 {
	if !isFiniteFloat(f) {
		return nil
	}
	return &f
}
