package tripcsv

// schema.go defines the CSV layouts the importer understands and the
// classifier that picks one of them from the first row of a file.
//
// Detection order (first match wins):
//
//  1. Furkot: the row names the columns itself (name + address, or name + lat + lon)
//  2. DrivingLog: the row starts with From, From Address, To, To Address
//  3. Garmin: no header, the first two fields are numbers (lon, lat)
//  4. Standard: no header, columns in the Furkot export order
//
// Furkot and DrivingLog treat the first row as a header. Garmin and Standard
// treat it as data, so Classify also builds the first stop for them.

import (
	"math"
	"strconv"
	"strings"
)

// Format identifies one of the built-in CSV layouts.
type Format int

const (
	FormatStandard Format = iota
	FormatFurkot
	FormatGarmin
	FormatDrivingLog
)

// String returns the lowercase format name used in logs, metrics and storage.
func (f Format) String() string {
	switch f {
	case FormatFurkot:
		return "furkot"
	case FormatGarmin:
		return "garmin"
	case FormatDrivingLog:
		return "driving_log"
	default:
		return "standard"
	}
}

// Canonical field names.
const (
	FieldName     = "name"
	FieldLat      = "lat"
	FieldLon      = "lon"
	FieldAddress  = "address"
	FieldURL      = "url"
	FieldNotes    = "notes"
	FieldPin      = "pin"
	FieldDuration = "duration"

	// Driving log only; consumed by the post-processor.
	fieldTo            = "to"
	fieldToAddress     = "to_address"
	fieldDepartureDate = "departure_date"
	fieldDepartureTime = "departure_time"
	fieldArrivalDate   = "arrival_date"
	fieldArrivalTime   = "arrival_time"
)

var (
	standardColumns = []string{
		FieldName, FieldLat, FieldLon, FieldAddress, FieldURL, FieldNotes, FieldPin, FieldDuration,
	}

	// http://www8.garmin.com/products/poiloader/creating_custom_poi_files.jsp
	garminColumns = []string{FieldLon, FieldLat, FieldName, FieldNotes}

	drivingLogColumns = []string{
		FieldName,          // From
		FieldAddress,       // From Address
		fieldTo,            // To
		fieldToAddress,     // To Address
		fieldDepartureDate, // Departure Date
		fieldDepartureTime, // Departure Time
		fieldArrivalDate,   // Arrival Date
		fieldArrivalTime,   // Arrival Time
		"",                 // Distance
		"",                 // Drive Time
		"",                 // Purpose
		"",                 // Vehicle
		FieldNotes,         // Notes
	}

	drivingLogHeader = []string{"from", "from address", "to", "to address"}
)

// Schema is a detected layout: its format and the canonical field name for
// each column position. An empty name marks an ignored column.
type Schema struct {
	Format  Format
	Columns []string
}

// Width is the number of columns a data row may have under strict checking.
func (s Schema) Width() int {
	return len(s.Columns)
}

// StandardSchema is used for header-less files in the Furkot export order.
func StandardSchema() Schema {
	return Schema{Format: FormatStandard, Columns: standardColumns}
}

// GarminSchema is the Garmin custom POI layout: lon, lat, name, notes.
func GarminSchema() Schema {
	return Schema{Format: FormatGarmin, Columns: garminColumns}
}

// DrivingLogSchema is the exported driving log layout.
func DrivingLogSchema() Schema {
	return Schema{Format: FormatDrivingLog, Columns: drivingLogColumns}
}

// Classification is the outcome of inspecting the first row.
type Classification struct {
	Schema Schema

	// First is the stop built from the first row when that row is data
	// (Garmin and Standard). It is nil when the first row was a header.
	First *Stop
}

// Classify selects the schema for a file from its first row.
//
// For Furkot and DrivingLog files the row is a header and First is nil. For
// Garmin and Standard files the row is the first data row: it is normalized
// without strict width checking and returned as First. A Standard first row
// whose coordinates are both NaN fails with ErrInvalidColumnMapping, since
// the file most likely has a header that none of the formats recognize. That
// check applies to the first row only.
func Classify(row []string) (Classification, error) {
	if isFurkotHeader(row) {
		return Classification{Schema: furkotSchema(row)}, nil
	}

	if isDrivingLogHeader(row) {
		return Classification{Schema: DrivingLogSchema()}, nil
	}

	if isGarminRow(row) {
		schema := GarminSchema()
		stop := BuildStop(normalize(schema, row))
		return Classification{Schema: schema, First: &stop}, nil
	}

	schema := StandardSchema()
	stop := BuildStop(normalize(schema, row))
	if c := stop.Coordinates; c != nil && math.IsNaN(c.Lat) && math.IsNaN(c.Lon) {
		return Classification{}, ErrInvalidColumnMapping
	}
	return Classification{Schema: schema, First: &stop}, nil
}

// prepHeader trims and lowercases a header cell.
func prepHeader(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}

var mandatoryColumns = []string{FieldName, FieldLat, FieldLon, FieldAddress}

// isFurkotHeader reports whether the row names at least name and either
// address or both lat and lon, in any order and case.
func isFurkotHeader(row []string) bool {
	seen := make(map[string]bool, len(mandatoryColumns))
	for _, field := range row {
		h := prepHeader(field)
		for _, m := range mandatoryColumns {
			if h == m {
				seen[m] = true
			}
		}
	}
	return seen[FieldName] && (seen[FieldAddress] || (seen[FieldLat] && seen[FieldLon]))
}

// furkotSchema keeps the file's own column order and names.
func furkotSchema(row []string) Schema {
	cols := make([]string, len(row))
	for i, field := range row {
		cols[i] = prepHeader(field)
	}
	return Schema{Format: FormatFurkot, Columns: cols}
}

func isDrivingLogHeader(row []string) bool {
	if len(row) < len(drivingLogHeader) {
		return false
	}
	for i, want := range drivingLogHeader {
		if prepHeader(row[i]) != want {
			return false
		}
	}
	return true
}

func isGarminRow(row []string) bool {
	if len(row) < 3 {
		return false
	}
	return isFinite(row[0]) && isFinite(row[1])
}

func isFinite(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}
