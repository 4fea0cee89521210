// Package tripcsv converts CSV files of several known layouts into trip stops.
//
// The package has no I/O of its own beyond reading rows: callers hand
// [Parse] a [RowSource] (usually a [CSVSource] over a request body or file)
// and get back a [Trip] or an error. All state lives inside one call.
//
// # Formats
//
// The first row decides the layout for the whole file, see [Classify]:
//
//   - Furkot: header row, any column order and case, optional columns may be omitted
//   - DrivingLog: header row starting with From, From Address, To, To Address
//   - Garmin: custom POI files without header (lon, lat, name, notes)
//   - Standard: no header, columns name, lat, lon, address, url, notes, pin, duration
//
// # Stops
//
// Each data row becomes a [Stop]. lat and lon are merged into Coordinates,
// and duration (minutes in the file) is stored in milliseconds. Driving log
// files get one extra stop for the final destination, and their durations
// are derived from the departure and arrival times of consecutive legs.
//
// # Errors
//
// Parsing stops at the first error and returns one of [ErrInvalidColumnMapping],
// [ErrTooManyFields] or [ErrSourceMalformed], wrapped in a [RowError] with
// the offending line.
package tripcsv
