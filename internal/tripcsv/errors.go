package tripcsv

import (
	"errors"
	"fmt"
)

// Error kinds returned by Parse. Match them with errors.Is: they are usually
// wrapped in a *RowError that carries the CSV line.
var (
	// ErrInvalidColumnMapping means the first row of a header-less file did
	// not yield usable coordinates, so it was most likely an unrecognized header.
	ErrInvalidColumnMapping = errors.New("invalid column mapping")

	// ErrTooManyFields means a row has more fields than its schema, which
	// usually comes from an unquoted delimiter inside a value.
	ErrTooManyFields = errors.New("too many fields")

	// ErrSourceMalformed means the row source rejected the input itself.
	ErrSourceMalformed = errors.New("malformed csv")
)

// RowError ties an error kind to the 1-based CSV line that produced it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// tooManyFields builds the strict-width error for a row.
func tooManyFields(got, want int) error {
	return fmt.Errorf("%w: row has %d fields, expected at most %d", ErrTooManyFields, got, want)
}
