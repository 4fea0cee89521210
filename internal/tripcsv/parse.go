package tripcsv

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ContextCheckInterval is how often (in rows) Parse checks for cancellation.
const ContextCheckInterval = 100

// Trip is the result of a parse. Stops is nil when the file had no data rows,
// which encodes as an empty JSON object.
type Trip struct {
	Stops []Stop `json:"stops,omitempty"`
}

// Report describes a parse alongside its trip.
type Report struct {
	Trip   Trip
	Format Format

	// Rows is the number of rows read from the source, header included.
	Rows int
}

// Parse reads every row from src and returns the assembled trip. Either the
// whole file parses or an error is returned; no partial trip is produced.
func Parse(ctx context.Context, src RowSource) (Trip, error) {
	report, err := ParseDetailed(ctx, src)
	if err != nil {
		return Trip{}, err
	}
	return report.Trip, nil
}

// ParseReader is Parse over a CSV byte stream, with BOM and invalid UTF-8
// cleanup applied.
func ParseReader(ctx context.Context, r io.Reader) (Trip, error) {
	clean, _ := WrapForStreaming(r)
	return Parse(ctx, NewCSVSource(clean))
}

// ParseDetailed is Parse that also reports the detected format.
func ParseDetailed(ctx context.Context, src RowSource) (Report, error) {
	var (
		report Report
		schema Schema
		stops  []Stop
	)

	for {
		if report.Rows%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Report{}, fmt.Errorf("parse cancelled after %d rows: %w", report.Rows, err)
			}
		}

		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Report{}, rowError(src, err)
		}
		report.Rows++

		if report.Rows == 1 {
			c, err := Classify(row)
			if err != nil {
				return Report{}, rowError(src, err)
			}
			schema = c.Schema
			if c.First != nil {
				stops = append(stops, *c.First)
			}
			continue
		}

		fields, err := Normalize(schema, row, true)
		if err != nil {
			return Report{}, rowError(src, err)
		}
		stops = append(stops, BuildStop(fields))
	}

	if schema.Format == FormatDrivingLog && len(stops) > 0 {
		stops = finishDrivingLog(stops)
	}

	report.Format = schema.Format
	report.Trip = assemble(stops)
	return report, nil
}

// assemble returns an empty trip for no stops, so the stops key is omitted.
func assemble(stops []Stop) Trip {
	if len(stops) == 0 {
		return Trip{}
	}
	return Trip{Stops: stops}
}

// rowError annotates the error kinds with the source line. Other errors,
// such as a cancelled context, pass through.
func rowError(src RowSource, err error) error {
	if !errors.Is(err, ErrTooManyFields) &&
		!errors.Is(err, ErrInvalidColumnMapping) &&
		!errors.Is(err, ErrSourceMalformed) {
		return err
	}
	line := 0
	if lr, ok := src.(LineReporter); ok {
		line = lr.Line()
	}
	return &RowError{Line: line, Err: err}
}
