package tripcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// RowSource yields raw rows from a tokenized CSV stream.
//
// Next returns io.EOF once the stream is exhausted. Errors caused by the
// input itself should wrap ErrSourceMalformed; any other error is passed
// through to the caller of Parse unchanged.
type RowSource interface {
	Next(ctx context.Context) ([]string, error)
}

// LineReporter is implemented by sources that know which line the last row
// started on. Parse uses it to annotate row errors.
type LineReporter interface {
	Line() int
}

// CSVSource adapts encoding/csv to RowSource. Rows may have any number of
// fields and leading whitespace is trimmed.
type CSVSource struct {
	r    *csv.Reader
	line int
}

// NewCSVSource reads comma-separated rows from r.
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVSource{r: cr}
}

// Next implements RowSource.
func (s *CSVSource) Next(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			s.line = pe.StartLine
			return nil, fmt.Errorf("%w: %w", ErrSourceMalformed, err)
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}

	s.line, _ = s.r.FieldPos(0)
	return row, nil
}

// Line implements LineReporter.
func (s *CSVSource) Line() int {
	return s.line
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows [][]string
	pos  int
}

// NewSliceSource returns a source over already-split rows.
func NewSliceSource(rows [][]string) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Line implements LineReporter.
func (s *SliceSource) Line() int {
	return s.pos
}
