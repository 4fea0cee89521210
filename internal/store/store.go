// Package store persists import history and imported stops in PostgreSQL.
//
// Every import, successful or not, gets a row in imports. Stops of a
// successful import go to import_stops with a geohash cell, so stops from
// earlier imports can be looked up by area.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tripimport/internal/tripcsv"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when an import id is unknown.
var ErrNotFound = errors.New("import not found")

// Import is one recorded import. Stops is only filled by GetImport.
type Import struct {
	ID        uuid.UUID      `json:"id"`
	FileName  string         `json:"fileName"`
	Format    string         `json:"format"`
	StopCount int            `json:"stopCount"`
	ByteCount int64          `json:"byteCount"`
	ErrorCode string         `json:"errorCode,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Stops     []tripcsv.Stop `json:"stops,omitempty"`
}

// NearbyStop is a stored stop found by area.
type NearbyStop struct {
	ImportID uuid.UUID    `json:"importId"`
	Position int          `json:"position"`
	Stop     tripcsv.Stop `json:"stop"`
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var stopColumns = []string{
	"import_id", "position", "name", "address", "url", "notes", "pin",
	"has_coordinates", "lat", "lon", "geohash", "duration_ms", "extra",
}

// SaveImport records the import and its stops in one transaction. Stops are
// written with the COPY protocol.
func (s *Store) SaveImport(ctx context.Context, imp Import) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op after commit

	_, err = tx.Exec(ctx,
		`INSERT INTO imports (id, file_name, format, stop_count, byte_count, error_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		imp.ID, imp.FileName, imp.Format, len(imp.Stops), imp.ByteCount, toText(imp.ErrorCode), imp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	if len(imp.Stops) > 0 {
		rows := make([][]any, len(imp.Stops))
		for i, stop := range imp.Stops {
			rows[i], err = stopRow(imp.ID, i, stop)
			if err != nil {
				return err
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"import_stops"}, stopColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy stops: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListImports returns the most recent imports without their stops.
func (s *Store) ListImports(ctx context.Context, limit int) ([]Import, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, file_name, format, stop_count, byte_count, error_code, created_at
		 FROM imports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// GetImport returns one import with its stops in their original order.
func (s *Store) GetImport(ctx context.Context, id uuid.UUID) (*Import, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, file_name, format, stop_count, byte_count, error_code, created_at
		 FROM imports WHERE id = $1`, id)
	imp, err := scanImport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT import_id, position, name, address, url, notes, pin,
		        has_coordinates, lat, lon, duration_ms, extra
		 FROM import_stops WHERE import_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ns, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		imp.Stops = append(imp.Stops, ns.Stop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &imp, nil
}

// StopsNear returns stored stops in the geohash cell of (lat, lon) at the
// given precision and its eight neighbours.
func (s *Store) StopsNear(ctx context.Context, lat, lon float64, precision uint, limit int) ([]NearbyStop, error) {
	if limit <= 0 {
		limit = 100
	}
	cells := Neighborhood(lat, lon, precision)
	patterns := make([]string, len(cells))
	for i, c := range cells {
		patterns[i] = c + "%"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT import_id, position, name, address, url, notes, pin,
		        has_coordinates, lat, lon, duration_ms, extra
		 FROM import_stops WHERE geohash LIKE ANY($1) LIMIT $2`, patterns, limit)
	if err != nil {
		return nil, fmt.Errorf("query nearby stops: %w", err)
	}
	defer rows.Close()

	var out []NearbyStop
	for rows.Next() {
		ns, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

func scanImport(row pgx.Row) (Import, error) {
	var (
		imp       Import
		errorCode pgtype.Text
	)
	if err := row.Scan(&imp.ID, &imp.FileName, &imp.Format, &imp.StopCount, &imp.ByteCount, &errorCode, &imp.CreatedAt); err != nil {
		return Import{}, err
	}
	imp.ErrorCode = errorCode.String
	return imp, nil
}

func scanStop(row pgx.Row) (NearbyStop, error) {
	var (
		ns                             NearbyStop
		name, address, url, notes, pin pgtype.Text
		hasCoords                      bool
		lat, lon                       pgtype.Float8
		duration                       pgtype.Int8
		extra                          []byte
	)
	err := row.Scan(&ns.ImportID, &ns.Position, &name, &address, &url, &notes, &pin,
		&hasCoords, &lat, &lon, &duration, &extra)
	if err != nil {
		return NearbyStop{}, fmt.Errorf("scan stop: %w", err)
	}

	stop := tripcsv.Stop{
		Name:    name.String,
		Address: address.String,
		URL:     url.String,
		Notes:   notes.String,
		Pin:     pin.String,
	}
	if hasCoords {
		stop.Coordinates = &tripcsv.Coordinates{Lat: fromFloat8(lat), Lon: fromFloat8(lon)}
	}
	if duration.Valid {
		d := duration.Int64
		stop.Duration = &d
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &stop.Extra); err != nil {
			return NearbyStop{}, fmt.Errorf("decode extra: %w", err)
		}
	}
	ns.Stop = stop
	return ns, nil
}

// stopRow converts a stop into the values of one import_stops row, in
// stopColumns order.
func stopRow(importID uuid.UUID, position int, stop tripcsv.Stop) ([]any, error) {
	var (
		hasCoords bool
		lat, lon  pgtype.Float8
		cell      pgtype.Text
		duration  pgtype.Int8
		extra     any
	)
	if c := stop.Coordinates; c != nil {
		hasCoords = true
		lat = toFloat8(c.Lat)
		lon = toFloat8(c.Lon)
		if c.Valid() {
			cell = toText(Cell(c.Lat, c.Lon))
		}
	}
	if stop.Duration != nil {
		duration = pgtype.Int8{Int64: *stop.Duration, Valid: true}
	}
	if len(stop.Extra) > 0 {
		data, err := json.Marshal(stop.Extra)
		if err != nil {
			return nil, fmt.Errorf("encode extra: %w", err)
		}
		extra = data
	}

	return []any{
		importID, int32(position),
		toText(stop.Name), toText(stop.Address), toText(stop.URL), toText(stop.Notes), toText(stop.Pin),
		hasCoords, lat, lon, cell, duration, extra,
	}, nil
}

// toText converts a string to pgtype.Text, invalid when blank.
func toText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
