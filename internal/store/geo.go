package store

import (
	"math"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mmcloughlin/geohash"
)

// CellPrecision is the geohash length stored for each stop (about 5 m).
const CellPrecision uint = 9

// Cell returns the stored geohash of a point.
func Cell(lat, lon float64) string {
	return geohash.EncodeWithPrecision(lat, lon, CellPrecision)
}

// Neighborhood returns the cell of (lat, lon) at precision followed by its
// eight neighbours. Precision is clamped to 1..CellPrecision.
func Neighborhood(lat, lon float64, precision uint) []string {
	if precision == 0 {
		precision = 1
	}
	if precision > CellPrecision {
		precision = CellPrecision
	}
	center := geohash.EncodeWithPrecision(lat, lon, precision)
	return append([]string{center}, geohash.Neighbors(center)...)
}

func toFloat8(f float64) pgtype.Float8 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// fromFloat8 maps NULL back to NaN, the value that was not stored.
func fromFloat8(f pgtype.Float8) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
