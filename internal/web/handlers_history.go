package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/tripimport/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// History is the read side of the import store. *store.Store implements it.
type History interface {
	ListImports(ctx context.Context, limit int) ([]store.Import, error)
	GetImport(ctx context.Context, id uuid.UUID) (*store.Import, error)
	StopsNear(ctx context.Context, lat, lon float64, precision uint, limit int) ([]store.NearbyStop, error)
	Ping(ctx context.Context) error
}

const (
	defaultListLimit   = 50
	maxListLimit       = 500
	defaultNearbyLimit = 100
	defaultPrecision   = 6
)

// handleListImports returns the most recent imports, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondErrorJSON(w, historyDisabledMessage, http.StatusNotFound)
		return
	}

	limit := min(parseIntParam(r, "limit", defaultListLimit), maxListLimit)
	imports, err := s.history.ListImports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if imports == nil {
		imports = []store.Import{}
	}
	writeJSON(w, map[string]any{"imports": imports})
}

// handleGetImport returns one recorded import with its stops.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondErrorJSON(w, historyDisabledMessage, http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		respondErrorJSON(w, importNotFoundMessage, http.StatusNotFound)
		return
	}

	imp, err := s.history.GetImport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondErrorJSON(w, importNotFoundMessage, http.StatusNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, imp)
}

// handleStopsNearby returns stored stops around ?lat=&lon=. precision is the
// geohash length of the search cell, 1 to 9.
func (s *Server) handleStopsNearby(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondErrorJSON(w, historyDisabledMessage, http.StatusNotFound)
		return
	}

	lat, okLat := parseFloatParam(r, "lat")
	lon, okLon := parseFloatParam(r, "lon")
	if !okLat || !okLon || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		respondBadRequest(w, "lat and lon are required", "Pass ?lat=<-90..90>&lon=<-180..180>")
		return
	}
	precision := uint(min(parseIntParam(r, "precision", defaultPrecision), int(store.CellPrecision)))
	limit := min(parseIntParam(r, "limit", defaultNearbyLimit), maxListLimit)

	stops, err := s.history.StopsNear(r.Context(), lat, lon, precision, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if stops == nil {
		stops = []store.NearbyStop{}
	}
	writeJSON(w, map[string]any{"stops": stops})
}
