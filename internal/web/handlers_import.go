package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/JonMunkholm/tripimport/internal/importer"
)

// multipartSlack is added to the body limit of multipart requests to cover
// part headers and boundaries. The file itself is limited by the importer.
const multipartSlack = 64 << 10

// defaultFileName names imports posted as a raw body without ?name=.
const defaultFileName = "trip.csv"

// handleImport converts a CSV file to trip JSON. The file is either the
// "file" part of a multipart form or the raw request body. It is streamed
// to the parser, never buffered whole.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize+multipartSlack)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		name string
		body io.Reader
	)
	if mediaType == "multipart/form-data" {
		part, err := filePart(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		defer part.Close()
		name = defaultFileName
		if fn := part.FileName(); fn != "" {
			name = path.Base(fn)
		}
		body = part
	} else {
		name = r.URL.Query().Get("name")
		if name == "" {
			name = defaultFileName
		}
		body = r.Body
	}

	result, err := s.importer.Import(r.Context(), name, body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Import-Id", result.ID.String())
	w.Header().Set("X-Trip-Format", result.Format.String())
	writeJSON(w, result.Trip)
}

// filePart returns the multipart part named "file". Parts before it are
// skipped without being buffered.
func filePart(r *http.Request) (partReader, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", importer.ErrNoFile, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, importer.ErrNoFile
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, importer.ErrFileTooLarge
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

// partReader is the subset of *multipart.Part used by handleImport.
type partReader interface {
	io.ReadCloser
	FileName() string
}

// handleImportStatus reports how many imports are running.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	limiter := s.importer.Limiter()
	writeJSON(w, map[string]int{
		"active":    limiter.Active(),
		"capacity":  limiter.Capacity(),
		"available": limiter.Capacity() - limiter.Active(),
	})
}
