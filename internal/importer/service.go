// Package importer runs CSV imports for the HTTP server and the CLI.
//
// A Service bounds concurrent imports, enforces the size and time limits,
// parses with tripcsv, records metrics and, when a Recorder is configured,
// stores the outcome in the import history.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/tripimport/internal/logging"
	"github.com/JonMunkholm/tripimport/internal/metrics"
	"github.com/JonMunkholm/tripimport/internal/store"
	"github.com/JonMunkholm/tripimport/internal/tripcsv"
	"github.com/google/uuid"
)

// formatUnknown labels failed imports, whose format is not reported.
const formatUnknown = "unknown"

// ErrFileTooLarge is returned when the input exceeds Options.MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// Recorder stores import outcomes. *store.Store implements it.
type Recorder interface {
	SaveImport(ctx context.Context, imp store.Import) error
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration
	Timeout       time.Duration
}

// Result is a finished import.
type Result struct {
	ID       uuid.UUID
	FileName string
	Format   tripcsv.Format
	Trip     tripcsv.Trip
	Rows     int
	Bytes    int64
	Duration time.Duration
}

// Service runs imports.
type Service struct {
	opts     Options
	limiter  *Limiter
	recorder Recorder
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewService creates a Service. recorder may be nil to disable history.
func NewService(opts Options, recorder Recorder, m *metrics.Collector) *Service {
	if m == nil {
		m = metrics.NewCollector()
	}
	return &Service{
		opts:     opts,
		limiter:  NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		recorder: recorder,
		metrics:  m,
		now:      time.Now,
	}
}

// HistoryEnabled reports whether imports are recorded.
func (s *Service) HistoryEnabled() bool {
	return s.recorder != nil
}

// Limiter exposes the concurrency limiter, used on shutdown.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// Import parses one CSV stream. On failure no trip is returned; the error
// wraps the tripcsv error kinds, ErrFileTooLarge, ErrTooManyImports or the
// context error.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (*Result, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	s.metrics.ActiveImports.Inc()
	defer s.metrics.ActiveImports.Dec()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	id := uuid.New()
	logger := logging.WithFields(ctx, "import_id", id.String(), "file", fileName)

	start := s.now()
	clean, counter := tripcsv.WrapForStreaming(limitReader(r, s.opts.MaxFileSize))
	report, err := tripcsv.ParseDetailed(ctx, tripcsv.NewCSVSource(clean))
	elapsed := s.now().Sub(start)

	s.metrics.ParseDuration.Observe(elapsed.Seconds())
	s.metrics.BytesRead.Observe(float64(counter.BytesRead))

	format := report.Format.String()
	if err != nil {
		format = formatUnknown
		msg := MapError(err)
		s.metrics.ImportsTotal.WithLabelValues(format, metrics.StatusFailed).Inc()
		logger.Warn("import failed",
			"error", err.Error(),
			"code", msg.Code,
			"bytes", counter.BytesRead,
			"duration_ms", elapsed.Milliseconds(),
		)
		s.record(ctx, store.Import{
			ID:        id,
			FileName:  fileName,
			Format:    format,
			ByteCount: counter.BytesRead,
			ErrorCode: msg.Code,
			CreatedAt: start,
		})
		return nil, fmt.Errorf("import %s: %w", fileName, err)
	}

	stops := len(report.Trip.Stops)
	s.metrics.ImportsTotal.WithLabelValues(format, metrics.StatusOK).Inc()
	s.metrics.StopsImported.Add(float64(stops))
	logger.Info("import completed",
		"format", format,
		"rows", report.Rows,
		"stops", stops,
		"bytes", counter.BytesRead,
		"duration_ms", elapsed.Milliseconds(),
	)

	s.record(ctx, store.Import{
		ID:        id,
		FileName:  fileName,
		Format:    format,
		StopCount: stops,
		ByteCount: counter.BytesRead,
		CreatedAt: start,
		Stops:     report.Trip.Stops,
	})

	return &Result{
		ID:       id,
		FileName: fileName,
		Format:   report.Format,
		Trip:     report.Trip,
		Rows:     report.Rows,
		Bytes:    counter.BytesRead,
		Duration: elapsed,
	}, nil
}

// record saves the outcome. A history failure does not fail the import.
func (s *Service) record(ctx context.Context, imp store.Import) {
	if s.recorder == nil {
		return
	}
	// The import context may already be past its deadline.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.recorder.SaveImport(saveCtx, imp); err != nil {
		logging.FromContext(ctx).Error("failed to record import",
			"import_id", imp.ID.String(),
			"error", err,
		)
	}
}

// sizeLimitedReader fails with ErrFileTooLarge once more than limit bytes
// have been read.
type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
}

func limitReader(r io.Reader, limit int64) io.Reader {
	if limit <= 0 {
		return r
	}
	return &sizeLimitedReader{r: r, remaining: limit}
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	return n, err
}
