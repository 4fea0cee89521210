package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/tripimport/internal/metrics"
	"github.com/JonMunkholm/tripimport/internal/store"
	"github.com/JonMunkholm/tripimport/internal/tripcsv"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeRecorder struct {
	mu      sync.Mutex
	imports []store.Import
	err     error
}

func (f *fakeRecorder) SaveImport(_ context.Context, imp store.Import) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, imp)
	return f.err
}

// metricValue reads the current value of a counter or gauge.
func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	t.Fatalf("metric is neither counter nor gauge")
	return 0
}

const tripCSV = `name,lat,lon,duration
Duomo,45.4642,9.19,30
Colosseo,41.8902,12.4922,
`

func TestService_Import(t *testing.T) {
	rec := &fakeRecorder{}
	m := metrics.NewCollector()
	svc := NewService(Options{}, rec, m)

	res, err := svc.Import(context.Background(), "italy.csv", strings.NewReader(tripCSV))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.Format != tripcsv.FormatFurkot {
		t.Errorf("Format = %v, want furkot", res.Format)
	}
	if len(res.Trip.Stops) != 2 {
		t.Fatalf("len(Stops) = %d, want 2", len(res.Trip.Stops))
	}
	if res.Bytes != int64(len(tripCSV)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(tripCSV))
	}
	if res.Rows != 3 {
		t.Errorf("Rows = %d, want 3", res.Rows)
	}

	if len(rec.imports) != 1 {
		t.Fatalf("recorded %d imports, want 1", len(rec.imports))
	}
	got := rec.imports[0]
	if got.ID != res.ID || got.Format != "furkot" || got.StopCount != 2 || got.ErrorCode != "" {
		t.Errorf("recorded import = %+v", got)
	}

	if v := metricValue(t, m.ImportsTotal.WithLabelValues("furkot", metrics.StatusOK)); v != 1 {
		t.Errorf("imports_total{furkot,ok} = %v, want 1", v)
	}
	if v := metricValue(t, m.StopsImported); v != 2 {
		t.Errorf("stops_imported_total = %v, want 2", v)
	}
	if v := metricValue(t, m.ActiveImports); v != 0 {
		t.Errorf("active_imports = %v, want 0", v)
	}
}

func TestService_ImportFailure(t *testing.T) {
	rec := &fakeRecorder{}
	m := metrics.NewCollector()
	svc := NewService(Options{}, rec, m)

	input := "name,lat,lon\nDuomo,45.4642,9.19\nRoma,41.9,12.5,extra\n"
	res, err := svc.Import(context.Background(), "bad.csv", strings.NewReader(input))
	if res != nil {
		t.Errorf("Import() returned a result on failure: %+v", res)
	}
	if !errors.Is(err, tripcsv.ErrTooManyFields) {
		t.Fatalf("Import() error = %v, want ErrTooManyFields", err)
	}

	if len(rec.imports) != 1 || rec.imports[0].ErrorCode != "CSV002" {
		t.Errorf("recorded imports = %+v, want one with CSV002", rec.imports)
	}
	if v := metricValue(t, m.ImportsTotal.WithLabelValues(formatUnknown, metrics.StatusFailed)); v != 1 {
		t.Errorf("imports_total{unknown,failed} = %v, want 1", v)
	}
}

func TestService_FileTooLarge(t *testing.T) {
	svc := NewService(Options{MaxFileSize: 16}, nil, nil)

	_, err := svc.Import(context.Background(), "big.csv", strings.NewReader(tripCSV))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Import() error = %v, want ErrFileTooLarge", err)
	}
	if got := MapError(err).Code; got != "FILE001" {
		t.Errorf("MapError code = %q, want FILE001", got)
	}
}

func TestService_ExactSizeAllowed(t *testing.T) {
	svc := NewService(Options{MaxFileSize: int64(len(tripCSV))}, nil, nil)

	if _, err := svc.Import(context.Background(), "ok.csv", strings.NewReader(tripCSV)); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
}

func TestService_RecorderFailureDoesNotFailImport(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("connection refused")}
	svc := NewService(Options{}, rec, nil)

	res, err := svc.Import(context.Background(), "italy.csv", strings.NewReader(tripCSV))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(res.Trip.Stops) != 2 {
		t.Errorf("len(Stops) = %d, want 2", len(res.Trip.Stops))
	}
}

func TestService_Cancelled(t *testing.T) {
	svc := NewService(Options{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, "italy.csv", strings.NewReader(tripCSV))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Import() error = %v, want context.Canceled", err)
	}
}

func TestService_Busy(t *testing.T) {
	svc := NewService(Options{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond}, nil, nil)
	if !svc.Limiter().TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer svc.Limiter().Release()

	_, err := svc.Import(context.Background(), "italy.csv", strings.NewReader(tripCSV))
	if !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("Import() error = %v, want ErrTooManyImports", err)
	}
}

func TestService_HistoryEnabled(t *testing.T) {
	if NewService(Options{}, nil, nil).HistoryEnabled() {
		t.Error("HistoryEnabled() = true without a recorder")
	}
	if !NewService(Options{}, &fakeRecorder{}, nil).HistoryEnabled() {
		t.Error("HistoryEnabled() = false with a recorder")
	}
}
