package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/tripimport/internal/config"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte("short and stout"))
}

func TestLogger_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Logger(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestResponseWriter_CapturesStatusAndBytes(t *testing.T) {
	ww := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	okHandler(ww, nil)
	ww.WriteHeader(http.StatusInternalServerError)

	if ww.status != http.StatusTeapot {
		t.Errorf("status = %d, want first written %d", ww.status, http.StatusTeapot)
	}
	if ww.bytes != len("short and stout") {
		t.Errorf("bytes = %d, want %d", ww.bytes, len("short and stout"))
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}

	tests := []struct {
		name   string
		method string
		key    string
		want   int
	}{
		{name: "missing key", method: http.MethodGet, key: "", want: http.StatusUnauthorized},
		{name: "invalid key", method: http.MethodGet, key: "nope", want: http.StatusForbidden},
		{name: "valid key", method: http.MethodGet, key: "k2", want: http.StatusTeapot},
		{name: "preflight skips check", method: http.MethodOptions, key: "", want: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/imports", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(cfg)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(&config.SecurityConfig{})(http.HandlerFunc(okHandler)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestTrustedRealIP(t *testing.T) {
	mw := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.1", "not-a-cidr"})

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{
			name:       "trusted proxy with X-Real-IP",
			remoteAddr: "10.1.2.3:5555",
			realIP:     "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "trusted single address with X-Forwarded-For chain",
			remoteAddr: "192.168.1.1:4000",
			forwarded:  "198.51.100.2, 10.1.1.1",
			want:       "198.51.100.2",
		},
		{
			name:       "untrusted client cannot spoof",
			remoteAddr: "203.0.113.50:1234",
			realIP:     "1.2.3.4",
			want:       "203.0.113.50:1234",
		},
		{
			name:       "invalid header ignored",
			remoteAddr: "10.0.0.1:80",
			realIP:     "garbage",
			want:       "10.0.0.1:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
