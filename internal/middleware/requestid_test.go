package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "no header", incoming: ""},
		{name: "uuid kept", incoming: "550e8400-e29b-41d4-a716-446655440000", keep: true},
		{name: "trace id kept", incoming: "dash_01.retry-2", keep: true},
		{name: "log injection replaced", incoming: "abc\nlevel=ERROR msg=forged"},
		{name: "symbols replaced", incoming: "id@#$%"},
		{name: "too long replaced", incoming: strings.Repeat("a", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var inContext string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inContext = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got != inContext {
				t.Errorf("header %q differs from context %q", got, inContext)
			}
			if tt.keep {
				if got != tt.incoming {
					t.Errorf("request id = %q, want %q", got, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("request id %q is not a generated uuid", got)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestIsValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"trace_01.retry-2", true},
		{"has space", false},
		{"line\nbreak", false},
		{"quote\"", false},
		{strings.Repeat("a", maxRequestIDLength), true},
		{strings.Repeat("a", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		if got := isValidRequestID(tt.id); got != tt.want {
			t.Errorf("isValidRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestRequestID_WithLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/candidates/123", nil)
	req.Header.Set(RequestIDHeader, "dash-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	for _, field := range []string{"method=GET", "path=/api/candidates/123", "status=404", "request_id=dash-7"} {
		if !strings.Contains(logs.String(), field) {
			t.Errorf("log missing %q: %s", field, logs.String())
		}
	}
}

func BenchmarkRequestID(b *testing.B) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)

	b.ReportAllocs()
	for b.Loop() {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
