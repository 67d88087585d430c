package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORS(t *testing.T) {
	dashboard := DashboardCORSConfig([]string{" https://talent.example.com ", "", "http://localhost:5173"})

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantMaxAge  string
		wantExposed bool
		wantNext    bool
	}{
		{
			name:       "disabled without origins",
			cfg:        DashboardCORSConfig(nil),
			method:     http.MethodGet,
			origin:     "https://anywhere.example.com",
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "same-origin request",
			cfg:        dashboard,
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:        "allowed origin trimmed from config",
			cfg:         dashboard,
			method:      http.MethodGet,
			origin:      "https://talent.example.com",
			wantStatus:  http.StatusOK,
			wantOrigin:  "https://talent.example.com",
			wantExposed: true,
			wantNext:    true,
		},
		{
			name:       "preflight",
			cfg:        dashboard,
			method:     http.MethodOptions,
			origin:     "http://localhost:5173",
			wantStatus: http.StatusNoContent,
			wantOrigin: "http://localhost:5173",
			wantMaxAge: "600",
		},
		{
			name:       "foreign origin",
			cfg:        dashboard,
			method:     http.MethodPost,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "foreign preflight",
			cfg:        dashboard,
			method:     http.MethodOptions,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "empty entry does not allow a blank origin",
			cfg:        dashboard,
			method:     http.MethodGet,
			origin:     " ",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := CORS(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			req := httptest.NewRequest(tt.method, "/api/candidates/1/evaluate", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if reached != tt.wantNext {
				t.Errorf("next handler reached = %v, want %v", reached, tt.wantNext)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("Max-Age = %q, want %q", got, tt.wantMaxAge)
			}
			if got := rec.Header().Get("Access-Control-Expose-Headers") != ""; got != tt.wantExposed {
				t.Errorf("Expose-Headers present = %v, want %v", got, tt.wantExposed)
			}
			if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must not be allowed")
			}
		})
	}
}

func TestCORS_ForbiddenBody(t *testing.T) {
	handler := CORS(DashboardCORSConfig([]string{"https://talent.example.com"}))(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "forbidden_origin" || body["message"] != "Origin not allowed" {
		t.Errorf("body = %v", body)
	}
}

func TestCORS_DashboardHeaders(t *testing.T) {
	handler := RequestID(CORS(DashboardCORSConfig([]string{"https://talent.example.com"}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodOptions, "/api/candidates/1/evaluate", nil)
	req.Header.Set("Origin", "https://talent.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("preflight response missing request id")
	}
	allowHeaders := rec.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"Content-Type", RequestIDHeader, IdempotencyKeyHeader} {
		if !strings.Contains(allowHeaders, h) {
			t.Errorf("Allow-Headers %q missing %s", allowHeaders, h)
		}
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/candidates/1/evaluate", nil)
	req.Header.Set("Origin", "https://talent.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	for _, h := range []string{RequestIDHeader, IdempotentReplayedHeader, "Retry-After", "X-RateLimit-Remaining"} {
		if !strings.Contains(exposed, h) {
			t.Errorf("Expose-Headers %q missing %s", exposed, h)
		}
	}
}
