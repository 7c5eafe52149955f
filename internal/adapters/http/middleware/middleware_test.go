package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestRateLimiter_Allow exhausts and refills the bucket.
func TestRateLimiter_Allow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 2, time.Second)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests must pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request within the interval must be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("bucket must refill after the interval")
	}

	now = now.Add(10 * time.Minute)
	rl.forget(5 * time.Minute)
	if len(rl.visitors) != 0 {
		t.Errorf("visitors = %d after forget, want 0", len(rl.visitors))
	}
}

// TestRateLimit_Envelope answers 429 with the failure envelope.
func TestRateLimit_Envelope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimit(NewRateLimiter(ctx, 1, time.Hour))(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("GET", "/exec", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest("GET", "/exec", nil)
	req2.RemoteAddr = "192.0.2.7:6666"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req2)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"success":false`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

// TestCORS tests origin echoing and preflight handling.
func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed origin", []string{"https://crm.example.com"}, "https://crm.example.com", "GET", "https://crm.example.com", http.StatusOK},
		{"foreign origin", []string{"https://crm.example.com"}, "https://evil.example", "GET", "", http.StatusOK},
		{"wildcard", []string{"*"}, "https://any.example", "GET", "https://any.example", http.StatusOK},
		{"preflight", []string{"https://crm.example.com"}, "https://crm.example.com", "OPTIONS", "https://crm.example.com", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := CORS(tt.allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(tt.method, "/exec", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if called == (tt.method == "OPTIONS") {
				t.Errorf("next called = %v for %s", called, tt.method)
			}
		})
	}
}

// TestCSRF_Exemptions lets JSON and trusted cross-origin posts through and blocks others.
func TestCSRF_Exemptions(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	handler := CSRF(key, false, []string{"https://crm.example.com"})(http.HandlerFunc(okHandler))

	post := func(mutate func(r *http.Request)) int {
		req := httptest.NewRequest("POST", "/exec", strings.NewReader("action=deleteContest&contestId=1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		mutate(req)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := post(func(r *http.Request) { r.Header.Set("Origin", "https://crm.example.com") }); code != http.StatusOK {
		t.Errorf("trusted origin status = %d, want 200", code)
	}
	if code := post(func(r *http.Request) { r.Header.Set("Content-Type", "application/json") }); code != http.StatusOK {
		t.Errorf("json status = %d, want 200", code)
	}
	if code := post(func(r *http.Request) {}); code != http.StatusForbidden {
		t.Errorf("tokenless form status = %d, want 403", code)
	}
}

// TestSecurityHeaders sets the API headers.
func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rr, httptest.NewRequest("GET", "/exec", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("headers = %v", rr.Header())
	}
}

// TestChain_Order verifies the first middleware is outermost.
func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(http.HandlerFunc(okHandler), mark("outer"), mark("inner")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v, want outer,inner", order)
	}
}

type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) WriteHeader(status int) { b.status = status }
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

// TestWriteFailure_LogsEncodeError reports a body that could not be written.
func TestWriteFailure_LogsEncodeError(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := &brokenWriter{header: make(http.Header)}
	writeFailure(w, http.StatusTooManyRequests, "Too many requests")

	if w.status != http.StatusTooManyRequests {
		t.Errorf("status = %d", w.status)
	}
	if !strings.Contains(buf.String(), "response_encode_failed") || !strings.Contains(buf.String(), "connection reset") {
		t.Errorf("log = %q", buf.String())
	}
}
