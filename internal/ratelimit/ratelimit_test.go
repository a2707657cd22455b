package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAllowsWithinBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(ctx, WithRate(1, 3))
	h := l.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, rec.Code)
		}
	}
}

func TestRejectsOverBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var denied []string
	l := New(ctx, WithRate(1, 2), WithOnDenied(func(ip string) {
		denied = append(denied, ip)
	}))
	h := l.Middleware(okHandler())

	send := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = "10.0.0.2:5000"
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	send()
	send()
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want 429", code)
	}
	if len(denied) != 1 || denied[0] != "10.0.0.2" {
		t.Fatalf("denied callback = %v, want one call for 10.0.0.2", denied)
	}
}

func TestIsolatesPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(ctx, WithRate(1, 1))
	h := l.Middleware(okHandler())

	send := func(addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.3:1"); code != http.StatusOK {
		t.Fatalf("first ip: got %d, want 200", code)
	}
	if code := send("10.0.0.3:1"); code != http.StatusTooManyRequests {
		t.Fatalf("first ip second request: got %d, want 429", code)
	}
	if code := send("10.0.0.4:1"); code != http.StatusOK {
		t.Fatalf("second ip should be unaffected, got %d", code)
	}
}

func TestCleanupEvictsIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(ctx, WithTTL(20*time.Millisecond))
	l.allow("10.0.0.5")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		n := len(l.visitors)
		l.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("idle visitor was not evicted")
}
