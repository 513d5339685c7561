package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
		w.Write([]byte(`{"id":1}`))
	})
}

func post(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	calls := 0
	h := IdempotencyMiddleware(store, time.Hour)(countingHandler(&calls, http.StatusCreated))

	first := post(h, "/v1/reservations", "abc")
	second := post(h, "/v1/reservations", "abc")

	if calls != 1 {
		t.Fatalf("handler called %d times", calls)
	}
	if first.Code != http.StatusCreated || second.Code != http.StatusOK {
		t.Fatalf("status codes %d, %d", first.Code, second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" || second.Body.String() != `{"id":1}` {
		t.Fatalf("unexpected replay %q %q", second.Header().Get("Idempotent-Replayed"), second.Body.String())
	}

	// same key, different endpoint
	post(h, "/v1/quote", "abc")
	if calls != 2 {
		t.Fatalf("key leaked across paths, calls=%d", calls)
	}
}

func TestIdempotency_SkipsFailuresAndMissingKey(t *testing.T) {
	store := &memoryStore{data: map[string]string{}}
	calls := 0
	h := IdempotencyMiddleware(store, time.Hour)(countingHandler(&calls, http.StatusConflict))

	post(h, "/v1/reservations", "abc")
	post(h, "/v1/reservations", "abc")
	post(h, "/v1/reservations", "")
	if calls != 3 {
		t.Fatalf("failed responses must not be cached, calls=%d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("store holds %d entries", len(store.data))
	}
}

type memoryCounter struct {
	counts map[string]int64
	err    error
}

func (c *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func TestRateLimiter(t *testing.T) {
	counter := &memoryCounter{counts: map[string]int64{}}
	calls := 0
	h := NewRateLimiter(counter, RateLimitConfig{Requests: 2, Window: time.Minute, Prefix: "test"}).
		Middleware()(countingHandler(&calls, http.StatusOK))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("203.0.113.7"); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, code)
		}
	}
	if code := send("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := send("198.51.100.1"); code != http.StatusOK {
		t.Fatalf("other client limited: %d", code)
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	counter := &memoryCounter{err: errors.New("redis down")}
	calls := 0
	h := NewRateLimiter(counter, RateLimitConfig{Requests: 1, Window: time.Minute}).
		Middleware()(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := Health(map[string]HealthCheck{
		"ok":   func(context.Context) error { return nil },
		"down": func(context.Context) error { return errors.New("unreachable") },
	})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "unreachable") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("non-health path intercepted: %d", rec.Code)
	}
}
