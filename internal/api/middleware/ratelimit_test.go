package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRateLimiter_AllowsWithinLimit проверяет прохождение запросов в пределах квоты.
func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(60)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("запрос %d: ожидался 200, получен %d", i, rec.Code)
		}
	}
}

// TestRateLimiter_RejectsOverLimit проверяет 429 после исчерпания квоты.
func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.2:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("запрос %d в пределах квоты: получен %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("ожидался 429, получен %d", rec.Code)
	}
}

// TestRateLimiter_PerClient проверяет независимость квот разных клиентов.
func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/health", nil)
	first.RemoteAddr = "10.0.0.3:1111"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("первый клиент: получен %d", rec.Code)
	}

	// Квота первого клиента исчерпана, второй клиент не затронут
	second := httptest.NewRequest(http.MethodGet, "/health", nil)
	second.RemoteAddr = "10.0.0.4:2222"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("второй клиент: ожидался 200, получен %d", rec.Code)
	}
}
