// ratelimit.go — ограничение частоты запросов на клиента.
// Token bucket (golang.org/x/time/rate) с ключом по адресу клиента.
// Лимит задаётся конфигурацией SG_RATE_LIMIT_PER_MINUTE.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apierrors "github.com/cyberseed/soul-gateway/internal/api/errors"
)

// clientLimiter — лимитер одного клиента с отметкой последнего обращения.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter — per-client ограничитель частоты запросов.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastScan time.Time
}

// NewRateLimiter создаёт RateLimiter с лимитом perMinute запросов в минуту.
// Burst равен лимиту: клиент может израсходовать минутную квоту разом.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		maxIdle: 3 * time.Minute,
	}
}

// Middleware возвращает HTTP middleware, отклоняющий запросы сверх лимита
// со статусом 429.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientKey(r)) {
				apierrors.RateLimited(w, "Превышен лимит запросов, повторите позже")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow проверяет квоту клиента и попутно чистит устаревшие записи.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Ленивая очистка: не чаще раза в maxIdle
	if now.Sub(rl.lastScan) > rl.maxIdle {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.maxIdle {
				delete(rl.clients, k)
			}
		}
		rl.lastScan = now
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.Allow()
}

// clientKey возвращает ключ клиента: IP без порта.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
