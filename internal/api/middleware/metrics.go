// metrics.go — Prometheus HTTP метрики Soul Gateway.
// Регистрирует метрики: sg_http_requests_total, sg_http_request_duration_seconds.
// Бизнес-метрики (sg_storage_operations_total, sg_auth_failures_total)
// обновляются из handlers и сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sg_http_requests_total",
			Help: "Общее количество HTTP-запросов к Soul Gateway",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sg_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Soul Gateway в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из handlers/сервисов)
var (
	// StorageOperationsTotal — количество операций хранилища по результату.
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sg_storage_operations_total",
			Help: "Общее количество операций scoped-хранилища",
		},
		[]string{"operation", "result"},
	)

	// AuthFailuresTotal — количество отказов аутентификации/авторизации.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sg_auth_failures_total",
			Help: "Количество отказов аутентификации и авторизации",
		},
		[]string{"kind"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (идентификаторы владельцев/souls схлопываются в {id})
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет переменные сегменты пути на шаблоны, чтобы
// кардинальность лейблов не росла с количеством владельцев и souls.
func normalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return path
	}

	switch segments[0] {
	case "souls":
		// /souls/{owner}/{soul}/files/{filename} — имя файла тоже схлопывается
		if len(segments) >= 5 && segments[3] == "files" {
			return "/souls/{owner_id}/{soul_id}/files/{filename}"
		}
		// /souls/{owner}/{soul}/<операция>
		if len(segments) >= 4 {
			return "/souls/{owner_id}/{soul_id}/" + segments[3]
		}
	case "owners":
		// /owners/{owner}/data
		if len(segments) >= 3 {
			return "/owners/{owner_id}/" + strings.Join(segments[2:], "/")
		}
	case "status":
		// /status/soul/{owner}/{soul}
		if len(segments) >= 4 && segments[1] == "soul" {
			return "/status/soul/{owner_id}/{soul_id}"
		}
	}

	return path
}
