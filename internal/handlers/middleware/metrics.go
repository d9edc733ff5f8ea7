package middleware

import (
	"net/http"
	"time"
)

type httpObserver interface {
	ObserveHTTP(method string, path string, status int, elapsed time.Duration)
}

// statusWriter remembers response status
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// MetricsMiddleware observes every request by its route pattern
// Must wrap the ServeMux directly: the mux sets the pattern on the request it gets
func MetricsMiddleware(o httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			o.ObserveHTTP(r.Method, pattern, sw.status, time.Since(start))
		})
	}
}
