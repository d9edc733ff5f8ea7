package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/handlers/userctx"
)

type logger interface {
	Info(msg string, args ...any)
}

type logWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *logWriter) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *logWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// LoggerMiddleware logs every request with the route pattern and the caller, if authenticated
func LoggerMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &logWriter{ResponseWriter: w, status: http.StatusOK}

			ctx, caller := userctx.Track(r.Context())
			r = r.WithContext(ctx)

			next.ServeHTTP(lw, r)

			callerID := "anonymous"
			if id := caller(); id != uuid.Nil {
				callerID = id.String()
			}

			l.Info(
				"got HTTP request",
				"method", r.Method,
				"uri", r.RequestURI,
				"pattern", r.Pattern,
				"caller", callerID,
				"duration", time.Since(start),
				"status", lw.status,
				"size", lw.size,
			)
		})
	}
}
