package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/contextkeys"
)

// Logger attaches a request-scoped logger to the context and logs each HTTP
// request with method, path, status, and duration.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := l
			if id, ok := r.Context().Value(contextkeys.RequestID).(string); ok {
				reqLog = l.With().Str("request_id", id).Logger()
			}

			// Wrap response writer to capture status code
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

			ev := reqLog.Info()
			if ww.status >= http.StatusInternalServerError {
				ev = reqLog.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
