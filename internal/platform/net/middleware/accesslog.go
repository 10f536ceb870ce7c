package middleware

import (
	"net/http"
	"time"

	"formdata/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLog writes one line per request through logger.C, so request_id and
// upload_id ride along. Requests at or over slow log at warn; zero disables that
func AccessLog(slow time.Duration) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				took := time.Since(start)
				log := logger.C(r.Context())
				evt := log.Info()
				if slow > 0 && took >= slow {
					evt = log.Warn()
				}
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				evt.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int64("bytes_in", r.ContentLength).
					Int("bytes_out", ww.BytesWritten()).
					Dur("took", took).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
