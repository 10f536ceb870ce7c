package middleware

import (
	"net/http"

	"formdata/internal/platform/logger"
	pnet "formdata/internal/platform/net"
)

// Correlate copies the chi request id into the logger context so every
// logger.C line for the request carries request_id
// mount after RequestID
func Correlate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := pnet.RequestID(ctx); id != "" {
				ctx = logger.WithRequest(ctx, id, pnet.UploadID(ctx))
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
