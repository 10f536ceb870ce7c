package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/logger"
	pnet "formdata/internal/platform/net"
	phttp "formdata/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into the 500 JSON envelope and logs the stack,
// echoing the request id as a header
// http.ErrAbortHandler is re-raised so net/http can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			if id := pnet.RequestID(r.Context()); id != "" {
				w.Header().Set("X-Request-Id", id)
			}
			phttp.RespondError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
