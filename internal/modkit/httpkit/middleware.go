package httpkit

import (
	"compress/flate"
	"time"

	"formdata/internal/platform/net/middleware"
)

// StackOptions tunes the middleware every API route runs behind
type StackOptions struct {
	CORSOrigins []string
	// Timeout bounds the whole request, body upload included
	Timeout time.Duration
	// Slow marks access log lines at warn
	Slow time.Duration
}

// Stack returns the shared middleware chain. Per module multipart handling is
// added through formkit on top of this
func Stack(o StackOptions) []middleware.Func {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Minute
	}
	return []middleware.Func{
		middleware.RequestID,
		middleware.Correlate(),
		middleware.RealIP,
		middleware.RecoverJSON,
		middleware.AccessLog(o.Slow),
		middleware.NoCache,
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes,
		middleware.Timeout(o.Timeout),
	}
}
