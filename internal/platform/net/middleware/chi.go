// Package middleware holds the request pipeline shared by every module.
// chi middlewares are re-exported here so modules never import chi
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Func is a net/http middleware
type Func = func(http.Handler) http.Handler

var (
	// RequestID accepts an inbound X-Request-Id or mints one
	RequestID Func = chimw.RequestID
	// RealIP trusts X-Real-IP and X-Forwarded-For for RemoteAddr
	RealIP Func = chimw.RealIP
	NoCache Func = chimw.NoCache
	// StripSlashes routes /uploads/ as /uploads
	StripSlashes Func = chimw.StripSlashes
)

// Timeout cancels the request context after d; uploads read the body under it
func Timeout(d time.Duration) Func { return chimw.Timeout(d) }

// RequestSize caps the body at n bytes; the decoder then sees a truncated
// stream and reports the body as malformed
func RequestSize(n int64) Func { return chimw.RequestSize(n) }

// ThrottleBacklog runs at most limit requests, parks backlog more for ttl
// and answers 429 past that
func ThrottleBacklog(limit, backlog int, ttl time.Duration) Func {
	return chimw.ThrottleBacklog(limit, backlog, ttl)
}

// Compress encodes JSON responses; upload bodies are never touched
func Compress(level int) Func {
	return chimw.NewCompressor(level, "application/json").Handler
}
