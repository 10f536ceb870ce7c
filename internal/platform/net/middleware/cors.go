package middleware

import (
	pstrings "formdata/internal/platform/strings"

	"github.com/go-chi/cors"
)

// CORSOptions is the subset of go-chi/cors the API configures
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Accept", "Content-Type", "Content-Length", "X-Request-Id"}
	corsExposed = []string{"X-Request-Id"}
)

// CORS answers preflights for browser uploads. Empty lists take the defaults
func CORS(o CORSOptions) Func {
	return cors.Handler(cors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   pstrings.IfEmpty(o.AllowedMethods, corsMethods),
		AllowedHeaders:   pstrings.IfEmpty(o.AllowedHeaders, corsHeaders),
		ExposedHeaders:   pstrings.IfEmpty(o.ExposedHeaders, corsExposed),
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}
