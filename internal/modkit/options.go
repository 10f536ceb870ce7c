package modkit

import (
	"net/http"

	"formdata/internal/modkit/httpkit"
	str "formdata/internal/platform/strings"
)

// Option mutates the Base a module is built from
type Option func(*Base)

// WithName sets a module name used in logs and registry
func WithName(name string) Option {
	return func(b *Base) { b.name = name }
}

// WithPrefix mounts a module under a path prefix
func WithPrefix(prefix string) Option {
	return func(b *Base) { b.prefix = prefix }
}

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Base) { b.mw = append(b.mw, mw...) }
}

// WithRoutes adds endpoints after the module's own, mostly for tests and debug routes
func WithRoutes(fn func(httpkit.Router)) Option {
	return func(b *Base) { b.extra = fn }
}

// Base carries the routing surface modules share; modules embed it
type Base struct {
	name   string
	prefix string
	mw     []func(http.Handler) http.Handler
	extra  func(httpkit.Router)
}

// Build applies defaults then caller options, later options win
func Build(defaults []Option, opts ...Option) Base {
	var b Base
	for _, o := range defaults {
		o(&b)
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Name returns the module name
func (b Base) Name() string { return str.MustString(b.name, "module name") }

// Prefix returns the normalized route prefix
func (b Base) Prefix() string { return str.MustPrefix(b.prefix) }

// Middlewares returns a copy of the module middlewares
func (b Base) Middlewares() []func(http.Handler) http.Handler {
	return append([]func(http.Handler) http.Handler(nil), b.mw...)
}

// Mount opens the module prefix, applies its middlewares and registers routes
func (b Base) Mount(r httpkit.Router, routes func(httpkit.Router)) {
	r.Route(b.Prefix(), func(rr httpkit.Router) {
		for _, mw := range b.mw {
			rr.Use(mw)
		}
		routes(rr)
		if b.extra != nil {
			b.extra(rr)
		}
	})
}
