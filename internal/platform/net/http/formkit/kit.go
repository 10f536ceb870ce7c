package formkit

import (
	"context"
	"errors"
	"net/http"

	"formdata/internal/core/decoders"
	"formdata/internal/platform/logger"
	phttp "formdata/internal/platform/net/http"
)

type ctxKey struct{}

// Kit owns the process scoped engine and storage and hands out per request state
type Kit struct {
	opts Options
}

// New validates opts and builds a Kit
func New(opts Options) (*Kit, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Kit{opts: opts}, nil
}

// Options returns the validated options
func (k *Kit) Options() Options { return k.opts }

// Prepare runs the process scoped hooks of the engine, then the storage
func (k *Kit) Prepare(ctx context.Context) error {
	if err := k.opts.Engine.Prepare(ctx); err != nil {
		return err
	}
	if err := k.opts.Storage.Prepare(ctx); err != nil {
		return err
	}
	logger.Named("formkit").Debug().
		Str("engine", k.opts.Engine.Name()).
		Str("storage", k.opts.Storage.Name()).
		Msg("multipart ready")
	return nil
}

// Cleanup runs both process scoped cleanups even when one fails
func (k *Kit) Cleanup(ctx context.Context) error {
	err := errors.Join(k.opts.Engine.Cleanup(ctx), k.opts.Storage.Cleanup(ctx))
	if err != nil {
		logger.Named("formkit").Warn().Err(err).Msg("multipart cleanup failed")
	}
	return err
}

// Detect attaches a Request to every request context and cleans it up once the
// handler has written its response. With ParseOnDetect a form body is parsed before
// next runs and a parse failure is answered directly
func (k *Kit) Detect() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := k.newRequest(r)
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, q))
			defer func() { _ = q.Cleanup(context.WithoutCancel(r.Context())) }()

			if k.opts.ParseOnDetect && q.IsMultipart() {
				if _, err := q.Parse(r.Context()); err != nil {
					phttp.RespondError(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AutoParse parses form bodies before next when Options.AutoParse is set; it must sit
// behind Detect. Without AutoParse it passes requests through untouched
func (k *Kit) AutoParse() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !k.opts.AutoParse {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := From(r)
			if q.IsMultipart() {
				if _, err := q.Parse(r.Context()); err != nil {
					phttp.RespondError(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (k *Kit) newRequest(r *http.Request) *Request {
	ct := r.Header.Get("Content-Type")
	return &Request{
		kit:         k,
		body:        r.Body,
		contentType: ct,
		multipart:   r.Body != nil && decoders.IsMultipart(ct),
	}
}

// From returns the Request attached by Detect. Without Detect it returns a Request
// that is never multipart
func From(r *http.Request) *Request {
	if q, ok := r.Context().Value(ctxKey{}).(*Request); ok {
		return q
	}
	return &Request{}
}
