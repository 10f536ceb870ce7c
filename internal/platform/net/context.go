// Package net carries request scoped ids on a context
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type uploadKey struct{}

// WithRequestID stores id where chi's RequestID middleware would; empty is a no-op
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, id)
}

// RequestID returns the chi request id, or ""
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithUploadID tags ctx with the upload being recorded; empty is a no-op
func WithUploadID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, uploadKey{}, id)
}

// UploadID returns the upload id, or ""
func UploadID(ctx context.Context) string {
	id, _ := ctx.Value(uploadKey{}).(string)
	return id
}
