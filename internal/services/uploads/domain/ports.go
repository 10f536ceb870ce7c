package domain

import (
	"context"
	"iter"

	"formdata/internal/core/formdata"
)

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Create(ctx context.Context, in CreateInput) (Upload, error)
	Get(ctx context.Context, id string) (Upload, error)
	Summarize(ctx context.Context, parts iter.Seq2[formdata.Part, error]) (StreamSummary, error)
}
