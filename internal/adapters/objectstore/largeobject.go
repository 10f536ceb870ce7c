package objectstore

import (
	"context"
	"io"

	"formdata/internal/core/formdata"
	"formdata/internal/core/sinks"
	"formdata/internal/platform/store"
)

// LargeObject streams each upload into postgres pg_largeobject; Value is the oid
type LargeObject struct {
	formdata.NopHooks
	lo store.LargeObjects
}

// NewLargeObject builds the storage over lo
func NewLargeObject(lo store.LargeObjects) *LargeObject { return &LargeObject{lo: lo} }

// Name implements formdata.Storage
func (l *LargeObject) Name() string { return "pg" }

// NewSink implements formdata.Storage
func (l *LargeObject) NewSink() formdata.Sink { return loSink{st: l} }

type loSink struct {
	formdata.NopHooks
	st *LargeObject
}

func (k loSink) Save(ctx context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := sinks.NewMeter(r)
	oid, _, err := k.st.lo.WriteLargeObject(ctx, m)
	if err != nil || m.Err() != nil {
		return formdata.StoredFile{}, m.Fail(err, "large object for %q", info.Filename)
	}
	return m.Stored(info.Filename, oid, info), nil
}

var _ formdata.Storage = (*LargeObject)(nil)
