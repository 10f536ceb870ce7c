package sinks

import (
	"bytes"
	"context"
	"io"

	"formdata/internal/core/formdata"
)

// Discard drops file bytes and records only the client file name
type Discard struct{ formdata.NopHooks }

// Name implements formdata.Storage
func (Discard) Name() string { return "discard" }

// NewSink implements formdata.Storage
func (d Discard) NewSink() formdata.Sink { return d }

// Save drains r
func (Discard) Save(_ context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := NewMeter(r)
	if _, err := io.Copy(io.Discard, m); err != nil {
		return formdata.StoredFile{}, m.Fail(err, "discard %q", info.Filename)
	}
	return m.Stored(info.Filename, info.Filename, info), nil
}

// Buffer keeps each file in memory
type Buffer struct{ formdata.NopHooks }

// Name implements formdata.Storage
func (Buffer) Name() string { return "buffer" }

// NewSink implements formdata.Storage
func (b Buffer) NewSink() formdata.Sink { return b }

// Save reads r fully; Value is the file content as []byte
func (Buffer) Save(_ context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := NewMeter(r)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(m); err != nil {
		return formdata.StoredFile{}, m.Fail(err, "buffer %q", info.Filename)
	}
	return m.Stored(info.Filename, buf.Bytes(), info), nil
}

var (
	_ formdata.Storage = Discard{}
	_ formdata.Storage = Buffer{}
)
