// Package sinks holds the storages that keep uploaded files in memory, on disk or nowhere
package sinks

import (
	"fmt"
	"io"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"

	"github.com/cespare/xxhash/v2"
)

// Meter counts and hashes the bytes a sink pulls from a file stream.
// It remembers the first read failure so sinks can hand it back untouched
type Meter struct {
	r   io.Reader
	n   int64
	h   *xxhash.Digest
	err error
}

// NewMeter wraps r
func NewMeter(r io.Reader) *Meter {
	return &Meter{r: r, h: xxhash.New()}
}

// Read implements io.Reader
func (m *Meter) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.n += int64(n)
		_, _ = m.h.Write(p[:n])
	}
	if err != nil && err != io.EOF && m.err == nil {
		m.err = err
	}
	return n, err
}

// Size is the number of bytes read so far
func (m *Meter) Size() int64 { return m.n }

// Digest is the xxhash64 of the bytes read so far, as 16 hex digits
func (m *Meter) Digest() string { return fmt.Sprintf("%016x", m.h.Sum64()) }

// Err is the first read failure of the wrapped stream
func (m *Meter) Err() error { return m.err }

// Stored builds the common part of a stored file from what was read
func (m *Meter) Stored(name string, value any, info formdata.Info) formdata.StoredFile {
	return formdata.StoredFile{
		Name:     name,
		Value:    value,
		Size:     m.n,
		MimeType: info.MimeType,
		Digest:   m.Digest(),
	}
}

// Fail drains the rest of the stream and picks the error Save reports.
// A stream failure (limit or read error) wins over the sink's own error
func (m *Meter) Fail(err error, format string, a ...any) error {
	if derr := formdata.Drain(m.r); derr != nil && m.err == nil {
		m.err = derr
	}
	if m.err != nil {
		return m.err
	}
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrapf(err, perr.ErrorCodeStorage, format, a...)
}
