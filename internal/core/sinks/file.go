package sinks

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// FileOptions configures the disk storage
type FileOptions struct {
	// Dir is where files land; empty means the os temp dir
	Dir string
	// Compress writes zstd frames and appends .zst to the file name
	Compress bool
	// RemoveOnCleanup deletes the files of a request when the request is cleaned up
	RemoveOnCleanup bool
	// Perm defaults to 0o600
	Perm os.FileMode
}

// File writes each upload to <uuid><ext> under one directory
type File struct {
	opts FileOptions

	mu    sync.Mutex
	ready bool

	mkdirAll func(string, os.FileMode) error
}

// NewFile builds a disk storage
func NewFile(opts FileOptions) *File {
	if opts.Dir == "" {
		opts.Dir = os.TempDir()
	}
	if opts.Perm == 0 {
		opts.Perm = 0o600
	}
	return &File{opts: opts, mkdirAll: os.MkdirAll}
}

// Name implements formdata.Storage
func (f *File) Name() string { return "file" }

// Dir is the upload directory
func (f *File) Dir() string { return f.opts.Dir }

// Prepare creates the upload directory
func (f *File) Prepare(context.Context) error { return f.ensureDir() }

// Cleanup leaves written files in place; they belong to the application
func (f *File) Cleanup(context.Context) error { return nil }

// ensureDir runs mkdir -p until it succeeds once
func (f *File) ensureDir() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ready {
		return nil
	}
	if err := f.mkdirAll(f.opts.Dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "create upload dir %s", f.opts.Dir)
	}
	f.ready = true
	return nil
}

// NewSink implements formdata.Storage
func (f *File) NewSink() formdata.Sink { return &fileSink{st: f} }

type fileSink struct {
	st *File

	mu      sync.Mutex
	written []string
}

func (s *fileSink) Prepare(context.Context) error { return s.st.ensureDir() }

// Cleanup removes what this request wrote when the storage asks for it
func (s *fileSink) Cleanup(ctx context.Context) error {
	if !s.st.opts.RemoveOnCleanup {
		return nil
	}
	s.mu.Lock()
	paths := s.written
	s.written = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return perr.Wrap(errors.Join(errs...), perr.ErrorCodeStorage, "remove uploaded files")
	}
	logger.C(ctx).Debug().Int("files", len(paths)).Msg("uploaded files removed")
	return nil
}

func (s *fileSink) Save(ctx context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	m := NewMeter(r)
	if err := s.st.ensureDir(); err != nil {
		return formdata.StoredFile{}, m.Fail(err, "")
	}
	if err := ctx.Err(); err != nil {
		return formdata.StoredFile{}, m.Fail(err, "save %q", info.Filename)
	}

	filename := uuid.NewString() + filepath.Ext(info.Filename)
	if s.st.opts.Compress {
		filename += ".zst"
	}
	path := filepath.Join(s.st.opts.Dir, filename)

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.st.opts.Perm)
	if err != nil {
		return formdata.StoredFile{}, m.Fail(err, "create %s", filename)
	}
	err = s.write(fh, m)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	if err != nil || m.Err() != nil {
		_ = os.Remove(path)
		return formdata.StoredFile{}, m.Fail(err, "write %s", filename)
	}

	s.mu.Lock()
	s.written = append(s.written, path)
	s.mu.Unlock()

	return m.Stored(filename, path, info), nil
}

func (s *fileSink) write(w io.Writer, r io.Reader) error {
	if !s.st.opts.Compress {
		_, err := io.Copy(w, r)
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, r); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

var _ formdata.Storage = (*File)(nil)
