package formdata

import (
	"context"
	"io"
	"sync"

	perr "formdata/internal/platform/errors"
)

// ErrDiscarded is returned by reads on a stream that was discarded unread
var ErrDiscarded = perr.New(perr.ErrorCodeMultipart, "file stream discarded")

// FileStream is the byte stream of one file part. It enforces the per-file ceiling:
// the reader sees at most limit bytes, then a FileSizeLimit error, and the rest of the
// part is drained so the decoder can move on. Done closes once the stream is finished
// by any path (end of data, limit, read error or Discard)
type FileStream struct {
	name  string
	limit int64

	mu       sync.Mutex
	r        io.Reader
	n        int64
	err      error
	failure  error
	watchers []func(error)
	done     chan struct{}
}

// NewFileStream wraps r for part name with a ceiling of limit bytes (Unlimited for none)
func NewFileStream(name string, r io.Reader, limit int64) *FileStream {
	if limit < 0 {
		limit = Unlimited
	}
	return &FileStream{name: name, r: r, limit: limit, done: make(chan struct{})}
}

// Name returns the part name the stream belongs to
func (s *FileStream) Name() string { return s.name }

// Read implements io.Reader
func (s *FileStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return 0, err
	}
	if s.limit != Unlimited {
		// one byte past the ceiling is enough to tell an exact fit from an overflow
		if room := s.limit - s.n + 1; int64(len(p)) > room {
			p = p[:room]
		}
	}
	n, err := s.r.Read(p)
	s.n += int64(n)

	if Exceeds(s.n, s.limit) {
		n -= int(s.n - s.limit)
		s.n = s.limit
		fail := s.overflowLocked()
		s.mu.Unlock()
		s.finish(fail)
		return n, fail
	}
	switch {
	case err == io.EOF:
		s.err = io.EOF
		s.mu.Unlock()
		s.finish(nil)
		return n, io.EOF
	case err != nil:
		s.err = err
		s.failure = err
		s.mu.Unlock()
		s.finish(err)
		return n, err
	}
	s.mu.Unlock()
	return n, nil
}

// Discard drains whatever is left unread. The size ceiling still applies, so an
// oversized file reports its limit error even when nobody reads it
func (s *FileStream) Discard() error {
	s.mu.Lock()
	if s.err != nil {
		fail := s.failure
		s.mu.Unlock()
		return fail
	}
	var fail error
	if s.limit == Unlimited {
		n, err := io.Copy(io.Discard, s.r)
		s.n += n
		fail = err
	} else {
		n, err := io.Copy(io.Discard, io.LimitReader(s.r, s.limit-s.n+1))
		s.n += n
		if Exceeds(s.n, s.limit) {
			s.n = s.limit
			fail = s.overflowLocked()
		} else {
			fail = err
		}
	}
	if fail != nil {
		s.err = fail
		s.failure = fail
	} else {
		s.err = ErrDiscarded
	}
	s.mu.Unlock()
	s.finish(fail)
	return fail
}

func (s *FileStream) overflowLocked() error {
	_, _ = io.Copy(io.Discard, s.r)
	s.err = LimitError(Signal{Code: SignalFileSize, Name: s.name})
	s.failure = s.err
	return s.err
}

func (s *FileStream) finish(fail error) {
	if fail != nil {
		s.mu.Lock()
		ws := s.watchers
		s.watchers = nil
		s.mu.Unlock()
		for _, fn := range ws {
			fn(fail)
		}
	}
	close(s.done)
}

// Watch registers fn for the stream's failure (limit or read error). It runs before
// Done closes and before the failing Read returns
func (s *FileStream) Watch(fn func(error)) {
	s.mu.Lock()
	if s.err != nil {
		fail := s.failure
		s.mu.Unlock()
		if fail != nil {
			fn(fail)
		}
		return
	}
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

// Done closes when the stream is finished
func (s *FileStream) Done() <-chan struct{} { return s.done }

// Wait blocks until the stream is finished or ctx ends
func (s *FileStream) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the bytes consumed so far, capped at the ceiling
func (s *FileStream) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Truncated reports whether the file hit its size ceiling
func (s *FileStream) Truncated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return perr.IsCode(s.failure, perr.ErrorCodeFileSizeLimit)
}

// Drain consumes r to the end, discarding FileStreams through their own ceiling
func Drain(r io.Reader) error {
	if fs, ok := r.(*FileStream); ok {
		return fs.Discard()
	}
	_, err := io.Copy(io.Discard, r)
	return err
}
