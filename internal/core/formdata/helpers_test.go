package formdata

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type step func(ctx context.Context, l Listener) error

// scripted replays a fixed event sequence, waiting on every file like a real engine
type scripted struct {
	NopHooks
	steps []step
}

// Decode finishes on every return path, as the real engines do
func (d *scripted) Decode(ctx context.Context, l Listener) error {
	defer l.Finish()
	for _, s := range d.steps {
		if err := s(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func decoder(steps ...step) *scripted { return &scripted{steps: steps} }

func field(name, value string) step {
	return func(_ context.Context, l Listener) error {
		l.Field(name, value, FieldInfo{})
		return nil
	}
}

func truncated(name, value string) step {
	return func(_ context.Context, l Listener) error {
		l.Field(name, value, FieldInfo{Truncated: true})
		return nil
	}
}

func fileFrom(name, filename string, r io.Reader, limit int64) step {
	return func(ctx context.Context, l Listener) error {
		s := NewFileStream(name, r, limit)
		l.File(name, s, Info{Filename: filename, MimeType: "text/plain"})
		return s.Wait(ctx)
	}
}

func file(name, filename, content string) step {
	return fileFrom(name, filename, strings.NewReader(content), Unlimited)
}

func limited(name, filename, content string, limit int64) step {
	return fileFrom(name, filename, strings.NewReader(content), limit)
}

func signal(code SignalCode) step {
	return func(_ context.Context, l Listener) error {
		l.Limit(Signal{Code: code})
		return nil
	}
}

func fault(err error) step {
	return func(context.Context, Listener) error { return err }
}

// finishThen calls Finish, closes finished, and returns err once gate opens
func finishThen(finished, gate chan struct{}, err error) step {
	return func(_ context.Context, l Listener) error {
		l.Finish()
		close(finished)
		<-gate
		return err
	}
}

// countingReader records how much of the body was consumed
type countingReader struct {
	mu sync.Mutex
	r  io.Reader
	n  int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.mu.Lock()
	c.n += n
	c.mu.Unlock()
	return n, err
}

func (c *countingReader) consumed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// memSink buffers files and counts calls
type memSink struct {
	NopHooks
	calls int
	fail  error
}

func (m *memSink) Save(_ context.Context, _ string, r io.Reader, info Info) (StoredFile, error) {
	m.calls++
	if m.fail != nil {
		_ = Drain(r)
		return StoredFile{}, m.fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return StoredFile{}, err
	}
	return StoredFile{Name: info.Filename, Value: buf.String(), Size: int64(buf.Len())}, nil
}

func within(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
