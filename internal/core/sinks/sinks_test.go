package sinks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

var txt = formdata.Info{Filename: "hello_world.txt", Encoding: "7bit", MimeType: "text/plain"}

func TestMeter_CountsAndHashes(t *testing.T) {
	t.Parallel()

	m := NewMeter(strings.NewReader("helloworld"))
	if _, err := io.Copy(io.Discard, m); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if m.Size() != 10 {
		t.Fatalf("size=%d want 10", m.Size())
	}
	if want := fmt.Sprintf("%016x", xxhash.Sum64String("helloworld")); m.Digest() != want {
		t.Fatalf("digest=%s", m.Digest())
	}
	if m.Err() != nil {
		t.Fatalf("unexpected err %v", m.Err())
	}
}

func TestMeter_FailPrefersStreamError(t *testing.T) {
	t.Parallel()

	boom := errors.New("client went away")
	m := NewMeter(iotest.ErrReader(boom))
	_, _ = io.Copy(io.Discard, m)

	err := m.Fail(errors.New("disk full"), "write %s", "x")
	if err != boom {
		t.Fatalf("want stream error, got %v", err)
	}
}

func TestMeter_FailWrapsSinkError(t *testing.T) {
	t.Parallel()

	m := NewMeter(strings.NewReader("rest"))
	err := m.Fail(errors.New("disk full"), "write %s", "x")
	if !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("want storage code, got %v", err)
	}
	if m.Size() != 0 {
		t.Fatalf("drain should not count through the meter")
	}

	coded := perr.Newf(perr.ErrorCodeUnavailable, "throttled")
	if got := NewMeter(strings.NewReader("")).Fail(coded, "x"); got != coded {
		t.Fatalf("coded errors pass through, got %v", got)
	}
}

func TestDiscard_Save(t *testing.T) {
	t.Parallel()

	src := strings.NewReader("helloworld")
	got, err := Discard{}.NewSink().Save(context.Background(), "file", src, txt)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got.Name != "hello_world.txt" || got.Value != "hello_world.txt" || got.Size != 10 {
		t.Fatalf("unexpected stored file %+v", got)
	}
	if src.Len() != 0 {
		t.Fatalf("stream not drained")
	}
}

func TestBuffer_Save(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"content", "helloworld"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Buffer{}.NewSink().Save(context.Background(), "file", strings.NewReader(tc.body), txt)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			b, ok := got.Value.([]byte)
			if !ok || string(b) != tc.body {
				t.Fatalf("value=%v want %q", got.Value, tc.body)
			}
			if got.Name != txt.Filename || got.MimeType != "text/plain" {
				t.Fatalf("unexpected stored file %+v", got)
			}
		})
	}
}

func TestBuffer_FileSizeLimitPassesThrough(t *testing.T) {
	t.Parallel()

	fs := formdata.NewFileStream("file", strings.NewReader("abcdefgh"), 3)
	_, err := Buffer{}.NewSink().Save(context.Background(), "file", fs, txt)
	if !perr.IsCode(err, perr.ErrorCodeFileSizeLimit) {
		t.Fatalf("want file size limit, got %v", err)
	}
	if e, _ := perr.As(err); e.Field() != "file" {
		t.Fatalf("limit error should name the part, got %q", e.Field())
	}
}

func TestFile_SaveWritesUnderDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	st := NewFile(FileOptions{Dir: dir})
	sink := st.NewSink()
	ctx := context.Background()
	if err := sink.Prepare(ctx); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	got, err := sink.Save(ctx, "file", strings.NewReader("helloworld"), txt)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Ext(got.Name) != ".txt" || len(got.Name) != 36+len(".txt") {
		t.Fatalf("unexpected generated name %q", got.Name)
	}
	path, _ := got.Value.(string)
	if path != filepath.Join(dir, got.Name) {
		t.Fatalf("value=%v", got.Value)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "helloworld" {
		t.Fatalf("file content %q err=%v", b, err)
	}
	if got.Size != 10 || got.Digest == "" {
		t.Fatalf("size/digest missing: %+v", got)
	}
}

func TestFile_Compress(t *testing.T) {
	t.Parallel()

	st := NewFile(FileOptions{Dir: t.TempDir(), Compress: true})
	payload := strings.Repeat("formdata ", 1000)
	got, err := st.NewSink().Save(context.Background(), "file", strings.NewReader(payload), txt)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(got.Name, ".txt.zst") {
		t.Fatalf("name=%q want .txt.zst suffix", got.Name)
	}
	raw, err := os.ReadFile(got.Value.(string))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	plain, err := io.ReadAll(dec)
	if err != nil || string(plain) != payload {
		t.Fatalf("roundtrip mismatch err=%v", err)
	}
	if got.Size != int64(len(payload)) {
		t.Fatalf("size counts plain bytes, got %d", got.Size)
	}
}

func TestFile_FailureRemovesPartialFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := NewFile(FileOptions{Dir: dir})
	fs := formdata.NewFileStream("file", strings.NewReader("abcdefgh"), 4)
	_, err := st.NewSink().Save(context.Background(), "file", fs, txt)
	if !perr.IsCode(err, perr.ErrorCodeFileSizeLimit) {
		t.Fatalf("want file size limit, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("partial file left behind: %v", entries)
	}
}

func TestFile_CleanupRemovesWhenAsked(t *testing.T) {
	t.Parallel()

	for _, remove := range []bool{true, false} {
		dir := t.TempDir()
		sink := NewFile(FileOptions{Dir: dir, RemoveOnCleanup: remove}).NewSink()
		ctx := context.Background()
		for range 2 {
			if _, err := sink.Save(ctx, "file", strings.NewReader("x"), txt); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		if err := sink.Cleanup(ctx); err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
		entries, _ := os.ReadDir(dir)
		want := 2
		if remove {
			want = 0
		}
		if len(entries) != want {
			t.Fatalf("remove=%v left %d files, want %d", remove, len(entries), want)
		}
	}
}

func TestFile_DirCreatedOnceAndRetriedAfterFailure(t *testing.T) {
	t.Parallel()

	st := NewFile(FileOptions{Dir: t.TempDir()})
	calls := 0
	st.mkdirAll = func(string, os.FileMode) error {
		calls++
		if calls == 1 {
			return errors.New("read-only fs")
		}
		return nil
	}
	ctx := context.Background()

	src := strings.NewReader("drained")
	_, err := st.NewSink().Save(ctx, "file", src, txt)
	if !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("want storage code, got %v", err)
	}
	if src.Len() != 0 {
		t.Fatalf("stream must be drained on sink failure")
	}
	for range 3 {
		if err := st.Prepare(ctx); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("mkdir calls=%d want 2", calls)
	}
}
