package decoders

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"
)

type part struct {
	name     string
	filename string
	content  string
	ctype    string
}

func fieldPart(name, value string) part           { return part{name: name, content: value} }
func filePart(name, filename, content string) part { return part{name: name, filename: filename, content: content} }

func encode(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		disp := `form-data; name="` + p.name + `"`
		if p.filename != "" {
			disp += `; filename="` + p.filename + `"`
		}
		h.Set("Content-Disposition", disp)
		if p.ctype != "" {
			h.Set("Content-Type", p.ctype)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		if _, err := io.WriteString(pw, p.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

type event struct {
	kind      string
	name      string
	value     string
	info      formdata.Info
	truncated bool
	sig       formdata.Signal
}

// recorder reads every file inside the callback, as a consumer would before asking for more
type recorder struct {
	mu     sync.Mutex
	events []event
	finish int
}

func (r *recorder) Field(name, value string, info formdata.FieldInfo) {
	r.add(event{kind: "field", name: name, value: value, truncated: info.Truncated,
		info: formdata.Info{Encoding: info.Encoding, MimeType: info.MimeType}})
}

func (r *recorder) File(name string, s *formdata.FileStream, info formdata.Info) {
	raw, _ := io.ReadAll(s)
	r.add(event{kind: "file", name: name, value: string(raw), info: info})
}

func (r *recorder) Limit(sig formdata.Signal) { r.add(event{kind: "limit", sig: sig}) }

func (r *recorder) Finish() {
	r.mu.Lock()
	r.finish++
	r.mu.Unlock()
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func decode(t *testing.T, eng formdata.Engine, lim formdata.Limits, parts ...part) (*recorder, error) {
	t.Helper()
	body, ct := encode(t, parts...)
	dec, err := eng.NewDecoder(body, ct, lim)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	t.Cleanup(func() { _ = dec.Cleanup(context.Background()) })
	rec := &recorder{}
	err = dec.Decode(context.Background(), rec)
	if err == nil && body.Len() != 0 {
		t.Fatalf("body not drained: %d bytes left", body.Len())
	}
	return rec, err
}

func TestStreamEvents(t *testing.T) {
	rec, err := decode(t, NewStream(), formdata.Limits{},
		fieldPart("title", "hi"),
		part{name: "doc", filename: `C:\tmp\report.csv`, content: "a,b", ctype: "text/csv"},
		fieldPart("cafe\u0301", "x"),
	)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.finish != 1 {
		t.Fatalf("finish called %d times", rec.finish)
	}
	if len(rec.events) != 3 {
		t.Fatalf("events = %+v", rec.events)
	}
	if e := rec.events[0]; e.kind != "field" || e.value != "hi" || e.info.MimeType != "text/plain" || e.info.Encoding != "7bit" {
		t.Fatalf("field event = %+v", e)
	}
	if e := rec.events[1]; e.kind != "file" || e.value != "a,b" || e.info.Filename != "report.csv" || e.info.MimeType != "text/csv" {
		t.Fatalf("file event = %+v", e)
	}
	if e := rec.events[2]; e.name != "caf\u00e9" {
		t.Fatalf("name not NFC normalized: %q", e.name)
	}
}

func TestStreamCountLimits(t *testing.T) {
	cases := []struct {
		name  string
		lim   formdata.Limits
		parts []part
		code  formdata.SignalCode
		kept  int
	}{
		{"fields", formdata.Limits{Fields: formdata.Max(1)},
			[]part{fieldPart("a", "1"), fieldPart("b", "2"), fieldPart("c", "3")}, formdata.SignalFieldsLimit, 1},
		{"files", formdata.Limits{Files: formdata.Max(0)},
			[]part{filePart("f", "a.txt", "x"), fieldPart("b", "2")}, formdata.SignalFilesLimit, 1},
		{"parts", formdata.Limits{Parts: formdata.Max(2)},
			[]part{fieldPart("a", "1"), filePart("f", "a.txt", "x"), fieldPart("c", "3"), fieldPart("d", "4")}, formdata.SignalPartsLimit, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, err := decode(t, NewStream(), c.lim, c.parts...)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			var limits, kept int
			for _, e := range rec.events {
				if e.kind == "limit" {
					limits++
					if e.sig.Code != c.code {
						t.Fatalf("signal = %+v, want %d", e.sig, c.code)
					}
					continue
				}
				kept++
			}
			if limits != 1 || kept != c.kept {
				t.Fatalf("limits=%d kept=%d, want 1 and %d", limits, kept, c.kept)
			}
		})
	}
}

func TestStreamFieldCeilings(t *testing.T) {
	rec, err := decode(t, NewStream(), formdata.Limits{FieldSize: formdata.Max(3), FieldNameSize: formdata.Max(4)},
		fieldPart("short", "abcdef"), fieldPart("ok", "abc"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	first, second := rec.events[0], rec.events[1]
	if !first.truncated || first.value != "abc" || first.name != "shor" {
		t.Fatalf("first = %+v", first)
	}
	if second.truncated || second.value != "abc" {
		t.Fatalf("second = %+v", second)
	}
}

func TestStreamFileSizeThroughBridge(t *testing.T) {
	body, ct := encode(t, filePart("avatar", "a.png", strings.Repeat("x", 64)), fieldPart("after", "1"))
	dec, err := NewStream().NewDecoder(body, ct, formdata.Limits{FileSize: formdata.Max(16)})
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = formdata.Parse(ctx, formdata.NewBridge(ctx, dec), discardSink{}, formdata.ParseOptions{})
	e, ok := perr.As(err)
	if !ok || e.Code() != perr.ErrorCodeFileSizeLimit || e.Field() != "avatar" {
		t.Fatalf("err = %v, want FileSizeLimit for avatar", err)
	}
	if body.Len() != 0 {
		t.Fatalf("body not drained")
	}
}

func TestStreamTruncatedBodyFailsThroughBridge(t *testing.T) {
	full, ct := encode(t, fieldPart("a", "1"), fieldPart("b", strings.Repeat("y", 64)))
	cut := full.Bytes()[:full.Len()-24]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := range 200 {
		dec, err := NewStream().NewDecoder(bytes.NewReader(cut), ct, formdata.Limits{})
		if err != nil {
			t.Fatalf("NewDecoder: %v", err)
		}
		b := formdata.NewBridge(ctx, dec)
		for {
			_, ok, err := b.Next(ctx)
			if err != nil {
				if !perr.IsCode(err, perr.ErrorCodeMultipart) {
					t.Fatalf("run %d: err = %v, want Multipart", i, err)
				}
				break
			}
			if !ok {
				t.Fatalf("run %d: truncated body settled cleanly", i)
			}
		}
		_ = b.Close()
	}
}

func TestStreamHeaderPairs(t *testing.T) {
	_, err := decode(t, NewStream(), formdata.Limits{HeaderPairs: formdata.Max(1)},
		part{name: "a", content: "1", ctype: "text/plain"})
	if !perr.IsCode(err, perr.ErrorCodeMultipart) {
		t.Fatalf("err = %v, want Multipart", err)
	}
}

func TestBoundary(t *testing.T) {
	if _, err := Boundary("application/json"); !perr.IsCode(err, perr.ErrorCodeMultipart) {
		t.Fatalf("json accepted: %v", err)
	}
	if _, err := Boundary("multipart/form-data"); !perr.IsCode(err, perr.ErrorCodeMultipart) {
		t.Fatalf("missing boundary accepted: %v", err)
	}
	if b, err := Boundary(`multipart/form-data; boundary="xyz"`); err != nil || b != "xyz" {
		t.Fatalf("Boundary = %q, %v", b, err)
	}
	if !IsMultipart("multipart/form-data; boundary=x") || IsMultipart("text/plain") {
		t.Fatalf("IsMultipart mismatch")
	}
}

func TestSpoolEventsAndCleanup(t *testing.T) {
	dir := t.TempDir()
	eng := NewSpool(dir)
	if err := eng.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	body, ct := encode(t, fieldPart("a", "1"), filePart("f", "one.txt", "first"), filePart("f", "two.txt", "second"))
	dec, err := eng.NewDecoder(body, ct, formdata.Limits{})
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	rec := &recorder{}
	if err := dec.Decode(context.Background(), rec); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rec.events) != 3 || rec.events[1].value != "first" || rec.events[2].value != "second" {
		t.Fatalf("events = %+v", rec.events)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 2 {
		t.Fatalf("spooled %d files, want 2", len(entries))
	}
	if err := dec.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("%d spooled files left after Cleanup", len(entries))
	}
}

func TestSpoolLimits(t *testing.T) {
	cases := []struct {
		name  string
		lim   formdata.Limits
		parts []part
		want  formdata.Signal
	}{
		{"fields", formdata.Limits{Fields: formdata.Max(1)},
			[]part{fieldPart("a", "1"), fieldPart("b", "2")}, formdata.Signal{Code: formdata.SignalFieldsLimit}},
		{"total field size", formdata.Limits{FieldSize: formdata.Max(3)},
			[]part{fieldPart("a", "12"), fieldPart("b", "34")}, formdata.Signal{Code: formdata.SignalTotalFieldSize}},
		{"files", formdata.Limits{Files: formdata.Max(1)},
			[]part{filePart("f", "1", "x"), filePart("g", "2", "y")}, formdata.Signal{Code: formdata.SignalFilesLimit}},
		{"file size", formdata.Limits{FileSize: formdata.Max(4)},
			[]part{filePart("f", "1", "12345")}, formdata.Signal{Code: formdata.SignalFileSize, Name: "f"}},
		{"parts bound file count", formdata.Limits{FileSize: formdata.Max(4), Parts: formdata.Max(2)},
			[]part{filePart("f", "1", "1234"), filePart("g", "2", "1234"), filePart("h", "3", "1")},
			formdata.Signal{Code: formdata.SignalFilesLimit}},
		{"per file ceiling wins when equal", formdata.Limits{FileSize: formdata.Max(4), Files: formdata.Max(2)},
			[]part{filePart("f", "1", "1234"), filePart("g", "2", "12345")},
			formdata.Signal{Code: formdata.SignalFileSize, Name: "g"}},
		{"total file size", formdata.Limits{FileSize: formdata.Max(1)},
			manyFiles(int(formdata.DefaultSpoolFileCount) + 1),
			formdata.Signal{Code: formdata.SignalTotalFileSize}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, err := decode(t, NewSpool(t.TempDir()), c.lim, c.parts...)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			last := rec.events[len(rec.events)-1]
			if last.kind != "limit" || last.sig != c.want {
				t.Fatalf("last event = %+v, want limit %+v", last, c.want)
			}
		})
	}
}

func manyFiles(n int) []part {
	out := make([]part, n)
	for i := range out {
		out[i] = filePart("f", "x.txt", "x")
	}
	return out
}

type discardSink struct{ formdata.NopHooks }

func (discardSink) Save(_ context.Context, _ string, r io.Reader, info formdata.Info) (formdata.StoredFile, error) {
	if err := formdata.Drain(r); err != nil {
		return formdata.StoredFile{}, err
	}
	return formdata.StoredFile{Name: info.Filename, Value: info.Filename}, nil
}
