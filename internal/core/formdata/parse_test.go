package formdata

import (
	"encoding/json"
	"testing"

	perr "formdata/internal/platform/errors"
)

func TestParseFieldsAndFile(t *testing.T) {
	ctx := testCtx(t)
	sink := &memSink{}
	res, err := Parse(ctx, NewBridge(ctx, decoder(
		field("foo", "bar"),
		file("file", "hello_world.txt", "helloworld"),
	)), sink, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	foo, _ := res.Fields.First("foo")
	if foo.Text != "bar" || foo.IsFile() {
		t.Fatalf("foo = %+v", foo)
	}
	mirrored, ok := res.Fields.First("file")
	if !ok || !mirrored.IsFile() || mirrored.File.Value != "helloworld" {
		t.Fatalf("file not mirrored into fields: %+v", mirrored)
	}
	stored, _ := res.Files.First("file")
	if stored.Name != "hello_world.txt" || stored.Value != "helloworld" || stored.Size != 10 {
		t.Fatalf("stored = %+v", stored)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"fields":{"foo":"bar","file":{"name":"hello_world.txt","value":"helloworld","size":10}},` +
		`"files":{"file":{"name":"hello_world.txt","value":"helloworld","size":10}}}`
	if string(raw) != want {
		t.Fatalf("json = %s\nwant   %s", raw, want)
	}
}

func TestParseRepeatedFilesFoldIntoList(t *testing.T) {
	ctx := testCtx(t)
	res, err := Parse(ctx, NewBridge(ctx, decoder(
		file("file", "1.txt", "one"),
		file("file", "2.txt", "two"),
		file("file", "3.txt", "three"),
	)), &memSink{}, ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, _ := res.Files.Get("file")
	if !v.IsList() || v.Len() != 3 {
		t.Fatalf("want 3 element list, got %d", v.Len())
	}
	for i, want := range []string{"one", "two", "three"} {
		if got := v.Values()[i].Value; got != want {
			t.Fatalf("file %d = %v, want %s", i, got, want)
		}
	}
}

func TestParseRemoveFilesFromBody(t *testing.T) {
	ctx := testCtx(t)
	res, err := Parse(ctx, NewBridge(ctx, decoder(
		field("foo", "bar"),
		file("file", "a.txt", "x"),
	)), &memSink{}, ParseOptions{RemoveFilesFromBody: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Fields.Has("file") {
		t.Fatalf("fields must not carry files")
	}
	if !res.Files.Has("file") || !res.Fields.Has("foo") {
		t.Fatalf("missing entries: fields=%v files=%v", res.Fields.Names(), res.Files.Names())
	}
}

func TestParseLimitZero(t *testing.T) {
	t.Run("field size zero", func(t *testing.T) {
		ctx := testCtx(t)
		sink := &memSink{}
		_, err := Parse(ctx, NewBridge(ctx, decoder(truncated("foo", ""))), sink, ParseOptions{})
		if !perr.IsCode(err, perr.ErrorCodeFieldSizeLimit) {
			t.Fatalf("err = %v, want FieldSizeLimit", err)
		}
	})
	t.Run("files zero", func(t *testing.T) {
		ctx := testCtx(t)
		sink := &memSink{}
		_, err := Parse(ctx, NewBridge(ctx, decoder(signal(SignalFilesLimit), file("f", "a", "data"))), sink, ParseOptions{})
		if !perr.IsCode(err, perr.ErrorCodeFilesLimit) {
			t.Fatalf("err = %v, want FilesLimit", err)
		}
		if sink.calls != 0 {
			t.Fatalf("sink called %d times", sink.calls)
		}
	})
}

func TestParseBridgeFailureBeatsSinkError(t *testing.T) {
	ctx := testCtx(t)
	_, err := Parse(ctx, NewBridge(ctx, decoder(limited("f", "big", "0123456789", 4))), &memSink{}, ParseOptions{})
	if !perr.IsCode(err, perr.ErrorCodeFileSizeLimit) {
		t.Fatalf("err = %v, want FileSizeLimit", err)
	}
}

func TestParseSinkErrorPropagates(t *testing.T) {
	ctx := testCtx(t)
	sink := &memSink{fail: perr.Storagef("disk full")}
	_, err := Parse(ctx, NewBridge(ctx, decoder(file("f", "a", "abc"), field("after", "x"))), sink, ParseOptions{})
	if !perr.IsCode(err, perr.ErrorCodeStorage) {
		t.Fatalf("err = %v, want Storage", err)
	}
}

func TestParseIsRepeatable(t *testing.T) {
	run := func() string {
		ctx := testCtx(t)
		res, err := Parse(ctx, NewBridge(ctx, decoder(
			field("a", "1"), field("b", "2"), field("a", "3"), file("f", "x", "y"),
		)), &memSink{}, ParseOptions{})
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		raw, _ := json.Marshal(res)
		return string(raw)
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("runs differ:\n%s\n%s", a, b)
	}
}
