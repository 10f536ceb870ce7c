package testkit

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Form builds multipart/form-data request bodies for handler tests
type Form struct {
	buf bytes.Buffer
	w   *multipart.Writer
}

// NewForm starts an empty body with a random boundary
func NewForm() *Form {
	f := &Form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// Field appends a text field
func (f *Form) Field(name, value string) *Form {
	_ = f.w.WriteField(name, value)
	return f
}

// File appends a file part with an application/octet-stream content type
func (f *Form) File(field, filename, body string) *Form {
	pw, err := f.w.CreateFormFile(field, filename)
	if err == nil {
		_, _ = io.WriteString(pw, body)
	}
	return f
}

// Request closes the body and returns a request carrying it
func (f *Form) Request(t *testing.T, method, target string) *http.Request {
	t.Helper()
	if err := f.w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(f.buf.Bytes()))
	req.Header.Set("Content-Type", f.w.FormDataContentType())
	return req
}
