// Package decoders provides the multipart engines behind formdata.Engine: a streaming engine
// that hands each file out as it is read from the body, and a spooling engine that writes
// files to disk first and checks aggregate ceilings
package decoders

import (
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"
)

const (
	defaultEncoding = "7bit"
	defaultMimeType = "text/plain"
)

// Boundary extracts the boundary of a multipart/form-data content type
func Boundary(contentType string) (string, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeMultipart, "invalid content type")
	}
	if mt != "multipart/form-data" {
		return "", perr.Newf(perr.ErrorCodeMultipart, "unsupported content type %q", mt)
	}
	b := params["boundary"]
	if b == "" {
		return "", perr.New(perr.ErrorCodeMultipart, "multipart boundary missing")
	}
	return b, nil
}

// IsMultipart reports whether contentType announces a multipart/form-data body
func IsMultipart(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "multipart/form-data"
}

// header is the decoded Content-Disposition and Content-Type of one part
type header struct {
	name          string
	nameTruncated bool
	filename      string
	isFile        bool
	encoding      string
	mimeType      string
}

func readHeader(p *multipart.Part, nameMax int64) (header, bool) {
	disp, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil || disp != "form-data" {
		return header{}, false
	}
	h := header{
		encoding: strings.ToLower(p.Header.Get("Content-Transfer-Encoding")),
		mimeType: defaultMimeType,
	}
	if h.encoding == "" {
		h.encoding = defaultEncoding
	}
	if ct := p.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			h.mimeType = mt
		}
	}
	h.name, h.nameTruncated = truncate(norm.NFC.String(params["name"]), nameMax)
	if fn, ok := params["filename"]; ok {
		h.isFile = true
		h.filename = baseName(norm.NFC.String(fn))
	}
	return h, true
}

// pairs counts header key/value pairs the way they appeared on the wire
func pairs(h textproto.MIMEHeader) int64 {
	var n int64
	for _, vs := range h {
		n += int64(len(vs))
	}
	return n
}

// truncate cuts s to at most max bytes on a rune boundary
func truncate(s string, max int64) (string, bool) {
	if max < 0 || int64(len(s)) <= max {
		return s, false
	}
	n := int(max)
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}

// baseName drops any client side directory from a filename
func baseName(fn string) string {
	if i := strings.LastIndexAny(fn, `/\`); i >= 0 {
		return fn[i+1:]
	}
	return fn
}

// readValue reads a field value up to max bytes and drains the rest
func readValue(r io.Reader, max int64) (string, bool, error) {
	if max < 0 {
		b, err := io.ReadAll(r)
		return string(b), false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return "", false, err
	}
	if int64(len(b)) <= max {
		return string(b), false, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", false, err
	}
	return string(b[:max]), true, nil
}

func drain(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// compile-time checks
var (
	_ formdata.Engine = (*Stream)(nil)
	_ formdata.Engine = (*Spool)(nil)
)
