package decoders

import (
	"context"
	"io"
	"mime/multipart"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"
)

// Stream is the per-part engine: files are handed out while they are still on the wire
// and every part is checked against its own ceiling
type Stream struct {
	formdata.NopHooks
}

// NewStream returns the streaming engine
func NewStream() *Stream { return &Stream{} }

// Name implements formdata.Engine
func (*Stream) Name() string { return "stream" }

// NewDecoder implements formdata.Engine
func (*Stream) NewDecoder(body io.Reader, contentType string, lim formdata.Limits) (formdata.Decoder, error) {
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}
	return &streamDecoder{
		body: body,
		mr:   multipart.NewReader(body, boundary),
		lim:  lim.PartLimits(),
	}, nil
}

type streamDecoder struct {
	formdata.NopHooks
	body io.Reader
	mr   *multipart.Reader
	lim  formdata.PartLimits

	fields, files, parts int64
	hit                  map[formdata.SignalCode]bool
}

// signal reports a count ceiling once per kind
func (d *streamDecoder) signal(l formdata.Listener, code formdata.SignalCode) {
	if d.hit == nil {
		d.hit = make(map[formdata.SignalCode]bool)
	}
	if !d.hit[code] {
		d.hit[code] = true
		l.Limit(formdata.Signal{Code: code})
	}
}

// Decode implements formdata.Decoder
func (d *streamDecoder) Decode(ctx context.Context, l formdata.Listener) error {
	defer l.Finish()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := d.mr.NextRawPart()
		if err == io.EOF {
			// epilogue
			return drain(d.body)
		}
		if err != nil {
			return err
		}
		if err := d.part(ctx, l, p); err != nil {
			return err
		}
	}
}

func (d *streamDecoder) part(ctx context.Context, l formdata.Listener, p *multipart.Part) error {
	defer p.Close()

	d.parts++
	if formdata.Exceeds(d.parts, d.lim.Parts) {
		d.signal(l, formdata.SignalPartsLimit)
		return drain(p)
	}
	if formdata.Exceeds(pairs(p.Header), d.lim.HeaderPairs) {
		return perr.Newf(perr.ErrorCodeMultipart, "part carries more than %d header pairs", d.lim.HeaderPairs)
	}
	h, ok := readHeader(p, d.lim.FieldNameSize)
	if !ok {
		return drain(p)
	}

	if h.isFile {
		d.files++
		if formdata.Exceeds(d.files, d.lim.Files) {
			d.signal(l, formdata.SignalFilesLimit)
			return drain(p)
		}
		s := formdata.NewFileStream(h.name, p, d.lim.FileSize)
		l.File(h.name, s, formdata.Info{Filename: h.filename, Encoding: h.encoding, MimeType: h.mimeType})
		return s.Wait(ctx)
	}

	d.fields++
	if formdata.Exceeds(d.fields, d.lim.Fields) {
		d.signal(l, formdata.SignalFieldsLimit)
		return drain(p)
	}
	v, truncated, err := readValue(p, d.lim.FieldSize)
	if err != nil {
		return err
	}
	l.Field(h.name, v, formdata.FieldInfo{
		Encoding:      h.encoding,
		MimeType:      h.mimeType,
		Truncated:     truncated,
		NameTruncated: h.nameTruncated,
	})
	return nil
}
