package decoders

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"sync"

	"formdata/internal/core/formdata"
	perr "formdata/internal/platform/errors"
)

// Spool is the aggregate engine: each file is written to a temporary file before it is
// announced, and ceilings are checked across the whole body. Spooled files are removed
// by the decoder's Cleanup
type Spool struct {
	formdata.NopHooks
	// Dir holds the spooled files; empty means os.TempDir
	Dir string
}

// NewSpool returns a spooling engine writing under dir
func NewSpool(dir string) *Spool { return &Spool{Dir: dir} }

// Name implements formdata.Engine
func (*Spool) Name() string { return "spool" }

// Prepare creates the spool directory
func (s *Spool) Prepare(context.Context) error {
	if s.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeStorage, "create spool dir %s", s.Dir)
	}
	return nil
}

// NewDecoder implements formdata.Engine
func (s *Spool) NewDecoder(body io.Reader, contentType string, lim formdata.Limits) (formdata.Decoder, error) {
	boundary, err := Boundary(contentType)
	if err != nil {
		return nil, err
	}
	return &spoolDecoder{
		dir:  s.Dir,
		body: body,
		mr:   multipart.NewReader(body, boundary),
		lim:  lim.SpoolLimits(),
	}, nil
}

type spoolDecoder struct {
	dir  string
	body io.Reader
	mr   *multipart.Reader
	lim  formdata.SpoolLimits

	fields, files        int64
	fieldBytes, fileBytes int64

	mu     sync.Mutex
	spools []*os.File
}

// errStop ends decoding after a ceiling was reported
var errStop = errors.New("spool: limit reached")

// Prepare implements formdata.Hooks
func (*spoolDecoder) Prepare(context.Context) error { return nil }

// Cleanup closes and removes every spooled file
func (d *spoolDecoder) Cleanup(context.Context) error {
	d.mu.Lock()
	spools := d.spools
	d.spools = nil
	d.mu.Unlock()

	var errs []error
	for _, f := range spools {
		_ = f.Close()
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return perr.Wrap(err, perr.ErrorCodeStorage, "remove spooled files")
	}
	return nil
}

// Decode implements formdata.Decoder. Files are announced once fully spooled and are
// not waited on; after the first ceiling the rest of the body is drained silently
func (d *spoolDecoder) Decode(ctx context.Context, l formdata.Listener) error {
	defer l.Finish()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := d.mr.NextRawPart()
		if err == io.EOF {
			return drain(d.body)
		}
		if err != nil {
			return err
		}
		err = d.part(l, p)
		_ = p.Close()
		if errors.Is(err, errStop) {
			return drain(d.body)
		}
		if err != nil {
			return err
		}
	}
}

func (d *spoolDecoder) part(l formdata.Listener, p *multipart.Part) error {
	if formdata.Exceeds(pairs(p.Header), d.lim.HeaderPairs) {
		return perr.Newf(perr.ErrorCodeMultipart, "part carries more than %d header pairs", d.lim.HeaderPairs)
	}
	h, ok := readHeader(p, formdata.Unlimited)
	if !ok {
		return drain(p)
	}
	if !h.isFile {
		return d.field(l, p, h)
	}

	d.files++
	if formdata.Exceeds(d.files, d.lim.MaxFiles) {
		l.Limit(formdata.Signal{Code: formdata.SignalFilesLimit})
		return errStop
	}
	f, n, sig, err := d.spool(p, h.name)
	if err != nil {
		return err
	}
	if sig != nil {
		l.Limit(*sig)
		return errStop
	}
	l.File(h.name, formdata.NewFileStream(h.name, io.NewSectionReader(f, 0, n), formdata.Unlimited),
		formdata.Info{Filename: h.filename, Encoding: h.encoding, MimeType: h.mimeType})
	return nil
}

func (d *spoolDecoder) field(l formdata.Listener, p *multipart.Part, h header) error {
	d.fields++
	if formdata.Exceeds(d.fields, d.lim.MaxFields) {
		l.Limit(formdata.Signal{Code: formdata.SignalFieldsLimit})
		return errStop
	}
	room := formdata.Unlimited
	if d.lim.MaxFieldsSize >= 0 {
		room = max(d.lim.MaxFieldsSize-d.fieldBytes, 0)
	}
	v, truncated, err := readValue(p, room)
	if err != nil {
		return err
	}
	if truncated {
		l.Limit(formdata.Signal{Code: formdata.SignalTotalFieldSize})
		return errStop
	}
	d.fieldBytes += int64(len(v))
	l.Field(h.name, v, formdata.FieldInfo{Encoding: h.encoding, MimeType: h.mimeType})
	return nil
}

// spool copies one file to disk, stopping at the per-file or the remaining total ceiling
func (d *spoolDecoder) spool(r io.Reader, name string) (*os.File, int64, *formdata.Signal, error) {
	f, err := os.CreateTemp(d.dir, "formdata-*")
	if err != nil {
		return nil, 0, nil, perr.Wrap(err, perr.ErrorCodeStorage, "create spool file")
	}
	d.mu.Lock()
	d.spools = append(d.spools, f)
	d.mu.Unlock()

	ceiling := d.lim.MaxFileSize
	total := formdata.Unlimited
	if d.lim.MaxTotalFileSize >= 0 {
		total = max(d.lim.MaxTotalFileSize-d.fileBytes, 0)
	}
	if ceiling < 0 || (total >= 0 && total < ceiling) {
		ceiling = total
	}

	src := r
	if ceiling >= 0 {
		src = io.LimitReader(r, ceiling+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return nil, 0, nil, err
	}
	if ceiling >= 0 && n > ceiling {
		code := formdata.SignalFileSize
		if ceiling == total && ceiling != d.lim.MaxFileSize {
			code = formdata.SignalTotalFileSize
			name = ""
		}
		return nil, 0, &formdata.Signal{Code: code, Name: name}, nil
	}
	d.fileBytes += n
	return f, n, nil, nil
}
