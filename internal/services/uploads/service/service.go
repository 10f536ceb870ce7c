// Package service records eager uploads and summarizes streamed ones
package service

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"formdata/internal/core/formdata"
	"formdata/internal/core/sinks"
	"formdata/internal/modkit/repokit"
	perr "formdata/internal/platform/errors"
	"formdata/internal/platform/logger"
	pnet "formdata/internal/platform/net"
	"formdata/internal/services/uploads/domain"
	"formdata/internal/services/uploads/repo"

	"github.com/google/uuid"
)

// Service defines the uploads service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the uploads service
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	events repo.Events

	now   func() time.Time
	newID func() string
}

// New constructs an uploads service. A nil db keeps manifests out of postgres and
// makes Get unavailable
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], events repo.Events) *Svc {
	if binder == nil {
		panic("uploads.Service requires a non nil Repo binder")
	}
	if events == nil {
		events = repo.NewCH(nil)
	}
	return &Svc{
		db:     db,
		binder: binder,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create records the manifest of a parsed upload
func (s *Svc) Create(ctx context.Context, in domain.CreateInput) (domain.Upload, error) {
	u := domain.Upload{
		ID:        s.newID(),
		Title:     in.Form.Title,
		Tags:      in.Form.Tags,
		Storage:   in.Storage,
		Files:     []domain.FileEntry{},
		CreatedAt: s.now().UTC(),
	}
	if u.Tags == nil {
		u.Tags = []string{}
	}
	var size int64
	for field, v := range in.Files.All() {
		for _, f := range v.Values() {
			u.Files = append(u.Files, entry(field, f))
			size += f.Size
		}
	}
	ctx = scoped(ctx, u.ID)

	if s.db != nil {
		err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
			r := s.binder.Bind(q)
			if err := r.InsertUpload(ctx, repo.UploadRow{
				ID: u.ID, Title: u.Title, Tags: u.Tags, Storage: u.Storage, CreatedAt: u.CreatedAt,
			}); err != nil {
				return err
			}
			for _, f := range u.Files {
				if err := r.InsertFile(ctx, u.ID, repo.FileRow(f)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return domain.Upload{}, perr.FromPostgresWithField(err, "record upload")
		}
	}

	s.record(ctx, repo.Event{
		Mode:    "eager",
		Storage: u.Storage,
		Fields:  uint32(1 + len(u.Tags)),
		Files:   uint32(len(u.Files)),
		Bytes:   uint64(size),
	}, nil)
	logger.C(ctx).Info().Int("files", len(u.Files)).Int64("bytes", size).Msg("upload recorded")
	return u, nil
}

// Get loads a recorded manifest
func (s *Svc) Get(ctx context.Context, id string) (domain.Upload, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Upload{}, perr.WithField(perr.InvalidArgf("upload id must be a uuid"), "id")
	}
	if s.db == nil {
		return domain.Upload{}, perr.Unavailablef("upload manifests need postgres")
	}
	r := s.binder.Bind(s.db)
	row, err := r.Upload(ctx, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Upload{}, perr.NotFoundf("upload %s not found", id)
		}
		return domain.Upload{}, perr.FromPostgres(err, "load upload")
	}
	files, err := r.Files(ctx, id)
	if err != nil {
		return domain.Upload{}, perr.FromPostgres(err, "load upload files")
	}
	u := domain.Upload{
		ID:        row.ID,
		Title:     row.Title,
		Tags:      row.Tags,
		Storage:   row.Storage,
		Files:     make([]domain.FileEntry, 0, len(files)),
		CreatedAt: row.CreatedAt,
	}
	for _, f := range files {
		u.Files = append(u.Files, domain.FileEntry(f))
	}
	return u, nil
}

// Summarize pulls every part, hashing file bodies without storing them
func (s *Svc) Summarize(ctx context.Context, parts iter.Seq2[formdata.Part, error]) (domain.StreamSummary, error) {
	sum := domain.StreamSummary{ID: s.newID(), Parts: []domain.PartSummary{}}
	ctx = scoped(ctx, sum.ID)

	err := func() error {
		for p, err := range parts {
			if err != nil {
				return err
			}
			ps := domain.PartSummary{
				Kind:     p.Kind,
				Name:     p.Name,
				Filename: p.Info.Filename,
				MimeType: p.Info.MimeType,
			}
			switch p.Kind {
			case formdata.KindField:
				sum.Fields++
				ps.Size = int64(len(p.Value))
			case formdata.KindFile:
				sum.Files++
				m := sinks.NewMeter(p.Stream)
				if _, err := io.Copy(io.Discard, m); err != nil {
					return m.Fail(err, "summarize %q", p.Name)
				}
				ps.Size, ps.Digest, ps.Truncated = m.Size(), m.Digest(), p.Stream.Truncated()
			}
			sum.Bytes += ps.Size
			sum.Parts = append(sum.Parts, ps)
		}
		return nil
	}()

	s.record(ctx, repo.Event{
		Mode:   "stream",
		Fields: uint32(sum.Fields),
		Files:  uint32(sum.Files),
		Bytes:  uint64(sum.Bytes),
	}, err)
	if err != nil {
		return domain.StreamSummary{}, err
	}
	return sum, nil
}

// record writes an audit row; failures are logged and never reach the caller
func (s *Svc) record(ctx context.Context, e repo.Event, err error) {
	e.At = s.now().UTC()
	e.UploadID = pnet.UploadID(ctx)
	e.RequestID = pnet.RequestID(ctx)
	e.Outcome = outcome(err)
	if rerr := s.events.Record(ctx, e); rerr != nil {
		logger.C(ctx).Warn().Err(rerr).Str("mode", e.Mode).Msg("upload event not recorded")
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case perr.IsLimit(err):
		return "limit"
	default:
		return "error"
	}
}

// scoped tags ctx and its logger with the upload id
func scoped(ctx context.Context, id string) context.Context {
	reqID := pnet.RequestID(ctx)
	return logger.WithRequest(pnet.WithUploadID(ctx, id), reqID, id)
}

func entry(field string, f formdata.StoredFile) domain.FileEntry {
	return domain.FileEntry{
		Field:    field,
		Name:     f.Name,
		Location: location(f.Value),
		Size:     f.Size,
		MimeType: f.MimeType,
		Digest:   f.Digest,
	}
}

// location renders a sink value for the manifest; in-memory bytes have none
func location(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return ""
	case uint32:
		return fmt.Sprintf("pg:lo/%d", x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
