// Package repo provides postgres manifests and clickhouse events for uploads
package repo

import (
	"context"
	"time"

	"formdata/internal/modkit/repokit"
	"formdata/internal/platform/store"
)

// Repo is the minimal persistence surface for upload manifests
type Repo interface {
	InsertUpload(ctx context.Context, u UploadRow) error
	InsertFile(ctx context.Context, uploadID string, f FileRow) error
	Upload(ctx context.Context, id string) (UploadRow, error)
	Files(ctx context.Context, uploadID string) ([]FileRow, error)
}

// UploadRow is one row of uploads
type UploadRow struct {
	ID        string
	Title     string
	Tags      []string
	Storage   string
	CreatedAt time.Time
}

// FileRow is one row of upload_files
type FileRow struct {
	Field    string
	Name     string
	Location string
	Size     int64
	MimeType string
	Digest   string
}

// Schema creates the manifest tables when missing, one statement per entry
var Schema = []string{`
create table if not exists uploads (
  id uuid primary key,
  title text not null,
  tags text[] not null default '{}',
  storage text not null,
  created_at timestamptz not null default now()
)`, `
create table if not exists upload_files (
  upload_id uuid not null references uploads(id) on delete cascade,
  ord serial,
  field text not null,
  name text not null,
  location text not null default '',
  size bigint not null,
  mime_type text not null default '',
  digest text not null default '',
  primary key (upload_id, ord)
)`,
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Migrate applies Schema
func Migrate(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range Schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) InsertUpload(ctx context.Context, u UploadRow) error {
	const sql = `
insert into uploads (id, title, tags, storage, created_at)
values ($1::uuid, $2, $3, $4, $5)
`
	return store.ExecOne(ctx, r.q, sql, u.ID, u.Title, u.Tags, u.Storage, u.CreatedAt)
}

func (r *queries) InsertFile(ctx context.Context, uploadID string, f FileRow) error {
	const sql = `
insert into upload_files (upload_id, field, name, location, size, mime_type, digest)
values ($1::uuid, $2, $3, $4, $5, $6, $7)
`
	return store.ExecOne(ctx, r.q, sql, uploadID, f.Field, f.Name, f.Location, f.Size, f.MimeType, f.Digest)
}

func (r *queries) Upload(ctx context.Context, id string) (UploadRow, error) {
	const sql = `
select id::text, title, tags, storage, created_at
from uploads
where id = $1::uuid
`
	return store.One(ctx, r.q, scanUpload, sql, id)
}

func (r *queries) Files(ctx context.Context, uploadID string) ([]FileRow, error) {
	const sql = `
select field, name, location, size, mime_type, digest
from upload_files
where upload_id = $1::uuid
order by ord asc
`
	return store.Many(ctx, r.q, scanFile, sql, uploadID)
}

func scanUpload(row store.Row) (UploadRow, error) {
	var u UploadRow
	err := row.Scan(&u.ID, &u.Title, &u.Tags, &u.Storage, &u.CreatedAt)
	return u, err
}

func scanFile(row store.Row) (FileRow, error) {
	var f FileRow
	err := row.Scan(&f.Field, &f.Name, &f.Location, &f.Size, &f.MimeType, &f.Digest)
	return f, err
}
