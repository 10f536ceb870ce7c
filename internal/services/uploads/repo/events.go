package repo

import (
	"context"
	"time"

	"formdata/internal/platform/store"
)

// EventsTable receives one row per handled upload
const EventsTable = "upload_events"

// EventsSchema creates EventsTable when missing
const EventsSchema = `
CREATE TABLE IF NOT EXISTS upload_events (
  at DateTime64(3),
  upload_id String,
  request_id String,
  mode LowCardinality(String),
  storage LowCardinality(String),
  fields UInt32,
  files UInt32,
  bytes UInt64,
  outcome LowCardinality(String)
) ENGINE = MergeTree ORDER BY (at, upload_id)
`

// Event is one audit row
type Event struct {
	At        time.Time
	UploadID  string
	RequestID string
	// Mode is eager or stream
	Mode    string
	Storage string
	Fields  uint32
	Files   uint32
	Bytes   uint64
	Outcome string
}

// Events records upload audit rows
type Events interface {
	Record(ctx context.Context, e Event) error
}

// NewCH returns an Events writer over clickhouse; a nil client yields a writer that drops rows
func NewCH(c store.Clickhouse) Events {
	if c == nil {
		return nopEvents{}
	}
	return chEvents{c: c}
}

type chEvents struct{ c store.Clickhouse }

func (e chEvents) Record(ctx context.Context, ev Event) error {
	return e.c.Insert(ctx, EventsTable, [][]any{{
		ev.At, ev.UploadID, ev.RequestID, ev.Mode, ev.Storage,
		ev.Fields, ev.Files, ev.Bytes, ev.Outcome,
	}})
}

type nopEvents struct{}

func (nopEvents) Record(context.Context, Event) error { return nil }
