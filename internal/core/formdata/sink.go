package formdata

import (
	"context"
	"io"
)

// Hooks are the prepare and cleanup entry points shared by engines, decoders, storages and sinks.
// Process scoped values run them at startup and shutdown; request scoped values around one body
type Hooks interface {
	Prepare(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// NopHooks is embedded by values with nothing to prepare or clean up
type NopHooks struct{}

// Prepare does nothing
func (NopHooks) Prepare(context.Context) error { return nil }

// Cleanup does nothing
func (NopHooks) Cleanup(context.Context) error { return nil }

// Sink stores the files of one request.
// Save must drain r even when storing fails, must accept an empty stream, and must
// report its own failures with the storage code. Read errors from r pass through untouched
type Sink interface {
	Hooks
	Save(ctx context.Context, name string, r io.Reader, info Info) (StoredFile, error)
}

// Storage is the process scoped factory of sinks; it owns resources shared across requests
type Storage interface {
	Hooks
	Name() string
	NewSink() Sink
}

// Listener receives decoder events in body order. Nothing arrives after Finish
type Listener interface {
	Field(name, value string, info FieldInfo)
	File(name string, stream *FileStream, info Info)
	Limit(sig Signal)
	Finish()
}

// Decoder decodes one body. Decode pushes events to l and returns once the body is consumed.
// A decoder reading straight from the body waits for each file stream to finish before
// moving on; a spooling decoder may push every part first.
// A non-nil error is a fault outside the limit taxonomy
type Decoder interface {
	Hooks
	Decode(ctx context.Context, l Listener) error
}

// Engine is the process scoped factory of decoders
type Engine interface {
	Hooks
	Name() string
	NewDecoder(body io.Reader, contentType string, lim Limits) (Decoder, error)
}
