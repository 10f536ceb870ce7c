package formkit

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"formdata/internal/core/formdata"
	"formdata/internal/platform/logger"
)

const doubleParse = "multipart already parsed, you probably need to check your code why it is parsed twice."

// Request is the multipart state of one http request. A body is consumed at most once,
// either by Parse or by Iterate
type Request struct {
	kit         *Kit
	body        io.Reader
	contentType string
	multipart   bool

	mu      sync.Mutex
	started bool
	result  *formdata.Result
	sink    formdata.Sink
	dec     formdata.Decoder
	bridge  *formdata.Bridge
}

// IsMultipart reports whether the body is multipart/form-data
func (q *Request) IsMultipart() bool { return q.multipart }

// Parse consumes the whole body, storing files through the configured storage.
// A second call, or a call after Iterate, logs a warning and returns the earlier result
// (empty when there is none) without touching the body
func (q *Request) Parse(ctx context.Context) (formdata.Result, error) {
	if !q.multipart {
		return formdata.Result{}, nil
	}
	if !q.start() {
		logger.C(ctx).Warn().Msg(doubleParse)
		res, _ := q.Result()
		return res, nil
	}

	b, err := q.open(ctx)
	if err != nil {
		return formdata.Result{}, err
	}
	res, err := formdata.Parse(ctx, b, q.sink, formdata.ParseOptions{
		RemoveFilesFromBody: q.kit.opts.RemoveFilesFromBody,
	})
	if err != nil {
		logger.C(ctx).Debug().Err(err).Msg("multipart parse failed")
		return formdata.Result{}, err
	}

	q.mu.Lock()
	q.result = &res
	q.mu.Unlock()
	return res, nil
}

// Iterate returns a lazy sequence of parts. Nothing is prepared until the first pull.
// A second call, or a call after Parse, logs a warning and returns an empty sequence.
// Breaking out of the loop drains the rest of the body
func (q *Request) Iterate(ctx context.Context) iter.Seq2[formdata.Part, error] {
	if !q.multipart {
		return empty
	}
	if !q.start() {
		logger.C(ctx).Warn().Msg(doubleParse)
		return empty
	}

	var once sync.Once
	return func(yield func(formdata.Part, error) bool) {
		first := false
		var b *formdata.Bridge
		var err error
		once.Do(func() {
			first = true
			b, err = q.open(ctx)
		})
		if !first {
			return
		}
		if err != nil {
			yield(formdata.Part{}, err)
			return
		}
		for p, err := range b.All(ctx) {
			if !yield(p, err) {
				return
			}
		}
	}
}

// Result returns what Parse produced
func (q *Request) Result() (formdata.Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.result == nil {
		return formdata.Result{}, false
	}
	return *q.result, true
}

// Cleanup closes the bridge if one is still open, then runs the decoder and sink
// cleanups, both of them even when one fails. Nothing runs for a body never consumed
func (q *Request) Cleanup(ctx context.Context) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	b, dec, sink := q.bridge, q.dec, q.sink
	q.bridge, q.dec, q.sink = nil, nil, nil
	q.mu.Unlock()

	if b != nil {
		_ = b.Close()
	}
	var errs []error
	if dec != nil {
		errs = append(errs, dec.Cleanup(ctx))
	}
	if sink != nil {
		errs = append(errs, sink.Cleanup(ctx))
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("multipart request cleanup failed")
	}
	return err
}

func (q *Request) start() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return false
	}
	q.started = true
	return true
}

// open prepares the sink, then the decoder, and starts the bridge
func (q *Request) open(ctx context.Context) (*formdata.Bridge, error) {
	opts := q.kit.opts
	sink := opts.Storage.NewSink()
	q.mu.Lock()
	q.sink = sink
	q.mu.Unlock()
	if err := sink.Prepare(ctx); err != nil {
		return nil, err
	}

	dec, err := opts.Engine.NewDecoder(q.body, q.contentType, opts.Limits)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	q.dec = dec
	q.mu.Unlock()
	if err := dec.Prepare(ctx); err != nil {
		return nil, err
	}

	log := logger.C(ctx)
	b := formdata.NewBridge(ctx, dec, formdata.OnTerminal(func() {
		log.Debug().Str("engine", opts.Engine.Name()).Msg("multipart body consumed")
	}))
	q.mu.Lock()
	q.bridge = b
	q.mu.Unlock()
	return b, nil
}

func empty(func(formdata.Part, error) bool) {}
