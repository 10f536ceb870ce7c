package formdata

import (
	"context"
	"iter"
	"sync"
)

// Bridge turns a decoder's pushed events into parts pulled one at a time.
// It is bound to one decoder and one body and must not be reused once settled
type Bridge struct {
	dec Decoder

	mu       sync.Mutex
	queue    []Part
	current  *FileStream
	terminal bool
	closed   bool
	failure  error
	settled  bool
	outcome  error

	wake     chan struct{}
	produced chan struct{}

	onTerminal   []func()
	terminalOnce sync.Once
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// OnTerminal registers fn to run once when decoding is done by any path
func OnTerminal(fn func()) BridgeOption {
	return func(b *Bridge) {
		if fn != nil {
			b.onTerminal = append(b.onTerminal, fn)
		}
	}
}

// NewBridge subscribes to dec and starts decoding on its own goroutine
func NewBridge(ctx context.Context, dec Decoder, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		dec:      dec,
		wake:     make(chan struct{}, 1),
		produced: make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.produce(ctx)
	return b
}

func (b *Bridge) produce(ctx context.Context) {
	defer close(b.produced)
	if err := b.dec.Decode(ctx, listener{b}); err != nil {
		b.fail(Unexpected(err))
	}
	b.markTerminal()
}

// Next returns the next part in body order. ok is false once the body is done;
// a recorded failure is returned instead of any queued part. After done or a failure
// every call returns the same outcome. Moving past a file that was not read to the end
// discards the rest of it
func (b *Bridge) Next(ctx context.Context) (Part, bool, error) {
	b.mu.Lock()
	cur := b.current
	b.current = nil
	b.mu.Unlock()
	if cur != nil {
		_ = cur.Discard()
	}

	for {
		b.mu.Lock()
		if b.settled {
			out := b.outcome
			b.mu.Unlock()
			return Part{}, false, out
		}
		if b.failure != nil {
			out := b.failure
			b.settled, b.outcome = true, out
			pending := b.takeLocked()
			b.mu.Unlock()
			discard(pending)
			return Part{}, false, out
		}
		if len(b.queue) > 0 {
			p := b.queue[0]
			b.queue[0] = Part{}
			b.queue = b.queue[1:]
			b.current = p.Stream
			b.mu.Unlock()
			return p, true, nil
		}
		if b.terminal {
			b.settled = true
			b.mu.Unlock()
			return Part{}, false, nil
		}
		b.mu.Unlock()

		select {
		case <-b.wake:
		case <-ctx.Done():
			return Part{}, false, ctx.Err()
		}
	}
}

// All ranges over the remaining parts; the bridge is closed when the loop ends
func (b *Bridge) All(ctx context.Context) iter.Seq2[Part, error] {
	return func(yield func(Part, error) bool) {
		defer b.Close()
		for {
			p, ok, err := b.Next(ctx)
			if err != nil {
				yield(Part{}, err)
				return
			}
			if !ok || !yield(p, nil) {
				return
			}
		}
	}
}

// Close stops consumption early. Queued and handed out file streams are discarded, the
// decoder runs to the end of the body and Close waits for it. It never reports the abandonment
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.closed = true
	if !b.settled {
		b.settled = true
	}
	pending := b.takeLocked()
	cur := b.current
	b.current = nil
	b.mu.Unlock()

	if cur != nil {
		_ = cur.Discard()
	}
	discard(pending)
	b.markTerminal()
	<-b.produced
	return nil
}

// Err returns the recorded failure, if any
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

// Done closes when the decoder has returned
func (b *Bridge) Done() <-chan struct{} { return b.produced }

func (b *Bridge) takeLocked() []Part {
	q := b.queue
	b.queue = nil
	return q
}

// push queues a field; it is dropped once the bridge has failed or closed
func (b *Bridge) push(p Part) {
	b.mu.Lock()
	if b.failure != nil || b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, p)
	b.mu.Unlock()
	b.signal()
}

// fail records err unless a failure is already recorded; the first one wins
func (b *Bridge) fail(err error) {
	b.mu.Lock()
	if b.failure == nil {
		b.failure = err
	}
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) markTerminal() {
	b.mu.Lock()
	b.terminal = true
	b.mu.Unlock()
	b.signal()
	b.terminalOnce.Do(func() {
		for _, fn := range b.onTerminal {
			fn()
		}
	})
}

func discard(parts []Part) {
	for _, p := range parts {
		if p.Stream != nil {
			_ = p.Stream.Discard()
		}
	}
}

// listener keeps the event methods off the Bridge's public surface
type listener struct{ b *Bridge }

func (l listener) Field(name, value string, info FieldInfo) {
	if info.Truncated {
		l.b.fail(LimitError(Signal{Code: SignalFieldSize, Name: name}))
		return
	}
	l.b.push(Part{
		Kind:  KindField,
		Name:  name,
		Value: value,
		Info:  Info{Encoding: info.Encoding, MimeType: info.MimeType},
	})
}

func (l listener) File(name string, stream *FileStream, info Info) {
	b := l.b
	stream.Watch(func(err error) { b.fail(Unexpected(err)) })

	b.mu.Lock()
	skip := b.failure != nil || b.closed
	if !skip {
		b.queue = append(b.queue, Part{Kind: KindFile, Name: name, Stream: stream, Info: info})
	}
	b.mu.Unlock()

	if skip {
		_ = stream.Discard()
		return
	}
	b.signal()
}

func (l listener) Limit(sig Signal) { l.b.fail(LimitError(sig)) }

// Finish is ignored: the bridge turns terminal only after Decode returns,
// so a fault reported after Finish still reaches the consumer.
func (l listener) Finish() {}
