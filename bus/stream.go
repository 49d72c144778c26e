package bus

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// Stream yields the value of one property: first the value read when the stream
// was created, then a fresh read after every change notification naming it.
//
// The first read happens before the subscription is installed, so a change that
// lands in between may be seen twice. Values are never deduplicated.
//
// Next must not be called concurrently; Close may be called from any goroutine.
type Stream[T any] struct {
	h       Handle
	name    string
	changes <-chan Change
	cancel  func()

	pending    bool
	initial    T
	initialErr error
	ended      bool

	closeOnce sync.Once
	closed    chan struct{}
}

// Watch reads the property and subscribes to its changes.
func Watch[T any](ctx context.Context, h Handle, name string) (*Stream[T], error) {
	initial, initialErr := Property[T](ctx, h, name)

	changes, cancel, err := h.t.Subscribe(ctx, h.dest, h.path, h.iface)
	if err != nil {
		return nil, &TransportError{Op: "subscribe " + h.iface + "." + name, Err: err}
	}
	return &Stream[T]{
		h:          h,
		name:       name,
		changes:    changes,
		cancel:     cancel,
		pending:    true,
		initial:    initial,
		initialErr: initialErr,
		closed:     make(chan struct{}),
	}, nil
}

// Name returns the watched property name.
func (s *Stream[T]) Name() string { return s.name }

// Next returns the next value. Read failures are returned as items and the stream
// keeps going. When the subscription ends ErrSubscriptionClosed is returned once,
// after that io.EOF. A done ctx returns ctx.Err() and leaves the stream usable.
func (s *Stream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.ended {
		return zero, io.EOF
	}
	select {
	case <-s.closed:
		s.ended = true
		return zero, io.EOF
	default:
	}
	if s.pending {
		s.pending = false
		v, err := s.initial, s.initialErr
		s.initial = zero
		return v, err
	}
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-s.closed:
			s.ended = true
			return zero, io.EOF
		case ch, ok := <-s.changes:
			if !ok {
				s.ended = true
				s.cancel()
				return zero, ErrSubscriptionClosed
			}
			if !ch.Touches(s.name) {
				continue
			}
			return Property[T](ctx, s.h, s.name)
		}
	}
}

// All ranges over the stream until it ends, ctx is done, or the loop stops. The
// terminal error is yielded before the sequence finishes.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) {
				return
			}
			if errors.Is(err, ErrSubscriptionClosed) || ctx.Err() != nil {
				return
			}
		}
	}
}

// Close drops the subscription. Later calls to Next return io.EOF.
func (s *Stream[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.cancel()
	})
}
