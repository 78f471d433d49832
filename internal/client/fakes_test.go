package client_test

import (
	"context"
	"errors"
	"sync"

	"github.com/cwrk-planet/lobby-chat/internal/client"
)

var errReset = errors.New("connection reset by peer")

type fakeTransport struct {
	in   chan []byte
	kill chan error
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	writes [][]byte
	closes []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 16),
		kill: make(chan error, 1),
		done: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.in:
		return data, nil
	case err := <-t.kill:
		return nil, err
	case <-t.done:
		return nil, errors.New("use of closed transport")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(_ context.Context, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, append([]byte(nil), frame...))
	return nil
}

func (t *fakeTransport) Close(code int, _ string) error {
	t.mu.Lock()
	t.closes = append(t.closes, code)
	t.mu.Unlock()
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *fakeTransport) push(frame string) { t.in <- []byte(frame) }

func (t *fakeTransport) drop(err error) { t.kill <- err }

func (t *fakeTransport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.writes...)
}

// fakeDialer succeeds unless fail returns an error for the dial number
// (0-based). With hold set, every dial waits for a value on it; with
// ignoreCtx the wait cannot be cancelled.
type fakeDialer struct {
	fail      func(n int) error
	hold      chan struct{}
	ignoreCtx bool

	mu         sync.Mutex
	dials      int
	transports []*fakeTransport
}

func (d *fakeDialer) Dial(ctx context.Context, _, _ int64) (client.Transport, error) {
	d.mu.Lock()
	n := d.dials
	d.dials++
	d.mu.Unlock()

	if d.hold != nil && d.ignoreCtx {
		<-d.hold
	} else if d.hold != nil {
		select {
		case <-d.hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.fail != nil {
		if err := d.fail(n); err != nil {
			return nil, err
		}
	}

	t := newFakeTransport()
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		return nil
	}
	return d.transports[len(d.transports)-1]
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.transports)
}

type errorLog struct {
	mu   sync.Mutex
	errs []error
}

func (l *errorLog) add(err error) {
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
}

func (l *errorLog) all() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]error(nil), l.errs...)
}
