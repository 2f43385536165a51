package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQueueClosed is returned when the control loop is no longer servicing commands.
var ErrQueueClosed = errors.New("command queue closed")

// Submitter hands a parsed command to the control loop and waits for the result.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) error
}

// Request states. A request moves out of pending exactly once.
const (
	pending int32 = iota
	claimed
	abandoned
)

// Request is a command waiting to be applied by the control loop.
type Request struct {
	Command Command
	ctx     context.Context
	state   *atomic.Int32
	reply   chan error
}

// Claim reserves the request for the loop. It returns false when the
// submitter has already given up, in which case the command must not be
// applied. After a successful Claim the submitter waits for Reply.
func (r Request) Claim() bool {
	if r.state == nil {
		return true
	}
	if r.ctx != nil && r.ctx.Err() != nil {
		r.state.CompareAndSwap(pending, abandoned)
	}
	return r.state.CompareAndSwap(pending, claimed)
}

// Reply delivers the result to the submitter. It never blocks.
func (r Request) Reply(err error) {
	r.reply <- err
}

// abandon withdraws the request with err unless the loop has already
// claimed it, in which case the loop's reply wins.
func (r Request) abandon(err error) error {
	if r.state.CompareAndSwap(pending, abandoned) || r.state.Load() == abandoned {
		return err
	}
	return <-r.reply
}

// Queue funnels commands from any goroutine into the control loop so that
// tunables only ever change on the loop.
type Queue struct {
	ch        chan Request
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue buffering up to size pending requests.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		ch:   make(chan Request, size),
		done: make(chan struct{}),
	}
}

// Requests is read by the control loop.
func (q *Queue) Requests() <-chan Request {
	return q.ch
}

// Submit enqueues cmd and waits for the loop to apply it. A non-nil error
// from ctx or a closed queue means the command was not applied.
func (q *Queue) Submit(ctx context.Context, cmd Command) error {
	req := Request{Command: cmd, ctx: ctx, state: new(atomic.Int32), reply: make(chan error, 1)}

	select {
	case q.ch <- req:
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-q.done:
		return req.abandon(ErrQueueClosed)
	case <-ctx.Done():
		return req.abandon(ctx.Err())
	}
}

// Close makes pending and future submissions fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
