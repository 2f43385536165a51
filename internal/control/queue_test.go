package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueSubmitAndReply(t *testing.T) {
	q := NewQueue(4)
	wantErr := errors.New("nope")

	go func() {
		req := <-q.Requests()
		if _, ok := req.Command.(Unsilence); !ok {
			req.Reply(errors.New("wrong command"))
			return
		}
		req.Reply(wantErr)
	}()

	err := q.Submit(context.Background(), Unsilence{})
	assert.ErrorIs(t, err, wantErr)
}

func TestQueueSubmitSuccess(t *testing.T) {
	q := NewQueue(1)
	go func() {
		req := <-q.Requests()
		req.Reply(nil)
	}()
	require.NoError(t, q.Submit(context.Background(), ClearEvents{}))
}

func TestQueueSubmitContextTimeout(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Nobody services the queue.
	err := q.Submit(ctx, ClearEvents{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueTimedOutRequestCannotBeClaimed(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Submit(ctx, ClearEvents{})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The request is still buffered; the loop must see it as withdrawn.
	req := <-q.Requests()
	assert.False(t, req.Claim())
}

func TestQueueCancelledRequestCannotBeClaimed(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- q.Submit(ctx, ClearEvents{}) }()

	req := <-q.Requests()
	cancel()
	assert.False(t, req.Claim())
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestQueueClaimedRequestWaitsForReply(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- q.Submit(ctx, ClearEvents{}) }()

	req := <-q.Requests()
	require.True(t, req.Claim())
	cancel()

	select {
	case err := <-errCh:
		t.Fatalf("Submit returned %v before the reply", err)
	case <-time.After(20 * time.Millisecond):
	}

	req.Reply(nil)
	assert.NoError(t, <-errCh)
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(0)
	q.Close()
	q.Close()

	// Fill the single buffer slot so the send cannot succeed either.
	q.ch <- Request{Command: ClearEvents{}, reply: make(chan error, 1)}
	err := q.Submit(context.Background(), ClearEvents{})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
