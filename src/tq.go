package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Transmit queue - hold messages for transmission.
 *
 * Description:	Producers of messages to be transmitted call Send and
 *		then go merrily on their way, unconcerned about when the
 *		message might actually get transmitted.
 *
 *		Another goroutine removes messages from the queue and
 *		transmits them, one complete PTT session each, in the
 *		order they were queued.
 *
 *		Abort throws away everything waiting and stops the
 *		message in progress at the next element, if the
 *		transmitter is cancellable.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"sync"
)

const DefaultQueueDepth = 32

var (
	ErrQueueFull   = errors.New("transmit queue full")
	ErrQueueClosed = errors.New("transmit queue closed")
)

type Queue struct {
	tx    *Transmitter
	depth int

	mu      sync.Mutex
	wake    *sync.Cond // Queue changed or transmit finished.
	pending []string
	busy    bool
	closed  bool
	cancel  context.CancelFunc // For the message in progress.

	done chan struct{}

	// Called from the transmit goroutine after each message.
	OnSent func(msg string, err error)
}

func NewQueue(tx *Transmitter, depth int) *Queue {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}

	var q = &Queue{ //nolint:exhaustruct
		tx:    tx,
		depth: depth,
		done:  make(chan struct{}),
	}
	q.wake = sync.NewCond(&q.mu)

	go q.xmitThread()

	return q
}

/*-------------------------------------------------------------------
 *
 * Name:        Send
 *
 * Purpose:     Add a message to the end of the queue.
 *
 * Returns:	ErrQueueFull if depth messages are already waiting.
 *		ErrQueueClosed after Close.
 *
 *--------------------------------------------------------------------*/

func (q *Queue) Send(msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(q.pending) >= q.depth {
		logger.Warn("transmit queue full, message dropped", "depth", q.depth)
		return ErrQueueFull
	}

	q.pending = append(q.pending, msg)
	q.wake.Broadcast()

	return nil
}

// Abort discards waiting messages and cancels the current one.
func (q *Queue) Abort() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) > 0 {
		logger.Info("transmit queue flushed", "dropped", len(q.pending))
	}
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	q.wake.Broadcast()
}

// Len is the number of messages waiting, not counting one in progress.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether anything is waiting or being sent.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy || len(q.pending) > 0
}

// Flush waits until everything queued so far has been sent.
func (q *Queue) Flush(ctx context.Context) error {
	var stop = context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.wake.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.busy || len(q.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.wake.Wait()
	}
	return nil
}

func (q *Queue) SetSpeed(wpm int) int {
	return q.tx.SetSpeed(wpm)
}

func (q *Queue) SetTone(hz int) int {
	return q.tx.SetTone(hz)
}

func (q *Queue) Transmitter() *Transmitter {
	return q.tx
}

// Close stops accepting messages, sends what is already queued and
// waits for the transmit goroutine to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.wake.Broadcast()
	q.mu.Unlock()

	<-q.done
}

func (q *Queue) xmitThread() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.wake.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}

		var msg = q.pending[0]
		q.pending = q.pending[1:]

		var ctx, cancel = context.WithCancel(context.Background())
		q.cancel = cancel
		q.busy = true
		q.mu.Unlock()

		var err = q.tx.Transmit(ctx, msg)
		cancel()

		if err != nil {
			logger.Warn("transmit", "err", err)
		}
		if q.OnSent != nil {
			q.OnSent(msg, err)
		}

		q.mu.Lock()
		q.cancel = nil
		q.busy = false
		q.wake.Broadcast()
		q.mu.Unlock()
	}
}
