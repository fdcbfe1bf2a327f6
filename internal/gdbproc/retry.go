package gdbproc

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Sender issues one MI command and returns its correlation token. Process
// implements Sender; tests substitute a fake to exercise retry pacing
// without a live GDB.
type Sender interface {
	Send(command string) (int64, error)
}

// Retrier re-issues init-phase commands until their result record is
// observed. Retries are paced by a token-bucket limiter so a slow or
// wedged GDB doesn't get flooded with duplicate commands.
type Retrier struct {
	sender  Sender
	limiter *rate.Limiter
}

// NewRetrier paces retries to at most ratePerSecond attempts per second,
// with a burst of 1 (a single in-flight retry at a time matches the
// back-end's single cooperative loop).
func NewRetrier(sender Sender, ratePerSecond float64) *Retrier {
	return &Retrier{sender: sender, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1)}
}

// UntilAcked sends command repeatedly, waiting on the limiter between
// attempts, until acked(token) reports true for the token of some attempt,
// or ctx is done. acked is called by the caller's record-dispatch loop as
// result records arrive; UntilAcked itself does not read GDB's output.
func (r *Retrier) UntilAcked(ctx context.Context, command string, acked func(token int64) bool) (int64, error) {
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		tok, err := r.sender.Send(command)
		if err != nil {
			return 0, err
		}

		deadline := time.NewTimer(r.ackWindow())
		poll := time.NewTicker(time.Millisecond)
		windowOpen := true
		for windowOpen {
			select {
			case <-ctx.Done():
				deadline.Stop()
				poll.Stop()
				return 0, ctx.Err()
			case <-deadline.C:
				if acked(tok) {
					poll.Stop()
					return tok, nil
				}
				windowOpen = false // retry with a fresh token
			case <-poll.C:
				if acked(tok) {
					deadline.Stop()
					poll.Stop()
					return tok, nil
				}
			}
		}
		poll.Stop()
	}
}

func (r *Retrier) ackWindow() time.Duration {
	if r.limiter.Limit() <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(r.limiter.Limit()))
}
