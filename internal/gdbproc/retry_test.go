package gdbproc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/gdbproc"
)

type fakeSender struct {
	sent []string
	next int64
}

func (f *fakeSender) Send(command string) (int64, error) {
	f.sent = append(f.sent, command)
	tok := f.next
	f.next++
	return tok, nil
}

func TestRetrierSucceedsOnFirstAck(t *testing.T) {
	sender := &fakeSender{}
	r := gdbproc.NewRetrier(sender, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tok, err := r.UntilAcked(ctx, "-break-insert main", func(token int64) bool {
		return true
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), tok)
	require.Len(t, sender.sent, 1)
}

func TestRetrierRetriesUntilAcked(t *testing.T) {
	sender := &fakeSender{}
	r := gdbproc.NewRetrier(sender, 200)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	calls := 0
	_, err := r.UntilAcked(ctx, "-break-insert main", func(token int64) bool {
		calls++
		return calls > 5
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(sender.sent), 1)
}

func TestRetrierRespectsContextCancellation(t *testing.T) {
	sender := &fakeSender{}
	r := gdbproc.NewRetrier(sender, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.UntilAcked(ctx, "-break-insert main", func(token int64) bool { return false })
	require.Error(t, err)
}
