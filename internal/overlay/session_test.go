package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/wire"
)

func TestSessionSetExposesSharedStreams(t *testing.T) {
	s := NewSessionSet(4)
	require.Equal(t, StreamBroadcast, s.Broadcast().Kind)
	require.Equal(t, StreamFrontendReceive, s.FrontendReceive().Kind)

	s.Broadcast().Send(wire.KindHello, wire.HelloMsg{})
	got := <-s.Broadcast().Recv()
	require.Equal(t, wire.KindHello, got.kind)
}

func TestOpenNarrowedSharesStreamPerInterval(t *testing.T) {
	s := NewSessionSet(4)
	target := rankset.FromRange(0, 7)

	a, err := s.OpenNarrowed(target, 4)
	require.NoError(t, err)
	require.Equal(t, StreamNarrowed, a.Kind)
	require.True(t, a.Target.Equals(target))

	b, err := s.OpenNarrowed(rankset.FromRange(0, 7), 4)
	require.NoError(t, err)
	require.Same(t, a, b, "same Interval must share one stream")

	c, err := s.OpenNarrowed(rankset.FromRange(0, 3), 4)
	require.NoError(t, err)
	require.NotSame(t, a, c)
}

func TestOpenNarrowedAfterCloseFails(t *testing.T) {
	s := NewSessionSet(1)
	s.Close()
	_, err := s.OpenNarrowed(rankset.FromRange(0, 1), 1)
	require.ErrorIs(t, err, errSessionClosed)
}
