package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/backend"
	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/rankset"
	"github.com/tos-network/pgdb/internal/wire"
)

type fakeUpward struct {
	sent []interface{}
}

func (f *fakeUpward) Send(k wire.Kind, msg interface{}) {
	f.sent = append(f.sent, msg)
}

func TestStartupAbsorbingEndsWhenAllRanksStopped(t *testing.T) {
	// Untagged records (no correlating token) default to the full local
	// rank set, so one untagged stopped record is enough to complete a
	// single-rank back-end's startup barrier.
	up := &fakeUpward{}
	c := backend.NewCoordinator(rankset.FromList([]int{0}), up)
	c.EndInit()
	require.Equal(t, backend.PhaseStartupAbsorbing, c.Phase)

	require.NoError(t, c.HandleRecord(mi.Parse(`*stopped,reason="breakpoint-hit",thread-id="1"`)))
	require.Equal(t, backend.PhaseRunning, c.Phase)
	require.NotEmpty(t, up.sent, "absorbed batch must be flushed on phase transition")
}

func TestRunningPhaseFiltersSuppressedSubtypes(t *testing.T) {
	up := &fakeUpward{}
	c := backend.NewCoordinator(rankset.FromList([]int{0}), up)
	c.EndInit()
	require.NoError(t, c.HandleRecord(mi.Parse(`*stopped,reason="breakpoint-hit",thread-id="1"`)))
	require.Equal(t, backend.PhaseRunning, c.Phase)
	up.sent = nil

	c.Filter("breakpoint-hit")
	require.NoError(t, c.HandleRecord(mi.Parse(`*stopped,reason="breakpoint-hit",thread-id="1"`)))
	c.FlushOutBatch()
	require.Empty(t, up.sent, "filtered subtype must be dropped before aggregation")

	c.Unfilter("breakpoint-hit")
	require.NoError(t, c.HandleRecord(mi.Parse(`*stopped,reason="breakpoint-hit",thread-id="1"`)))
	c.FlushOutBatch()
	require.NotEmpty(t, up.sent, "unfiltered subtype must be forwarded again")
}

func TestRunningPhaseBatchesMultipleRecordsBeforeFlush(t *testing.T) {
	up := &fakeUpward{}
	c := backend.NewCoordinator(rankset.FromList([]int{0}), up)
	c.EndInit()
	require.NoError(t, c.HandleRecord(mi.Parse(`*stopped,reason="breakpoint-hit",thread-id="1"`)))
	require.Equal(t, backend.PhaseRunning, c.Phase)
	up.sent = nil

	require.NoError(t, c.HandleRecord(mi.Parse(`^done,value="1"`)))
	require.NoError(t, c.HandleRecord(mi.Parse(`^done,value="2"`)))
	require.Empty(t, up.sent, "Running phase must not send until FlushOutBatch is called")

	c.FlushOutBatch()
	require.Len(t, up.sent, 1)
}
