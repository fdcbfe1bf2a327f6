package overlay_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/overlay"
	"github.com/tos-network/pgdb/internal/rankset"
)

func TestBuildPartitionsHostsIntoMinimalRelayCount(t *testing.T) {
	hosts := make([]string, 10)
	for i := range hosts {
		hosts[i] = "be" + string(rune('a'+i))
	}
	topo, err := overlay.Build("fe", hosts, 4)
	require.NoError(t, err)
	require.Len(t, topo.Relays, 3) // ceil(10/4)
	require.Len(t, topo.Backends, 10)
}

func TestBuildRejectsHostRoleConflict(t *testing.T) {
	_, err := overlay.Build("fe", []string{"fe", "be1"}, 2)
	require.Error(t, err)
}

func TestRelaysForNarrowsToMinimalSet(t *testing.T) {
	topo, err := overlay.Build("fe", []string{"b0", "b1", "b2", "b3", "b4"}, 2)
	require.NoError(t, err)
	target := rankset.FromList([]int{0, 1, 4})
	relays := topo.RelaysFor(target)
	require.NotEmpty(t, relays)
	require.LessOrEqual(t, len(relays), 3)
}

func TestParseDescriptor(t *testing.T) {
	input := `
# comment
fe:0 => relay0:0 relay1:0 ;
relay0:0 => be0:0 be1:0 ;
relay1:0 => be2:0 ;
`
	edges, err := overlay.ParseDescriptor(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, edges, 3)
	require.Equal(t, "fe:0", edges[0].Parent)
	require.Equal(t, []string{"relay0:0", "relay1:0"}, edges[0].Children)

	parents := overlay.ParentMap(edges)
	require.Equal(t, "relay0:0", parents["be0:0"])
	require.Equal(t, "fe:0", parents["relay1:0"])
}

func TestParseDescriptorRejectsMissingTerminator(t *testing.T) {
	_, err := overlay.ParseDescriptor(strings.NewReader("fe:0 => be0:0\n"))
	require.Error(t, err)
}

func TestRelayFanInCollapsesToOneRecordPerShape(t *testing.T) {
	const fanIn = 8
	relay := overlay.NewRelay(fanIn, 50*time.Millisecond)
	stopped := `*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1"`
	segv := `*stopped,reason="signal-received",signal-name="SIGSEGV"`

	for child := 0; child < fanIn; child++ {
		line := stopped
		if child >= 6 {
			line = segv
		}
		require.NoError(t, relay.AcceptOut(child, arec.NewSingleRank(mi.Parse(line), child)))
	}
	require.True(t, relay.ReadyToFlush())

	records, _ := relay.Flush()
	require.Len(t, records, 2, "one merged record per shape")

	union := rankset.Empty
	for _, rec := range records {
		union = union.Union(rec.Ranks)
	}
	require.True(t, union.Equals(rankset.FromRange(0, fanIn-1)),
		"merged rank sets must cover every contributing child")
}

func TestRelayMergesSameShapeRecordsAcrossChildren(t *testing.T) {
	relay := overlay.NewRelay(2, 50*time.Millisecond)
	line := `*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1"`

	require.NoError(t, relay.AcceptOut(0, arec.NewSingleRank(mi.Parse(line), 0)))
	require.False(t, relay.ReadyToFlush())
	require.NoError(t, relay.AcceptOut(1, arec.NewSingleRank(mi.Parse(line), 1)))
	require.True(t, relay.ReadyToFlush())

	records, passthru := relay.Flush()
	require.Len(t, records, 1)
	require.Empty(t, passthru)
	require.Equal(t, 2, records[0].Ranks.Count())
}
