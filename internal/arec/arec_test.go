package arec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/mi"
)

func TestSingleRankRoundTrip(t *testing.T) {
	line := `^done,bkpt={number="1",type="breakpoint",enabled="y",addr="0x400500",func="main",file="a.c",line="10"}`
	rec := mi.Parse(line)

	agg := arec.NewSingleRank(rec, 3)
	require.Equal(t, 1, agg.Ranks.Count())
	require.True(t, agg.Ranks.Contains(3))

	got, ok := agg.Reconstruct(3)
	require.True(t, ok)
	require.True(t, rec.Equal(got))

	_, ok = agg.Reconstruct(4)
	require.False(t, ok)
}

func TestMergeIdenticalRecordsCompressesToSingleDefault(t *testing.T) {
	// Every rank reports the exact same stopped-at-breakpoint record; the
	// merge should still describe every rank without ballooning the
	// override maps.
	line := `*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1",stopped-threads="all",core="0"`

	var merged *arec.AggregatedRecord
	for rank := 0; rank < 64; rank++ {
		rec := mi.Parse(line)
		single := arec.NewSingleRank(rec, rank)
		if merged == nil {
			merged = &single
			continue
		}
		next, err := merged.Merge(single)
		require.NoError(t, err)
		merged = &next
	}

	require.Equal(t, 64, merged.Ranks.Count())
	for rank := 0; rank < 64; rank++ {
		got, ok := merged.Reconstruct(rank)
		require.True(t, ok)
		require.Equal(t, mi.Parse(line), got)
	}
}

func TestMergeDivergentFieldKeepsSparseOverrides(t *testing.T) {
	// Most ranks stop at breakpoint 1, a minority stop at breakpoint 2;
	// the merge should carry that as a sparse override on "bkptno", not
	// explode per-rank.
	base := `*stopped,reason="breakpoint-hit",bkptno="1",thread-id="1"`
	divergent := `*stopped,reason="breakpoint-hit",bkptno="2",thread-id="1"`

	var merged *arec.AggregatedRecord
	for rank := 0; rank < 10; rank++ {
		line := base
		if rank == 7 {
			line = divergent
		}
		single := arec.NewSingleRank(mi.Parse(line), rank)
		if merged == nil {
			merged = &single
			continue
		}
		next, err := merged.Merge(single)
		require.NoError(t, err)
		merged = &next
	}

	got, ok := merged.Reconstruct(7)
	require.True(t, ok)
	bkptno, ok := got.Fields["bkptno"].(mi.StringValue)
	require.True(t, ok)
	require.Equal(t, "2", string(bkptno))

	got, ok = merged.Reconstruct(3)
	require.True(t, ok)
	bkptno, ok = got.Fields["bkptno"].(mi.StringValue)
	require.True(t, ok)
	require.Equal(t, "1", string(bkptno))
}

func TestMergeShapeMismatchReturnsError(t *testing.T) {
	a := arec.NewSingleRank(mi.Parse(`^done,bkptno="1"`), 0)
	b := arec.NewSingleRank(mi.Parse(`^done,other="x"`), 1)

	_, err := a.Merge(b)
	require.Error(t, err)
	var sme arec.ShapeMismatchError
	require.ErrorAs(t, err, &sme)
}

func TestMergeNestedListLengthMismatchReturnsError(t *testing.T) {
	a := arec.NewSingleRank(mi.Parse(`^done,groups=[{id="i1"},{id="i2"}]`), 0)
	b := arec.NewSingleRank(mi.Parse(`^done,groups=[{id="i1"},{id="i2"},{id="i3"}]`), 1)

	// Same outer Shape (field-name set matches) but the nested list
	// lengths diverge -- must still be caught, not merged silently.
	b2 := arec.AggregatedRecord{
		Shape:  a.Shape,
		Ranks:  b.Ranks,
		Class:  b.Class,
		Token:  b.Token,
		Text:   b.Text,
		Fields: b.Fields,
	}
	_, err := a.Merge(b2)
	require.Error(t, err)
}

func TestClassifyGroupsByShape(t *testing.T) {
	a := arec.NewSingleRank(mi.Parse(`^done,bkptno="1"`), 0)
	b := arec.NewSingleRank(mi.Parse(`^done,bkptno="2"`), 1)
	c := arec.NewSingleRank(mi.Parse(`^done,other="x"`), 2)

	require.Equal(t, a.Classify(), b.Classify())
	require.NotEqual(t, a.Classify(), c.Classify())
}
