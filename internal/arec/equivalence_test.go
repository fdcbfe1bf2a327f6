package arec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/arec"
	"github.com/tos-network/pgdb/internal/mi"
)

func TestEquivalenceClassesPartitionByReconstructedValue(t *testing.T) {
	base := `*stopped,reason="breakpoint-hit",bkptno="1"`
	divergent := `*stopped,reason="breakpoint-hit",bkptno="2"`

	var merged *arec.AggregatedRecord
	for rank := 0; rank < 5; rank++ {
		line := base
		if rank == 3 || rank == 4 {
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

	classes := merged.EquivalenceClasses()
	require.Len(t, classes, 2)

	total := 0
	for _, c := range classes {
		total += c.Ranks.Count()
	}
	require.Equal(t, 5, total)
}
