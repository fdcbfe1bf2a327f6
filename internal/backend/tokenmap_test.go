package backend_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/backend"
	"github.com/tos-network/pgdb/internal/rankset"
)

func TestTokenMapResolvesRecordedToken(t *testing.T) {
	tm := backend.NewTokenMap(rankset.FromList([]int{0, 1, 2}))
	tm.Record(42, 1)

	tok := int64(42)
	ranks := tm.RankFor(&tok)
	require.Equal(t, 1, ranks.Count())
	require.True(t, ranks.Contains(1))
}

func TestTokenMapDefaultsToLocalRanksWhenUntagged(t *testing.T) {
	tm := backend.NewTokenMap(rankset.FromList([]int{0, 1, 2}))
	ranks := tm.RankFor(nil)
	require.Equal(t, 3, ranks.Count())
}

func TestTokenMapForgetRemovesEntry(t *testing.T) {
	tm := backend.NewTokenMap(rankset.FromList([]int{0, 1}))
	tm.Record(7, 0)
	tm.Forget(7)

	tok := int64(7)
	ranks := tm.RankFor(&tok)
	require.Equal(t, 2, ranks.Count(), "forgotten token must fall back to local default")
}
