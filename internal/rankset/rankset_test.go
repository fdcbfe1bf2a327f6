package rankset_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/rankset"
)

func TestFromListCoalescesAndSorts(t *testing.T) {
	s := rankset.FromList([]int{9, 1, 3, 6, 5, 2})
	require.Equal(t, "1-3,5-6,9", s.String())
	for _, x := range []int{1, 2, 3, 5, 6, 9} {
		require.True(t, s.Contains(x), "expected %d to be contained", x)
	}
	for _, x := range []int{0, 4, 7, 8, 10} {
		require.False(t, s.Contains(x), "expected %d to be absent", x)
	}
}

func TestIntervalAlgebraScenario(t *testing.T) {
	a := rankset.FromList([]int{1, 2, 3, 5, 6, 9})
	require.Equal(t, "1-3,5-6,9", a.String())

	union := a.Union(rankset.FromList([]int{4, 7, 8}))
	require.Equal(t, "1-9", union.String())

	inter := a.Intersection(rankset.FromList([]int{2, 6, 9}))
	require.Equal(t, "2,6,9", inter.String())

	diff := a.Difference(rankset.FromList([]int{2, 6, 9}))
	require.Equal(t, "1,3,5", diff.String())
}

func TestRangeSpansGaps(t *testing.T) {
	s := rankset.FromList([]int{1, 2, 3, 5, 6, 9})
	require.Equal(t, "1-9", s.Range().String())
	require.True(t, rankset.Empty.Range().IsEmpty())
}

func TestMembersRoundTrip(t *testing.T) {
	s := rankset.FromList([]int{0, 1, 2, 10, 11, 20})
	rebuilt := rankset.FromSorted(s.Members())
	require.True(t, s.Equals(rebuilt))
}

func TestEmptyOperandIdentities(t *testing.T) {
	s := rankset.FromRange(0, 63)
	require.True(t, s.Union(rankset.Empty).Equals(s))
	require.True(t, rankset.Empty.Union(s).Equals(s))
	require.True(t, s.Intersection(rankset.Empty).IsEmpty())
	require.True(t, s.Difference(rankset.Empty).Equals(s))
}

func TestAlgebraicLaws(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := randomSet(rng, 40, 50)
		b := randomSet(rng, 40, 50)

		require.True(t, a.Union(b).Equals(b.Union(a)), "union commutative")
		require.True(t, a.Intersection(b).Equals(b.Intersection(a)), "intersection commutative")
		require.True(t, a.Difference(b).Intersection(b).IsEmpty(), "(A-B) disjoint from B")
		require.Equal(t, a.Count()+b.Count(), a.Union(b).Count()+a.Intersection(b).Count(),
			"|A|+|B| = |A union B| + |A intersect B|")
		require.True(t, a.SymmetricDifference(b).Equals(a.Union(b).Difference(a.Intersection(b))))
	}
}

func TestHashIsOrderIndependent(t *testing.T) {
	a := rankset.FromList([]int{1, 2, 3, 10, 11})
	b := rankset.FromList([]int{11, 10, 3, 2, 1})
	require.Equal(t, a.Hash(), b.Hash())
}

func TestParseSpec(t *testing.T) {
	all := rankset.FromRange(0, 99)

	s, err := rankset.Parse("all", all)
	require.NoError(t, err)
	require.True(t, s.Equals(all))

	s, err = rankset.Parse("-1", all)
	require.NoError(t, err)
	require.True(t, s.Equals(all), "-1 is the launcher alias for all ranks")

	s, err = rankset.Parse("1,3,5-7", all)
	require.NoError(t, err)
	require.Equal(t, "1,3,5-7", s.String())

	_, err = rankset.Parse("7-5", all)
	require.Error(t, err)
}

func randomSet(rng *rand.Rand, maxRank, maxCount int) rankset.Set {
	n := rng.Intn(maxCount)
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = rng.Intn(maxRank)
	}
	sort.Ints(ranks)
	return rankset.FromSorted(ranks)
}
