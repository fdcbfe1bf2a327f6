package arec

import (
	"math"

	"github.com/tos-network/pgdb/internal/mi"
	"github.com/tos-network/pgdb/internal/rankset"
)

// Substitution is a field's majority default plus a sparse map of the
// minority ranks that diverge from it. It is the representation's core
// compression trick: a field held identically by thousands of ranks costs
// one value, not thousands.
type Substitution struct {
	Default   mi.Value
	Overrides map[int]mi.Value
}

func newSubstitution(v mi.Value, rank int) Substitution {
	return Substitution{Default: v, Overrides: map[int]mi.Value{}}
}

// valueFor reconstructs the value held at rank: the override if one is
// recorded, else the default.
func (s Substitution) valueFor(rank int) mi.Value {
	if v, ok := s.Overrides[rank]; ok {
		return v
	}
	return s.Default
}

func valueKey(v mi.Value) string {
	if v == nil {
		return "\x00nil"
	}
	return v.Format()
}

// mergeSubstitution combines two substitutions observed over aRanks and
// bRanks respectively into one substitution over their union, choosing the
// new default by majority tally and re-pivoting overrides around it. Ties
// are broken by: prefer a's current default, then b's current default,
// then the value attached to the lexicographically (numerically) smallest
// override key across both inputs.
func mergeSubstitution(a, b Substitution, aRanks, bRanks rankset.Set) Substitution {
	tally := map[string]int{}
	valueByKey := map[string]mi.Value{}

	accumulate := func(s Substitution, ranks rankset.Set) {
		defaultCount := ranks.Count() - len(s.Overrides)
		dk := valueKey(s.Default)
		tally[dk] += defaultCount
		valueByKey[dk] = s.Default
		for _, v := range s.Overrides {
			k := valueKey(v)
			tally[k]++
			valueByKey[k] = v
		}
	}
	accumulate(a, aRanks)
	accumulate(b, bRanks)

	maxCount := 0
	for _, c := range tally {
		if c > maxCount {
			maxCount = c
		}
	}
	candidates := map[string]bool{}
	for k, c := range tally {
		if c == maxCount {
			candidates[k] = true
		}
	}

	winnerKey := pickWinner(candidates, a, b)
	winner := valueByKey[winnerKey]

	merged := Substitution{Default: winner, Overrides: map[int]mi.Value{}}
	aRanks.Each(func(r int) {
		v := a.valueFor(r)
		if valueKey(v) != winnerKey {
			merged.Overrides[r] = v
		}
	})
	bRanks.Each(func(r int) {
		v := b.valueFor(r)
		if valueKey(v) != winnerKey {
			merged.Overrides[r] = v
		}
	})
	return merged
}

func pickWinner(candidates map[string]bool, a, b Substitution) string {
	if len(candidates) == 1 {
		for k := range candidates {
			return k
		}
	}
	if ak := valueKey(a.Default); candidates[ak] {
		return ak
	}
	if bk := valueKey(b.Default); candidates[bk] {
		return bk
	}
	bestRank := math.MaxInt
	bestKey := ""
	consider := func(overrides map[int]mi.Value) {
		for r, v := range overrides {
			k := valueKey(v)
			if candidates[k] && r < bestRank {
				bestRank = r
				bestKey = k
			}
		}
	}
	consider(a.Overrides)
	consider(b.Overrides)
	return bestKey
}
