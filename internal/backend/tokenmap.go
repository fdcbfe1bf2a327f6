package backend

import "github.com/tos-network/pgdb/internal/rankset"

// TokenMap correlates an MI command token to the rank that issued it, so
// the resulting output can be tagged with its issuing rank. Untagged
// records (no token, or a token this back-end never issued) default to
// the full local rank set.
type TokenMap struct {
	byToken  map[int64]int
	localAll rankset.Set
}

// NewTokenMap constructs a TokenMap defaulting untagged records to
// localRanks.
func NewTokenMap(localRanks rankset.Set) *TokenMap {
	return &TokenMap{byToken: make(map[int64]int), localAll: localRanks}
}

// Record associates token with rank, to be consulted when that token's
// result record arrives.
func (t *TokenMap) Record(token int64, rank int) {
	t.byToken[token] = rank
}

// RankFor resolves the rank set a record with the given token (nil if the
// record carried none) should be tagged with.
func (t *TokenMap) RankFor(token *int64) rankset.Set {
	if token == nil {
		return t.localAll
	}
	rank, ok := t.byToken[*token]
	if !ok {
		return t.localAll
	}
	return rankset.FromList([]int{rank})
}

// Forget drops a token once its result has been consumed, bounding the
// map's size to in-flight commands.
func (t *TokenMap) Forget(token int64) {
	delete(t.byToken, token)
}
