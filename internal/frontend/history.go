package frontend

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/tos-network/pgdb/internal/arec"
)

// Batch is one aggregated-record batch received from the transport loop,
// indexed for later `expand [n]` replay.
type Batch struct {
	Index   int
	Records []arec.AggregatedRecord
}

// History is the front-end's bounded batch history: an indexed,
// fixed-capacity ring. Entries are never re-queried except by `expand`,
// so an LRU cache behaves exactly like a FIFO ring here -- the oldest
// untouched entry is always the one capacity eviction drops.
// Push runs on the transport loop while Get/Latest serve the input loop,
// so the index counter gets its own lock; the cache is safe on its own.
type History struct {
	cache *lru.Cache

	mu      sync.Mutex
	nextIdx int
}

// NewHistory constructs a History holding at most size batches.
func NewHistory(size int) (*History, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("frontend: history cache: %w", err)
	}
	return &History{cache: c}, nil
}

// Push records a new batch, returning its index.
func (h *History) Push(records []arec.AggregatedRecord) int {
	h.mu.Lock()
	idx := h.nextIdx
	h.nextIdx++
	h.mu.Unlock()
	h.cache.Add(idx, Batch{Index: idx, Records: records})
	return idx
}

// Get retrieves batch n, or false if it has been evicted or never existed.
func (h *History) Get(n int) (Batch, bool) {
	v, ok := h.cache.Peek(n)
	if !ok {
		return Batch{}, false
	}
	return v.(Batch), true
}

// Latest returns the most recently pushed batch's index, or false if
// History is empty.
func (h *History) Latest() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.nextIdx == 0 {
		return 0, false
	}
	return h.nextIdx - 1, true
}
