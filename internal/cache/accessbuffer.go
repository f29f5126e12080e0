package cache

import (
	"sync/atomic"

	"github.com/dreamware/quartzdb/internal/cache/eviction"
)

// maxBatchSize is MAX_BATCH_SIZE from spec §3.
const maxBatchSize = 64

// accessBuffer is the per-segment batching buffer for hit signals, a bounded
// multi-producer/single-consumer queue per spec §3 and §5. Producers (any
// reader that just observed a hit) append lock-free via an atomic
// fetch-and-add claiming a ring slot; the single consumer is whichever
// goroutine wins the opportunistic (or strict) segment lock and drains it.
//
// Because the buffer is a hint for lock-amortized eviction, not a ledger,
// overwrite-on-full is acceptable (spec §9): a producer that wraps around
// before a drain simply overwrites a stale slot, and the drain only ever
// reports up to maxBatchSize of the most recent signals.
type accessBuffer[K comparable] struct {
	slots []atomic.Pointer[eviction.Token[K]]
	next  atomic.Int64
}

func newAccessBuffer[K comparable]() *accessBuffer[K] {
	return &accessBuffer[K]{slots: make([]atomic.Pointer[eviction.Token[K]], maxBatchSize)}
}

// add records a hit for t, returning the buffer's occupancy immediately
// after the add (capped at the slot count) so the caller can consult the
// policy's batching thresholds without a second pass over the buffer.
func (b *accessBuffer[K]) add(t eviction.Token[K]) int {
	idx := b.next.Add(1) - 1
	tok := t
	b.slots[idx%int64(len(b.slots))].Store(&tok)
	n := idx + 1
	if n > int64(len(b.slots)) {
		n = int64(len(b.slots))
	}
	return int(n)
}

// drain returns the buffered tokens in buffer order and resets the buffer.
// Must be called with the segment lock held.
func (b *accessBuffer[K]) drain() []eviction.Token[K] {
	n := b.next.Load()
	size := int64(len(b.slots))
	count := n
	if count > size {
		count = size
	}
	out := make([]eviction.Token[K], 0, count)
	start := n - count
	for i := int64(0); i < count; i++ {
		if p := b.slots[(start+i)%size].Load(); p != nil {
			out = append(out, *p)
		}
	}
	b.next.Store(0)
	for i := range b.slots {
		b.slots[i].Store(nil)
	}
	return out
}
