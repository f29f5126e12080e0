package cache

import (
	"encoding/gob"
	"io"
)

// snapshotRecord is the wire representation of one cache entry. gob encodes
// it by the concrete K/V types supplied at the call site, so callers whose
// K or V embed interfaces must gob.Register the concrete types they use,
// exactly as they would for any other gob payload.
type snapshotRecord[K comparable, V any] struct {
	Key   K
	Value V
}

// WriteSnapshot writes every entry currently in the cache to w as a stream
// of gob-encoded records, one per entry, in segment then bucket-chain order.
// The snapshot is weakly consistent (spec §9's supplemental feature): it is
// taken without a global lock, so it may include or omit entries that were
// concurrently being inserted or removed.
//
// No serialization library appears anywhere in the retrieval pack this
// cache was built alongside, so this uses the standard library's gob rather
// than an ecosystem encoder.
func (c *Cache[K, V]) WriteSnapshot(w io.Writer) error {
	enc := gob.NewEncoder(w)
	for _, s := range c.segments {
		for _, e := range s.snapshotEntries() {
			if err := enc.Encode(snapshotRecord[K, V]{Key: e.key, Value: e.val}); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadSnapshot reads records written by WriteSnapshot and Puts each one
// into the cache, stopping at io.EOF. Existing entries with matching keys
// are overwritten; entries already present under keys absent from the
// snapshot are left untouched, so loading into a non-empty cache merges
// rather than replaces.
func (c *Cache[K, V]) LoadSnapshot(r io.Reader) error {
	dec := gob.NewDecoder(r)
	for {
		var rec snapshotRecord[K, V]
		switch err := dec.Decode(&rec); err {
		case nil:
			if _, _, err := c.Put(rec.Key, rec.Value); err != nil {
				return err
			}
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}
