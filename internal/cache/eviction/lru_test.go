package eviction

import "testing"

func tok(k string) Token[string] { return Token[string]{Key: k, Hash: uint64(len(k))*31 + 7} }

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := NewLRU[string](4, 1.0) // trimTarget = 4

	noop := func(Token[string]) bool { return true }
	for _, k := range []string{"a", "b", "c", "d"} {
		p.OnMiss(tok(k), noop)
	}

	var evicted []string
	remove := func(t Token[string]) bool { evicted = append(evicted, t.Key); return true }

	// Touch "a" so it is no longer the least recently used, then add "e",
	// which should push the list one over trimTarget and evict the new LRU
	// tail: "b".
	p.Drain([]Token[string]{tok("a")}, remove)
	p.OnMiss(tok("e"), remove)
	p.Drain(nil, remove)

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v, want [b]", evicted)
	}
}

func TestLRURemoveIsIdempotent(t *testing.T) {
	p := NewLRU[string](4, 1.0)
	noop := func(Token[string]) bool { return true }
	p.OnMiss(tok("a"), noop)
	p.OnRemove(tok("a"))
	p.OnRemove(tok("a")) // must not panic or corrupt the list
	p.OnMiss(tok("b"), noop)

	var evicted []string
	p.Drain(nil, func(t Token[string]) bool { evicted = append(evicted, t.Key); return true })
	if len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none (size is within trim target)", evicted)
	}
}
