package eviction

// NonePolicy never evicts. The segment's rehash-on-threshold path is the
// only safety valve against unbounded growth when None is selected.
type NonePolicy[K comparable] struct {
	BatchPolicy
}

// NewNone returns the no-op eviction policy.
func NewNone[K comparable]() *NonePolicy[K] {
	return &NonePolicy[K]{}
}

// OnMiss is a no-op: None tracks nothing and never evicts on admission.
func (p *NonePolicy[K]) OnMiss(Token[K], Remover[K]) {}

// OnRemove is a no-op: None tracks nothing.
func (p *NonePolicy[K]) OnRemove(Token[K]) {}

// Drain is a no-op: None never evicts, so draining the access buffer would
// have no effect; callers short-circuit on the thresholds below anyway.
func (p *NonePolicy[K]) Drain([]Token[K], Remover[K]) {}

// BatchThresholdReached always reports false: None never needs a drain.
func (p *NonePolicy[K]) BatchThresholdReached(int) bool { return false }

// BatchThresholdExpired always reports false: None never needs a drain.
func (p *NonePolicy[K]) BatchThresholdExpired(int) bool { return false }

// Strategy identifies this policy as None.
func (p *NonePolicy[K]) Strategy() Strategy { return None }
