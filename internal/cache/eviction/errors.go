package eviction

import (
	"fmt"

	"github.com/dreamware/quartzdb/internal/coreerr"
)

// invariantViolation builds the panic value raised when a recency
// state-machine transition is attempted from the wrong source state.
// Invariant violations are fatal: spec §7 treats them as programmer errors
// in the policy's own bookkeeping, never as a condition callers recover
// from.
func invariantViolation[K comparable](tok Token[K], from, to, actual RecencyState) error {
	return coreerr.InvariantViolation.Wrap(fmt.Errorf(
		"lirs: illegal transition for key %v: wanted %s -> %s but state is %s",
		tok.Key, from, to, actual,
	))
}
