// Package backoff computes the attempt-indexed retry delay sequence
// described in spec.md §4.5: a deterministic exponential base transformed by
// one of four jitter policies.
package backoff

import (
	"math/rand"
	"time"

	cenkalti "github.com/cenkalti/backoff"

	"github.com/cordio/taskd/internal/model"
)

// Law computes delay_k for a fixed BackoffStrategy. It is not safe for
// concurrent use by multiple attempt loops for the same slot, but a single
// slot's attempts are strictly sequential anyway (spec.md §5).
type Law struct {
	strategy model.BackoffStrategy
	base     *cenkalti.ExponentialBackOff
	prevJitt uint64
	rand     *rand.Rand
}

// NewLaw builds a Law from the given strategy. The caller must have already
// validated the strategy (first/max non-zero, factor positive).
func NewLaw(strategy model.BackoffStrategy, seed int64) *Law {
	eb := cenkalti.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(strategy.FirstMS) * time.Millisecond
	eb.MaxInterval = time.Duration(strategy.MaxMS) * time.Millisecond
	eb.Multiplier = strategy.Factor
	// RandomizationFactor is disabled: taskd's own jitter transforms (below)
	// are applied on top of the deterministic base sequence cenkalti's
	// ExponentialBackOff produces; its own randomization has no decorrelated
	// mode and would double-apply jitter for Full/Equal.
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()

	return &Law{
		strategy: strategy,
		base:     eb,
		prevJitt: strategy.FirstMS,
		rand:     rand.New(rand.NewSource(seed)),
	}
}

// base_ returns base_k = min(max, first*factor^(k-1)) for the k-th call
// (1-indexed by call order), matching spec.md §4.5 and §8 invariant 4
// exactly when no jitter is requested.
func (l *Law) base_() uint64 {
	d := l.base.NextBackOff()
	if d == cenkalti.Stop {
		return l.strategy.MaxMS
	}
	ms := uint64(d / time.Millisecond)
	if ms > l.strategy.MaxMS {
		ms = l.strategy.MaxMS
	}
	return ms
}

// Next returns the jittered delay for the next attempt.
func (l *Law) Next() time.Duration {
	base := l.base_()

	var delay uint64
	switch l.strategy.Jitter {
	case model.JitterNone:
		delay = base
	case model.JitterFull:
		delay = uniform(l.rand, 0, base)
	case model.JitterEqual:
		half := base / 2
		delay = half + uniform(l.rand, 0, base-half)
	case model.JitterDecorrelated:
		hi := l.prevJitt * 3
		if hi < l.strategy.FirstMS {
			hi = l.strategy.FirstMS
		}
		d := uniform(l.rand, l.strategy.FirstMS, hi)
		if d > l.strategy.MaxMS {
			d = l.strategy.MaxMS
		}
		delay = d
		l.prevJitt = delay
	default:
		delay = base
	}

	if delay > l.strategy.MaxMS {
		delay = l.strategy.MaxMS
	}
	return time.Duration(delay) * time.Millisecond
}

func uniform(r *rand.Rand, lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	return lo + uint64(r.Int63n(int64(hi-lo+1)))
}
