package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Barrier is a reusable blocking barrier. It is used sparingly: at
// startup, teardown, and as the iteration-boundary barrier across all
// workers.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	phase   uint64
}

// NewBarrier returns a barrier for the given number of parties.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until all parties have arrived.
func (b *Barrier) Wait() {
	b.mu.Lock()
	phase := b.phase
	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.phase++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for phase == b.phase {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// SpinBarrier is the lightweight two-phase barrier used on the hot
// path: a shared counter plus a toggle bit. Each arrival increments
// the counter; the last arrival resets it and flips the toggle, which
// releases everyone spinning on the old value.
type SpinBarrier struct {
	counter atomic.Int32
	toggle  atomic.Int32
	parties int32
}

// NewSpinBarrier returns a spin barrier for the given number of
// parties.
func NewSpinBarrier(parties int) *SpinBarrier {
	return &SpinBarrier{parties: int32(parties)}
}

// Arrive registers one arrival and returns the phase to hand to
// WaitPhase. The last arrival flips the toggle.
func (b *SpinBarrier) Arrive() int32 {
	phase := b.toggle.Load()
	if b.counter.Add(1) == b.parties {
		b.counter.Store(0)
		b.toggle.Store(phase ^ 1)
	}
	return phase
}

// WaitPhase spins until the toggle leaves the given phase.
func (b *SpinBarrier) WaitPhase(phase int32) {
	for b.toggle.Load() == phase {
		// Gosched keeps the spin fair when workers outnumber Ps.
		runtime.Gosched()
	}
}

// Wait is Arrive followed by WaitPhase.
func (b *SpinBarrier) Wait() {
	b.WaitPhase(b.Arrive())
}
