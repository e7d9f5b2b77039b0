package engine

import (
	"math/bits"
	"sync/atomic"

	"numagraph_go/bitutils"
)

// LocalFrontier is one socket's bitmap over its vertex range
// [StartID, EndID). The backing words live in socket-local memory
// because the owning socket worker allocates them after binding.
type LocalFrontier struct {
	Bits    []uint64
	StartID int
	EndID   int
	M       int
}

// NewLocalFrontier allocates an all-zero bitmap for [start, end).
func NewLocalFrontier(start, end int) *LocalFrontier {
	return &LocalFrontier{
		Bits:    make([]uint64, (end-start+63)/64),
		StartID: start,
		EndID:   end,
	}
}

// Bit reports whether global vertex v is set.
func (lf *LocalFrontier) Bit(v int) bool {
	i := v - lf.StartID
	return atomic.LoadUint64(&lf.Bits[i/64])&(uint64(1)<<(uint(i)%64)) != 0
}

// SetBit sets or clears the bit of global vertex v. Safe for
// concurrent use on distinct bits: the word is updated atomically, so
// sub-range boundaries that split a word do not lose updates.
func (lf *LocalFrontier) SetBit(v int, b bool) {
	i := v - lf.StartID
	mask := uint64(1) << (uint(i) % 64)
	if b {
		bitutils.FetchOr(&lf.Bits[i/64], mask)
	} else {
		bitutils.FetchAnd(&lf.Bits[i/64], ^mask)
	}
}

// SetAll sets every bit in the range and the local count.
func (lf *LocalFrontier) SetAll() {
	n := lf.EndID - lf.StartID
	for w := range lf.Bits {
		lf.Bits[w] = ^uint64(0)
	}
	if rem := n % 64; rem != 0 {
		lf.Bits[len(lf.Bits)-1] = (uint64(1) << uint(rem)) - 1
	}
	lf.M = n
}

// ClearRange clears the bits of local indices [lo, hi). Interior words
// are stored plainly; partial words at either end are cleared with an
// atomic AND because a neighbouring subworker may share them.
func (lf *LocalFrontier) ClearRange(lo, hi int) {
	if hi <= lo {
		return
	}
	loWord, hiWord := lo/64, (hi-1)/64
	if loWord == hiWord {
		mask := wordMask(lo%64, hi-loWord*64)
		bitutils.FetchAnd(&lf.Bits[loWord], ^mask)
		return
	}
	if rem := lo % 64; rem != 0 {
		bitutils.FetchAnd(&lf.Bits[loWord], (uint64(1)<<uint(rem))-1)
		loWord++
	}
	lastFull := hiWord
	if rem := hi % 64; rem != 0 {
		bitutils.FetchAnd(&lf.Bits[hiWord], ^((uint64(1) << uint(rem)) - 1))
		lastFull--
	}
	for w := loWord; w <= lastFull; w++ {
		atomic.StoreUint64(&lf.Bits[w], 0)
	}
}

// Count recomputes the population count of the bitmap.
func (lf *LocalFrontier) Count() int {
	count := 0
	for _, w := range lf.Bits {
		count += bits.OnesCount64(w)
	}
	return count
}

func wordMask(lo, hi int) uint64 {
	mask := ^uint64(0) << uint(lo)
	if hi < 64 {
		mask &= (uint64(1) << uint(hi)) - 1
	}
	return mask
}

// Frontier is the global active-vertex set: one LocalFrontier per
// socket plus the global population count. Invariant: M equals the sum
// of the local counts after every CalculateNumOfNonZero round.
type Frontier struct {
	NumSockets int
	locals     []*LocalFrontier
	offsets    []int
	M          int64
}

// NewFrontier returns an empty frontier for the given socket count.
func NewFrontier(sockets int) *Frontier {
	return &Frontier{
		NumSockets: sockets,
		locals:     make([]*LocalFrontier, sockets),
	}
}

// RegisterFrontier installs socket s's bitmap. Each socket worker
// calls this once.
func (fr *Frontier) RegisterFrontier(s int, lf *LocalFrontier) {
	fr.locals[s] = lf
	atomic.AddInt64(&fr.M, int64(lf.M))
}

// CalculateOffsets computes the cumulative bit offsets enabling
// bit-to-global-id translation. The master calls this once after all
// registrations.
func (fr *Frontier) CalculateOffsets() {
	fr.offsets = make([]int, fr.NumSockets)
	accum := 0
	for s, lf := range fr.locals {
		fr.offsets[s] = accum
		accum += lf.EndID - lf.StartID
	}
}

// CalculateNumOfNonZero recomputes socket s's local count from its
// bitmap and folds the change into the global count.
func (fr *Frontier) CalculateNumOfNonZero(s int) int {
	lf := fr.locals[s]
	m := lf.Count()
	atomic.AddInt64(&fr.M, int64(m-lf.M))
	lf.M = m
	return m
}

// GetFrontier returns the LocalFrontier of socket s.
func (fr *Frontier) GetFrontier(s int) *LocalFrontier {
	return fr.locals[s]
}

// Owner returns the LocalFrontier whose range contains global vertex v.
func (fr *Frontier) Owner(v int) *LocalFrontier {
	for _, lf := range fr.locals {
		if v < lf.EndID {
			return lf
		}
	}
	return fr.locals[fr.NumSockets-1]
}

// Bit reports whether global vertex v is active.
func (fr *Frontier) Bit(v int) bool {
	return fr.Owner(v).Bit(v)
}

// SetBitAtomic sets the bit of global vertex v in its owning socket's
// bitmap. Used on the push path where v may belong to any socket.
func (fr *Frontier) SetBitAtomic(v int) {
	lf := fr.Owner(v)
	i := v - lf.StartID
	bitutils.FetchOr(&lf.Bits[i/64], uint64(1)<<(uint(i)%64))
}
