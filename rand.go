package mutagen

import (
	"math/bits"
	"sync/atomic"
	"time"
)

// *****************************************************************************
// ****************************** Random Source ********************************
// pcg xsh rr 64 32: a 32 bit PRNG with a 64 bit period. Each dispatcher owns
// one; there is no shared state between instances, so no locking either.
// Given the same seed, the stream is fully deterministic, which is what makes
// a mutation chain replayable during triage.

var globalInc uint64 // PCG stream

const pcgMultiplier uint64 = 6364136223846793005

type pcgRand struct {
	noCopy noCopy // help avoid mistakes: ask vet to ensure that we don't make a copy
	state  uint64
	inc    uint64
}

// newPCG generates a new Rand seeded from the clock. The global counter keeps
// sources built within the same nanosecond apart.
func newPCG() *pcgRand {
	return newSeededPCG(uint64(time.Now().UnixNano()) +
		atomic.AddUint64(&globalInc, 1))
}

// newSeededPCG generates a new Rand with a caller-chosen seed. The stream
// selector is derived from the seed too, so equal seeds replay equal draw
// sequences.
func newSeededPCG(seed uint64) *pcgRand {
	r := new(pcgRand)
	r.state = seed
	r.inc = (seed << 1) | 1
	r.step()
	r.state += seed
	r.step()
	return r
}

func (r *pcgRand) step() {
	r.state *= pcgMultiplier
	r.state += r.inc
}

// Uint32 returns a pseudo-random uint32.
func (r *pcgRand) Uint32() uint32 {
	x := r.state
	r.step()
	return bits.RotateLeft32(uint32(((x>>18)^x)>>27), -int(x>>59))
}

// Uint64 returns a pseudo-random uint64.
func (r *pcgRand) Uint64() uint64 {
	return uint64(r.Uint32())<<32 | uint64(r.Uint32())
}

// Intn returns a pseudo-random number in [0, n). n <= 0 yields 0, so callers
// can pass degenerate interval widths without guarding.
func (r *pcgRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if int(uint32(n)) != n {
		panic("large Intn")
	}
	return int(r.Uint32n(uint32(n)))
}

// Uint32n returns a pseudo-random number in [0, n).
//
// For implementation details, see:
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction
// https://lemire.me/blog/2016/06/30/fast-random-shuffling
func (r *pcgRand) Uint32n(n uint32) uint32 {
	v := r.Uint32()
	prod := uint64(v) * uint64(n)
	low := uint32(prod)
	if low < n {
		thresh := uint32(-int32(n)) % n
		for low < thresh {
			v = r.Uint32()
			prod = uint64(v) * uint64(n)
			low = uint32(prod)
		}
	}
	return uint32(prod >> 32)
}

// Uint64n returns a pseudo-random number in [0, n); 0 when n is 0. Used for
// value-ranged draws that do not fit 32 bits.
func (r *pcgRand) Uint64n(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return r.Uint64() % n
}

// Bool generates a random bool.
func (r *pcgRand) Bool() bool {
	return r.Uint32()&1 == 0
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
