package generate

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// xorshift32 is the small counter-free PRNG used for every reproducible
// stream. Instances are created on demand from a derived seed and dropped
// after use; nothing advances a shared generator.
type xorshift32 struct {
	state uint32
}

func newRNG(seed uint32) *xorshift32 {
	if seed == 0 {
		// xorshift has an all-zero fixed point.
		seed = 0x9e3779b9
	}
	return &xorshift32{state: seed}
}

func (r *xorshift32) next() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// float returns a value in [0, 1).
func (r *xorshift32) float() float64 {
	return float64(r.next()) / 4294967296.0
}

// pathSeed derives the seed of a per-location stream from the base seed and
// a canonical pointer (FNV-1a over the little-endian seed then the path).
func pathSeed(base uint32, canonPath string) uint32 {
	h := fnv.New32a()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], base)
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(canonPath))
	return h.Sum32()
}

// itemSeed derives the seed of item i. Items never consume each other's
// randomness, which is what keeps runs prefix-stable.
func itemSeed(base uint32, index int) uint32 {
	x := base ^ (uint32(index)+1)*0x9e3779b1
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

// NormalizeSeed maps an arbitrary number (as found in JSON configuration)
// to a uint32 seed. Non-finite values select DefaultSeed; others are
// truncated and wrapped modulo 2^32.
func NormalizeSeed(v float64) uint32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultSeed
	}
	m := math.Mod(math.Trunc(v), 4294967296.0)
	if m < 0 {
		m += 4294967296.0
	}
	return uint32(m)
}

func seedFromOptions(o Options) uint32 {
	if o.Seed == nil {
		return DefaultSeed
	}
	return NormalizeSeed(*o.Seed)
}
