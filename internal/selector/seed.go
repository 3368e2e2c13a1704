package selector

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

const (
	domainRecord = "racksim/select-record/v1"
	domainGroups = "racksim/select-groups/v1"
)

// SubSeed derives the generator seed for one group from a run seed. The
// result is stable across processes and platforms.
func SubSeed(seed int64, groupID string) uint64 {
	return deriveSeed(domainRecord, seed, groupID)
}

// deriveSeed hashes a length-prefixed encoding of domain, seed and key, so
// distinct inputs cannot produce the same byte stream.
func deriveSeed(domain string, seed int64, key string) uint64 {
	h := xxhash.New()
	var buf [8]byte

	writeString := func(s string) {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.WriteString(s)
	}

	writeString(domain)
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	writeString(key)
	return h.Sum64()
}

func newRand(sub uint64) *rand.Rand {
	return rand.New(rand.NewPCG(sub, sub^0x9e3779b97f4a7c15))
}

// recordRand returns the generator used to pick a record of groupID.
func recordRand(seed *int64, groupID string) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return newRand(SubSeed(*seed, groupID))
}

// groupsRand returns the generator used to sample groups of groupType.
func groupsRand(seed *int64, groupType string) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return newRand(deriveSeed(domainGroups, *seed, groupType))
}

// sample draws min(k, len(items)) distinct items without replacement using a
// partial Fisher–Yates shuffle. items is not modified.
func sample(rng *rand.Rand, items []string, k int) []string {
	pool := make([]string, len(items))
	copy(pool, items)

	k = max(0, min(k, len(pool)))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
