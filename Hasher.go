package Go_Lockfree

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// HashString hashes s with xxhash.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HashBytes hashes b with xxhash.
func HashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// HashInt hashes the 8 byte little-endian representation of v. Identity hashing integers puts consecutive keys into the same split-ordered bucket chain, this spreads them.
func HashInt[T constraints.Integer](v T) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return xxhash.Sum64(b[:])
}

// Hasher hashes any comparable value with hash/maphash under a fixed seed. The zero value isn't usable, create it with NewHasher.
type Hasher[K comparable] struct {
	seed maphash.Seed
}

func NewHasher[K comparable]() Hasher[K] {
	return Hasher[K]{maphash.MakeSeed()}
}

func (h Hasher[K]) Hash(k K) uint64 {
	return maphash.Comparable(h.seed, k)
}
