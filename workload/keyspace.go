package workload

import (
	"fmt"
	"math/rand"
)

// KeySpace is the set of pre-seeded key names, key_1 .. key_N. Membership
// is fixed for the lifetime of a test; the cache server may still expire
// individual entries by TTL.
type KeySpace struct {
	size int
}

func NewKeySpace(size int) *KeySpace {
	if size < 0 {
		size = 0
	}
	return &KeySpace{size: size}
}

func (ks *KeySpace) Size() int {
	return ks.size
}

func (ks *KeySpace) Empty() bool {
	return ks.size == 0
}

// Key maps index i (1-based) to its key name.
func (ks *KeySpace) Key(i int) string {
	return fmt.Sprintf("key_%d", i)
}

func (ks *KeySpace) RandomKey(rng *rand.Rand) string {
	return ks.Key(rng.Intn(ks.size) + 1)
}
