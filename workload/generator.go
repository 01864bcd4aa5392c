package workload

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"cachebench/config"
)

type Kind int

const (
	Hit Kind = iota
	Miss
)

func (k Kind) String() string {
	if k == Hit {
		return "hit"
	}
	return "miss"
}

// AccessDecision is one simulated request: which key to touch and, when
// the key turns out to be absent, what to write back.
type AccessDecision struct {
	Kind      Kind
	Key       string
	ValueSize int // bytes
	TTL       time.Duration
}

// Generator draws one independent Bernoulli(hitRate) decision per call.
// A hit reads a uniformly random seeded key; a miss reads a key that
// cannot be a member of the key space, forcing a write. There is no
// state across calls beyond the key space reference, so each simulated
// user owns a Generator with its own rng and no locking is needed.
type Generator struct {
	hitRate   float64
	valueSize int
	ttl       time.Duration
	keys      *KeySpace
	rng       *rand.Rand
}

func NewGenerator(hitRate float64, valueSizeKB int, ttl time.Duration, keys *KeySpace, rng *rand.Rand) (*Generator, error) {
	if hitRate < 0 || hitRate > 1 {
		return nil, fmt.Errorf("%w: hit rate %v outside [0, 1]", config.ErrConfiguration, hitRate)
	}
	if hitRate > 0 && (keys == nil || keys.Empty()) {
		return nil, fmt.Errorf("%w: hit rate %v requires a non-empty key space", config.ErrConfiguration, hitRate)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		hitRate:   hitRate,
		valueSize: valueSizeKB * 1024,
		ttl:       ttl,
		keys:      keys,
		rng:       rng,
	}, nil
}

func (g *Generator) Next() AccessDecision {
	if g.rng.Float64() < g.hitRate {
		return AccessDecision{
			Kind:      Hit,
			Key:       g.keys.RandomKey(g.rng),
			ValueSize: g.valueSize,
			TTL:       g.ttl,
		}
	}
	return AccessDecision{
		Kind:      Miss,
		Key:       MissKey(),
		ValueSize: g.valueSize,
		TTL:       g.ttl,
	}
}

// MissKey synthesizes a key outside the seeded key_<n> namespace. The
// miss_ prefix makes collision with seeded keys structurally impossible;
// the UUID keeps two misses from landing on the same fresh key.
func MissKey() string {
	return "miss_" + uuid.NewString()
}

// Value builds a payload of sizeKB kilobytes.
func Value(sizeKB int) string {
	if sizeKB < 0 {
		sizeKB = 0
	}
	return strings.Repeat("A", sizeKB*1024)
}
